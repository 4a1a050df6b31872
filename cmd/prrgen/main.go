package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"prrgen/internal/artifact"
	"prrgen/internal/export"
	"prrgen/internal/llm"
	"prrgen/internal/pipeline"
	"prrgen/internal/safeio"
	t "prrgen/internal/types"
)

func main() {
	diagram := flag.String("diagram", "", "path to the architecture diagram image")
	name := flag.String("name", "", "project name")
	description := flag.String("description", "", "project description")
	impact := flag.String("impact", "medium", "business impact: critical, high, medium, low")
	model := flag.String("model", "gemini-2.5-flash", "Gemini model id")
	outDir := flag.String("out", "out", "output directory")
	stage := flag.String("stage", "", "start from specific stage: extract, plan, synthesize")
	fake := flag.Bool("fake", false, "use the deterministic fake inference client")
	flag.Parse()
	if *diagram == "" {
		log.Fatal("--diagram is required")
	}
	if *name == "" {
		log.Fatal("--name is required")
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatal(err)
	}

	businessImpact, err := t.ParseBusinessImpact(*impact)
	if err != nil {
		log.Fatal(err)
	}
	meta := t.ProjectMetadata{Name: *name, Description: *description, BusinessImpact: businessImpact}
	if err := meta.Validate(); err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	logger := log.Default()
	llmCli, err := newLLM(ctx, *fake, *model, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer llmCli.Close()

	store := artifact.NewMemoryStore()
	artifactID, err := stashDiagram(ctx, store, *diagram)
	if err != nil {
		log.Fatal(err)
	}

	var graph t.ArchitectureGraph
	if *stage == "" || *stage == "extract" {
		log.Println("Stage 1: architecture extraction")
		ex := pipeline.Extractor{LLM: llmCli, Store: store, Log: logger}
		g, status, err := ex.Extract(ctx, artifactID, meta)
		if err != nil {
			log.Fatal(err)
		}
		logStatus("extract", status)
		graph = *g
		writeJSON(*outDir, "graph.json", graph)
	} else {
		readJSON(*outDir, "graph.json", &graph)
	}

	var plan t.ChaosTestPlan
	if *stage == "" || *stage == "extract" || *stage == "plan" {
		log.Println("Stage 2: resilience planning")
		pl := pipeline.Planner{LLM: llmCli, Log: logger}
		p, status, err := pl.Plan(ctx, &graph)
		if err != nil {
			log.Fatal(err)
		}
		logStatus("plan", status)
		plan = *p
		writeJSON(*outDir, "plan.json", plan)
	} else {
		readJSON(*outDir, "plan.json", &plan)
	}

	log.Println("Stage 3: report synthesis")
	sy := pipeline.Synthesizer{LLM: llmCli, Log: logger}
	doc, status, err := sy.Synthesize(ctx, meta, &graph, &plan)
	if err != nil {
		log.Fatal(err)
	}
	logStatus("synthesize", status)
	writeJSON(*outDir, "prr.json", doc)
	if err := os.WriteFile(filepath.Join(*outDir, "prr.txt"), []byte(export.PlainText(doc)), 0o644); err != nil {
		log.Fatal(err)
	}

	log.Println("review generated →", *outDir)
}

func newLLM(ctx context.Context, fake bool, model string, logger *log.Logger) (llm.LLMClient, error) {
	var base llm.LLMClient
	if fake {
		base = llm.NewFakeClient()
	} else {
		_ = godotenv.Load()
		apiKey := os.Getenv("GEMINI_API_KEY")
		if apiKey == "" {
			log.Fatal("GEMINI_API_KEY is not set (or pass --fake)")
		}
		cli, err := llm.NewGeminiClient(ctx, apiKey, model)
		if err != nil {
			return nil, err
		}
		base = cli
	}
	return llm.Chain(base,
		llm.WithLogging(logger),
		llm.Retry(3, 500*time.Millisecond),
		llm.WithTimeout(60*time.Second),
	), nil
}

// stashDiagram reads the diagram (root-locked to its own directory) and puts
// it in the in-process store the extractor reads from.
func stashDiagram(ctx context.Context, store artifact.Store, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	fsys, err := safeio.NewSafeFS(filepath.Dir(abs))
	if err != nil {
		return "", err
	}
	content, err := fsys.SafeReadFile(filepath.Base(abs))
	if err != nil {
		return "", err
	}
	return store.Put(ctx, content, diagramMIME(abs, content))
}

func diagramMIME(path string, content []byte) string {
	if strings.EqualFold(filepath.Ext(path), ".svg") {
		return "image/svg+xml"
	}
	mime := http.DetectContentType(content)
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	return mime
}

func logStatus(stage string, status t.StageStatus) {
	if status == t.StageDegraded {
		log.Printf("%s completed degraded; downstream output uses fallback analysis", stage)
	}
}

func writeJSON(dir, name string, v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	if err := os.WriteFile(filepath.Join(dir, name), b, 0o644); err != nil {
		log.Fatal(err)
	}
}

func readJSON(dir, name string, v any) {
	b, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		log.Fatalf("failed to read %s: %v", name, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		log.Fatalf("failed to unmarshal %s: %v", name, err)
	}
}
