package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"prrgen/internal/artifact"
	"prrgen/internal/llm"
	"prrgen/internal/schema"
	t "prrgen/internal/types"
	"prrgen/internal/util/jsonutil"
)

// ErrInvalidArtifact means the uploaded diagram cannot be read at all. This
// is the one stage failure that is fatal to a run.
var ErrInvalidArtifact = errors.New("pipeline: artifact is missing or unreadable")

// Extractor is stage 1: diagram + metadata in, ArchitectureGraph out.
// Model output supplies components and dependencies; SPOFs, critical paths,
// and the availability tier are derived here so they stay reproducible.
type Extractor struct {
	LLM   llm.LLMClient
	Store artifact.Store
	Log   *log.Logger
}

func (e *Extractor) logf(format string, args ...any) {
	if e.Log != nil {
		e.Log.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// Extract resolves the artifact, asks the model for a component/dependency
// listing, validates it (with one corrective re-prompt), and derives the
// analytical fields. Inference failure surviving the re-prompt degrades to a
// minimal single-component graph instead of failing the run.
func (e *Extractor) Extract(ctx context.Context, artifactID string, meta t.ProjectMetadata) (*t.ArchitectureGraph, t.StageStatus, error) {
	if err := meta.Validate(); err != nil {
		return nil, t.StageFailed, err
	}
	content, mime, err := e.Store.Get(ctx, artifactID)
	if err != nil || len(content) == 0 {
		if err == nil {
			err = fmt.Errorf("empty content")
		}
		return nil, t.StageFailed, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}

	ctx = llm.WithStage(ctx, t.StageExtract)
	image := llm.Blob{MIMEType: mime, Data: content}
	input := map[string]any{
		"name":           meta.Name,
		"description":    meta.Description,
		"businessImpact": meta.BusinessImpact,
	}

	cand, ok := e.inferCandidate(ctx, input, image)
	if !ok {
		g := fallbackGraph(meta)
		deriveGraph(g, meta)
		return g, t.StageDegraded, nil
	}

	g := &t.ArchitectureGraph{
		Components:      cand.Components,
		Dependencies:    cand.Dependencies,
		Recommendations: cand.Recommendations,
	}
	deriveGraph(g, meta)
	if errs := schema.CheckGraph(g); len(errs) > 0 {
		// Derived fields only reference validated names, so this should be
		// unreachable; treat it as a degraded fallback if it ever fires.
		e.logf("extract: derived graph failed invariant check: %v", errs)
		fb := fallbackGraph(meta)
		deriveGraph(fb, meta)
		return fb, t.StageDegraded, nil
	}
	return g, t.StageSucceeded, nil
}

// inferCandidate runs the model call plus the single corrective re-prompt.
func (e *Extractor) inferCandidate(ctx context.Context, input map[string]any, image llm.Blob) (schema.GraphCandidate, bool) {
	var zero schema.GraphCandidate

	raw, err := e.LLM.GenerateJSONVision(ctx, promptExtract, input, image)
	if err != nil {
		e.logf("extract: inference failed: %v", err)
		return zero, false
	}
	res := schema.Validate(schema.ArchitectureGraph, raw)
	if !res.Valid {
		e.logf("extract: validation failed, re-prompting: %s", strings.Join(res.Errors, "; "))
		retryInput := map[string]any{}
		for k, v := range input {
			retryInput[k] = v
		}
		retryInput["previous_errors"] = res.Errors
		// As a plain string: the rejected payload may itself be broken JSON,
		// which would make the retry input unserializable.
		retryInput["previous_output"] = string(raw)
		raw, err = e.LLM.GenerateJSONVision(ctx, promptExtract+correctiveSuffix, retryInput, image)
		if err != nil {
			e.logf("extract: corrective inference failed: %v", err)
			return zero, false
		}
		res = schema.Validate(schema.ArchitectureGraph, raw)
		if !res.Valid {
			e.logf("extract: validation failed after re-prompt: %s", strings.Join(res.Errors, "; "))
			return zero, false
		}
	}

	var cand schema.GraphCandidate
	if err := jsonutil.UnmarshalRaw(res.Normalized, &cand); err != nil {
		e.logf("extract: decode of validated payload failed: %v", err)
		return zero, false
	}
	return cand, true
}

const correctiveSuffix = `

Your previous output failed validation. The errors are listed in the input
under "previous_errors" and the rejected payload under "previous_output".
Produce a corrected JSON object that fixes every listed error.`

// fallbackGraph is the deterministic degraded result: one component standing
// in for the whole system.
func fallbackGraph(meta t.ProjectMetadata) *t.ArchitectureGraph {
	return &t.ArchitectureGraph{
		Components: []t.Component{{
			Name:         meta.Name,
			Kind:         t.KindService,
			Description:  meta.Description,
			Technologies: []string{},
		}},
		Dependencies: []t.Edge{},
		Recommendations: []string{
			"Architecture extraction did not produce a usable component listing; re-run the analysis with a clearer diagram",
		},
		Degraded: true,
	}
}

// deriveGraph fills the analytical fields from the structural ones.
func deriveGraph(g *t.ArchitectureGraph, meta t.ProjectMetadata) {
	spofs := ArticulationPoints(g)
	deps := Dependents(g)
	g.SinglePointsOfFailure = make([]t.SPOF, 0, len(spofs))
	for _, name := range spofs {
		g.SinglePointsOfFailure = append(g.SinglePointsOfFailure, t.SPOF{
			Name:   name,
			Impact: spofImpact(name, deps[name]),
		})
	}
	g.CriticalPaths = CriticalPaths(g)
	if g.CriticalPaths == nil {
		g.CriticalPaths = [][]string{}
	}
	g.AvailabilityTier, g.TierJustification = ClassifyTier(meta.BusinessImpact, len(g.SinglePointsOfFailure), len(g.CriticalPaths))
}

func spofImpact(name string, dependents []string) string {
	if len(dependents) == 0 {
		return fmt.Sprintf("Failure of %s severs the only path between parts of the system", name)
	}
	return fmt.Sprintf("Failure of %s cuts off %s from the rest of the system", name, strings.Join(dependents, ", "))
}
