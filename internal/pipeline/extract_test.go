package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"prrgen/internal/artifact"
	"prrgen/internal/llm"
	"prrgen/internal/schema"
	"prrgen/internal/types"
)

var testMeta = types.ProjectMetadata{
	Name:           "Retail Platform",
	Description:    "E-commerce storefront and inventory",
	BusinessImpact: types.ImpactHigh,
}

func storeWithDiagram(t *testing.T) (artifact.Store, string) {
	t.Helper()
	store := artifact.NewMemoryStore()
	id, err := store.Put(context.Background(), []byte("fake-png-bytes"), "image/png")
	if err != nil {
		t.Fatal(err)
	}
	return store, id
}

func TestExtractHappyPath(t *testing.T) {
	store, id := storeWithDiagram(t)
	ex := Extractor{LLM: llm.NewFakeClient(), Store: store}

	g, status, err := ex.Extract(context.Background(), id, testMeta)
	if err != nil {
		t.Fatal(err)
	}
	if status != types.StageSucceeded {
		t.Fatalf("status = %s, want succeeded", status)
	}
	if len(g.Components) != 8 {
		t.Fatalf("components = %d, want 8", len(g.Components))
	}
	if errs := schema.CheckGraph(g); len(errs) > 0 {
		t.Fatalf("graph violates referential integrity: %v", errs)
	}
	// high impact always lands on tier2 regardless of SPOFs
	if g.AvailabilityTier != types.Tier2 {
		t.Fatalf("tier = %s, want tier2", g.AvailabilityTier)
	}
	if len(g.SinglePointsOfFailure) == 0 {
		t.Fatal("fixture topology has articulation points; none derived")
	}
	if g.TierJustification == "" {
		t.Fatal("missing tier justification")
	}
}

func TestExtractMissingArtifact(t *testing.T) {
	store := artifact.NewMemoryStore()
	ex := Extractor{LLM: llm.NewFakeClient(), Store: store}

	_, status, err := ex.Extract(context.Background(), "nope", testMeta)
	if !errors.Is(err, ErrInvalidArtifact) {
		t.Fatalf("err = %v, want ErrInvalidArtifact", err)
	}
	if status != types.StageFailed {
		t.Fatalf("status = %s, want failed", status)
	}
}

func TestExtractInvalidMetadata(t *testing.T) {
	store, id := storeWithDiagram(t)
	ex := Extractor{LLM: llm.NewFakeClient(), Store: store}

	_, status, err := ex.Extract(context.Background(), id, types.ProjectMetadata{})
	if err == nil || status != types.StageFailed {
		t.Fatalf("invalid metadata must fail the stage, got status %s err %v", status, err)
	}
}

func TestExtractCorrectiveRePrompt(t *testing.T) {
	store, id := storeWithDiagram(t)
	valid, _ := json.Marshal(map[string]any{
		"components":   []any{map[string]any{"name": "App", "kind": "service", "description": "the app"}},
		"dependencies": []any{},
	})
	stub := &scriptedLLM{responses: []json.RawMessage{
		json.RawMessage(`{"components":[]}`),
		json.RawMessage(valid),
	}}
	ex := Extractor{LLM: stub, Store: store}

	g, status, err := ex.Extract(context.Background(), id, testMeta)
	if err != nil {
		t.Fatal(err)
	}
	if stub.calls != 2 {
		t.Fatalf("want exactly one corrective re-prompt, got %d calls", stub.calls)
	}
	if status != types.StageSucceeded || len(g.Components) != 1 {
		t.Fatalf("status=%s components=%d", status, len(g.Components))
	}
}

func TestExtractRePromptAfterTruncatedOutput(t *testing.T) {
	store, id := storeWithDiagram(t)
	valid, _ := json.Marshal(map[string]any{
		"components":   []any{map[string]any{"name": "App", "kind": "service", "description": "the app"}},
		"dependencies": []any{},
	})
	// Cut-off model output is not JSON at all; the retry must still go out
	// carrying the rejected text and the validation errors.
	truncated := `{"components": [ {"name": "A"`
	stub := &scriptedLLM{responses: []json.RawMessage{
		json.RawMessage(truncated),
		json.RawMessage(valid),
	}}
	ex := Extractor{LLM: stub, Store: store}

	g, status, err := ex.Extract(context.Background(), id, testMeta)
	if err != nil {
		t.Fatal(err)
	}
	if stub.calls != 2 {
		t.Fatalf("want exactly one corrective re-prompt, got %d calls", stub.calls)
	}
	if status != types.StageSucceeded || len(g.Components) != 1 {
		t.Fatalf("status=%s components=%d", status, len(g.Components))
	}
	var retry struct {
		Name           string   `json:"name"`
		PreviousErrors []string `json:"previous_errors"`
		PreviousOutput string   `json:"previous_output"`
	}
	if err := json.Unmarshal(stub.inputs[1], &retry); err != nil {
		t.Fatalf("retry input did not serialize: %v", err)
	}
	if retry.Name != testMeta.Name || len(retry.PreviousErrors) == 0 || retry.PreviousOutput != truncated {
		t.Fatalf("retry input lost context: %+v", retry)
	}
}

func TestExtractMalformedTwiceFallsBack(t *testing.T) {
	store, id := storeWithDiagram(t)
	stub := &scriptedLLM{responses: []json.RawMessage{
		json.RawMessage(`{"components":[]}`),
		json.RawMessage(`{"components":[{"name":""}]}`),
	}}
	ex := Extractor{LLM: stub, Store: store}

	g, status, err := ex.Extract(context.Background(), id, testMeta)
	if err != nil {
		t.Fatalf("fallback must not be an error: %v", err)
	}
	if status != types.StageDegraded || !g.Degraded {
		t.Fatalf("status = %s, want degraded", status)
	}
	if len(g.Components) != 1 || g.Components[0].Name != testMeta.Name {
		t.Fatalf("fallback graph = %+v", g.Components)
	}
	// Derived fields still present on the fallback.
	if g.CriticalPaths == nil || g.AvailabilityTier == "" {
		t.Fatal("fallback graph missing derived fields")
	}
}

func TestExtractInferenceErrorFallsBack(t *testing.T) {
	store, id := storeWithDiagram(t)
	stub := &scriptedLLM{errs: []error{errors.New("model unavailable")}}
	ex := Extractor{LLM: stub, Store: store}

	g, status, err := ex.Extract(context.Background(), id, testMeta)
	if err != nil || status != types.StageDegraded || !g.Degraded {
		t.Fatalf("got status=%s err=%v", status, err)
	}
}
