package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"prrgen/internal/llm"
)

// scriptedLLM replays canned responses in order, recording each call. Inputs
// are serialized the way the real gateway does, so an input that cannot be
// marshalled fails here as well.
type scriptedLLM struct {
	responses []json.RawMessage
	errs      []error
	calls     int
	inputs    []json.RawMessage
}

func (s *scriptedLLM) Name() string { return "scripted" }
func (s *scriptedLLM) Close() error { return nil }

func (s *scriptedLLM) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	in, err := json.Marshal(input)
	if err != nil {
		return nil, llm.Permanent(fmt.Errorf("marshal input: %w", err))
	}
	s.inputs = append(s.inputs, in)
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return json.RawMessage(`{}`), nil
}

func (s *scriptedLLM) GenerateJSONVision(ctx context.Context, prompt string, input any, image llm.Blob) (json.RawMessage, error) {
	return s.GenerateJSON(ctx, prompt, input)
}
