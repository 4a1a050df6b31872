package llm

import (
	"context"
	"encoding/json"
	"fmt"

	genai "google.golang.org/genai"
)

// GeminiClient is a thin wrapper around the official genai client. It only
// focuses on the API call itself; retries, timeouts, and logging are applied
// via Middleware.
type GeminiClient struct {
	cli   *genai.Client
	model string
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiClient{cli: cli, model: model}, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.model }
func (g *GeminiClient) Close() error { return nil }

// GenerateJSON concatenates prompt and input, asks for application/json,
// and returns the model's JSON as json.RawMessage.
func (g *GeminiClient) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	return g.generate(ctx, prompt, input, nil)
}

// GenerateJSONVision sends the prompt together with the diagram bytes as an
// inline image part.
func (g *GeminiClient) GenerateJSONVision(ctx context.Context, prompt string, input any, image Blob) (json.RawMessage, error) {
	part := &genai.Part{InlineData: &genai.Blob{MIMEType: image.MIMEType, Data: image.Data}}
	return g.generate(ctx, prompt, input, part)
}

func (g *GeminiClient) generate(ctx context.Context, prompt string, input any, extra *genai.Part) (json.RawMessage, error) {
	in, err := json.MarshalIndent(input, "", "  ")
	if err != nil {
		// A call without its input section cannot produce a usable answer;
		// fail it here rather than send a prompt with no context.
		return nil, Permanent(fmt.Errorf("marshal input: %w", err))
	}
	full := prompt + "\n\n[INPUT JSON]\n" + string(in)

	parts := []*genai.Part{{Text: full}}
	if extra != nil {
		parts = append(parts, extra)
	}
	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: parts}},
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, Permanent(ErrInvalidJSON)
	}
	txt := resp.Candidates[0].Content.Parts[0].Text
	return json.RawMessage(txt), nil
}
