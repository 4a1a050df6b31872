package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	t "prrgen/internal/types"
)

// Blob carries the uploaded diagram into a vision-capable model call.
type Blob struct {
	MIMEType string
	Data     []byte
}

// LLMClient is the inference boundary: given a prompt and structured input,
// return best-effort JSON or fail. The client is stateless across calls; no
// conversation memory is assumed. Cross-cutting concerns (retries, timeouts,
// logging) are applied via Middleware.
type LLMClient interface {
	Name() string
	// GenerateJSON asks for a JSON response to prompt + input.
	GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error)
	// GenerateJSONVision is GenerateJSON with an attached image part.
	GenerateJSONVision(ctx context.Context, prompt string, input any, image Blob) (json.RawMessage, error)
	Close() error
}

// ErrInvalidJSON marks a response that is not usable JSON. Malformed output
// is not worth retrying at this layer; the stage decides whether to re-prompt.
var ErrInvalidJSON = errors.New("llm: response is not valid JSON")

// PermanentError wraps failures that retrying cannot fix (bad request,
// exhausted quota, malformed output).
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return fmt.Sprintf("permanent: %v", e.Err) }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err as a PermanentError, preserving nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsTransient reports whether err may succeed on retry: anything that is not
// marked permanent and is not a context cancellation. Timeouts count as
// transient; the caller's retry-then-fallback policy treats them like any
// other gateway failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var pErr *PermanentError
	if errors.As(err, &pErr) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}

type stageKey struct{}

// WithStage tags ctx with the pipeline stage issuing the call. The fake
// client and logging middleware read it back.
func WithStage(ctx context.Context, stage t.StageKind) context.Context {
	return context.WithValue(ctx, stageKey{}, stage)
}

func StageFrom(ctx context.Context) t.StageKind {
	if v, ok := ctx.Value(stageKey{}).(t.StageKind); ok {
		return v
	}
	return ""
}
