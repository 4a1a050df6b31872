package llm

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// Middleware wraps an LLMClient with a cross-cutting concern.
type Middleware func(LLMClient) LLMClient

// Chain applies middlewares left to right: the first listed is outermost.
func Chain(base LLMClient, mws ...Middleware) LLMClient {
	out := base
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// WithLogging logs request size and errors. Provide a custom logger or nil
// to use log.Default().
func WithLogging(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next LLMClient) LLMClient {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next LLMClient
	log  *log.Logger
}

func (l *logging) Name() string { return l.next.Name() }
func (l *logging) Close() error { return l.next.Close() }

func (l *logging) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	in, _ := json.Marshal(input)
	l.log.Printf("LLM request (%s): %d bytes", StageFrom(ctx), len(prompt)+len(in))
	raw, err := l.next.GenerateJSON(ctx, prompt, input)
	if err != nil {
		l.log.Printf("LLM error (%s): %v", StageFrom(ctx), err)
	}
	return raw, err
}

func (l *logging) GenerateJSONVision(ctx context.Context, prompt string, input any, image Blob) (json.RawMessage, error) {
	in, _ := json.Marshal(input)
	l.log.Printf("LLM vision request (%s): %d prompt bytes, %d image bytes", StageFrom(ctx), len(prompt)+len(in), len(image.Data))
	raw, err := l.next.GenerateJSONVision(ctx, prompt, input, image)
	if err != nil {
		l.log.Printf("LLM vision error (%s): %v", StageFrom(ctx), err)
	}
	return raw, err
}

// Retry retries up to maxAttempts with exponential backoff starting at
// baseDelay. Permanent errors and context cancellation stop immediately.
func Retry(maxAttempts int, baseDelay time.Duration) Middleware {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 300 * time.Millisecond
	}
	return func(next LLMClient) LLMClient {
		return &retrying{next: next, max: maxAttempts, base: baseDelay}
	}
}

type retrying struct {
	next LLMClient
	max  int
	base time.Duration
}

func (r *retrying) Name() string { return r.next.Name() }
func (r *retrying) Close() error { return r.next.Close() }

func (r *retrying) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	return r.do(ctx, func() (json.RawMessage, error) {
		return r.next.GenerateJSON(ctx, prompt, input)
	})
}

func (r *retrying) GenerateJSONVision(ctx context.Context, prompt string, input any, image Blob) (json.RawMessage, error) {
	return r.do(ctx, func() (json.RawMessage, error) {
		return r.next.GenerateJSONVision(ctx, prompt, input, image)
	})
}

func (r *retrying) do(ctx context.Context, call func() (json.RawMessage, error)) (json.RawMessage, error) {
	var last error
	for i := 0; i < r.max; i++ {
		resp, err := call()
		if err == nil {
			return resp, nil
		}
		if !IsTransient(err) {
			return nil, err
		}
		last = err
		if i == r.max-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		time.Sleep(r.base * time.Duration(1<<i))
	}
	return nil, last
}

// WithTimeout bounds every call with its own deadline. A timed-out call is a
// gateway failure like any other; partial output is discarded.
func WithTimeout(d time.Duration) Middleware {
	if d <= 0 {
		d = 60 * time.Second
	}
	return func(next LLMClient) LLMClient {
		return &timed{next: next, d: d}
	}
}

type timed struct {
	next LLMClient
	d    time.Duration
}

func (t *timed) Name() string { return t.next.Name() }
func (t *timed) Close() error { return t.next.Close() }

func (t *timed) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.next.GenerateJSON(ctx, prompt, input)
}

func (t *timed) GenerateJSONVision(ctx context.Context, prompt string, input any, image Blob) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.next.GenerateJSONVision(ctx, prompt, input, image)
}
