package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"prrgen/internal/types"
)

// countingClient fails n times before succeeding.
type countingClient struct {
	failures int
	err      error
	calls    int
	sawDL    bool
}

func (c *countingClient) Name() string { return "counting" }
func (c *countingClient) Close() error { return nil }

func (c *countingClient) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	c.calls++
	_, c.sawDL = ctx.Deadline()
	if c.calls <= c.failures {
		return nil, c.err
	}
	return json.RawMessage(`{}`), nil
}

func (c *countingClient) GenerateJSONVision(ctx context.Context, prompt string, input any, image Blob) (json.RawMessage, error) {
	return c.GenerateJSON(ctx, prompt, input)
}

func TestRetryRecoversFromTransientErrors(t *testing.T) {
	base := &countingClient{failures: 2, err: errors.New("transient")}
	cli := Chain(base, Retry(3, time.Millisecond))

	if _, err := cli.GenerateJSON(context.Background(), "p", nil); err != nil {
		t.Fatal(err)
	}
	if base.calls != 3 {
		t.Fatalf("calls = %d, want 3", base.calls)
	}
}

func TestRetryGivesUpAfterMaxAttempts(t *testing.T) {
	base := &countingClient{failures: 10, err: errors.New("transient")}
	cli := Chain(base, Retry(2, time.Millisecond))

	if _, err := cli.GenerateJSON(context.Background(), "p", nil); err == nil {
		t.Fatal("want error after exhausting attempts")
	}
	if base.calls != 2 {
		t.Fatalf("calls = %d, want 2", base.calls)
	}
}

func TestRetryDoesNotSleepAfterFinalAttempt(t *testing.T) {
	base := &countingClient{failures: 10, err: errors.New("transient")}
	cli := Chain(base, Retry(2, 100*time.Millisecond))

	start := time.Now()
	if _, err := cli.GenerateJSON(context.Background(), "p", nil); err == nil {
		t.Fatal("want error after exhausting attempts")
	}
	// One backoff between the two attempts; none after the last.
	if elapsed := time.Since(start); elapsed >= 250*time.Millisecond {
		t.Fatalf("elapsed %v, backoff ran after the final attempt", elapsed)
	}
}

func TestRetrySkipsPermanentErrors(t *testing.T) {
	base := &countingClient{failures: 10, err: Permanent(errors.New("bad request"))}
	cli := Chain(base, Retry(3, time.Millisecond))

	if _, err := cli.GenerateJSON(context.Background(), "p", nil); err == nil {
		t.Fatal("want permanent error")
	}
	if base.calls != 1 {
		t.Fatalf("permanent error must not be retried, calls = %d", base.calls)
	}
}

func TestWithTimeoutSetsDeadline(t *testing.T) {
	base := &countingClient{}
	cli := Chain(base, WithTimeout(time.Second))

	if _, err := cli.GenerateJSON(context.Background(), "p", nil); err != nil {
		t.Fatal(err)
	}
	if !base.sawDL {
		t.Fatal("inner call had no deadline")
	}
}

func TestIsTransient(t *testing.T) {
	if IsTransient(Permanent(errors.New("x"))) {
		t.Fatal("permanent errors are not transient")
	}
	if IsTransient(context.Canceled) {
		t.Fatal("cancellation is not transient")
	}
	if !IsTransient(errors.New("connection reset")) {
		t.Fatal("plain errors are transient")
	}
}

func TestStageContextRoundTrip(t *testing.T) {
	ctx := WithStage(context.Background(), types.StagePlan)
	if got := StageFrom(ctx); got != types.StagePlan {
		t.Fatalf("stage = %s", got)
	}
	if got := StageFrom(context.Background()); got != "" {
		t.Fatalf("missing stage should be empty, got %s", got)
	}
}

func TestFakeClientPerStagePayloads(t *testing.T) {
	f := NewFakeClient()
	raw, err := f.GenerateJSON(WithStage(context.Background(), types.StageExtract), "p", nil)
	if err != nil {
		t.Fatal(err)
	}
	var out struct {
		Components []any `json:"components"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Components) != 8 {
		t.Fatalf("components = %d", len(out.Components))
	}
}
