package recovery

import (
	"context"
	"testing"
	"time"

	"github.com/oasgen/faults"
)

func retryableNetworkRecord() *faults.Record {
	return faults.New("fetch failed", faults.CodeNetworkServerError,
		faults.Options{Operation: "spec.Fetch", Recoverable: true})
}

// TestNetworkStrategyRetries verifies the retry-then-give-up progression
// and the escalating delays.
func TestNetworkStrategyRetries(t *testing.T) {
	d := NewDispatcher(DispatcherOptions{
		Network: BackoffPolicy{BaseDelay: time.Second, MaxDelay: 30 * time.Second, Factor: 2, MaxRetries: 3},
	})
	ctx := context.Background()

	var prev time.Duration
	for attempt := 1; attempt <= 3; attempt++ {
		out := d.Dispatch(ctx, retryableNetworkRecord())
		if out.Action != ActionRetry {
			t.Fatalf("attempt %d: Action = %q, want retry", attempt, out.Action)
		}
		if out.Attempt != attempt {
			t.Errorf("attempt %d: Attempt = %d", attempt, out.Attempt)
		}
		if out.Delay < prev {
			t.Errorf("attempt %d: delay %v decreased from %v", attempt, out.Delay, prev)
		}
		prev = out.Delay
	}

	out := d.Dispatch(ctx, retryableNetworkRecord())
	if out.Action != ActionFail {
		t.Fatalf("after budget: Action = %q, want fail", out.Action)
	}
	if out.Message != "gave up after 3 attempts" {
		t.Errorf("Message = %q", out.Message)
	}
}

// TestNetworkStrategyNotRetryable verifies non-retryable failures fail
// immediately without consuming circuit budget.
func TestNetworkStrategyNotRetryable(t *testing.T) {
	d := NewDispatcher(DispatcherOptions{})
	rec := faults.New("forbidden", faults.CodeNetworkForbidden,
		faults.Options{Category: faults.CategoryNetwork})

	out := d.Dispatch(context.Background(), rec)
	if out.Action != ActionFail {
		t.Fatalf("Action = %q, want fail", out.Action)
	}
	if _, ok := d.CircuitState(rec.Fingerprint); ok {
		t.Error("non-retryable dispatch recorded a circuit failure")
	}
}

// TestNetworkStrategyRateLimited verifies 429 handling: the server's
// Retry-After overrides the computed delay and five attempts are allowed.
func TestNetworkStrategyRateLimited(t *testing.T) {
	d := NewDispatcher(DispatcherOptions{
		Network: BackoffPolicy{BaseDelay: time.Second, MaxRetries: 3},
	})
	ctx := context.Background()

	limited := func() *faults.Record {
		rec := faults.New("slow down", faults.CodeNetworkRateLimited,
			faults.Options{Recoverable: true})
		rec.AddContext("retry_after_ms", int64(7000))
		return rec
	}

	for attempt := 1; attempt <= RateLimitedMaxRetries; attempt++ {
		out := d.Dispatch(ctx, limited())
		if out.Action != ActionRetry {
			t.Fatalf("attempt %d: Action = %q, want retry (rate-limited budget)", attempt, out.Action)
		}
		if out.Delay != 7*time.Second {
			t.Errorf("attempt %d: Delay = %v, want 7s from Retry-After", attempt, out.Delay)
		}
	}

	out := d.Dispatch(ctx, limited())
	if out.Action != ActionFail {
		t.Errorf("attempt %d: Action = %q, want fail", RateLimitedMaxRetries+1, out.Action)
	}
}

// TestFilesystemStrategy verifies the per-condition decisions.
func TestFilesystemStrategy(t *testing.T) {
	d := NewDispatcher(DispatcherOptions{})
	ctx := context.Background()

	tests := []struct {
		name       string
		code       string
		wantAction Action
	}{
		{"disk full prompts", faults.CodeFileDiskFull, ActionPrompt},
		{"permission escalates", faults.CodeFilePermission, ActionEscalate},
		{"not found fails", faults.CodeFileNotFound, ActionFail},
		{"busy fails without a handler decision", faults.CodeFileBusy, ActionFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := faults.New("fs failure", tt.code, faults.Options{Recoverable: true})
			out := d.Dispatch(ctx, rec)
			if out.Action != tt.wantAction {
				t.Errorf("Action = %q, want %q", out.Action, tt.wantAction)
			}
		})
	}
}

// TestValidationStrategy verifies suggestion surfacing.
func TestValidationStrategy(t *testing.T) {
	d := NewDispatcher(DispatcherOptions{})
	ctx := context.Background()

	ve := faults.NewValidationError("invalid", []faults.FieldFailure{
		{Keyword: "required", Path: "/pet", Params: map[string]any{"missingProperty": "name"}},
	}, faults.Options{})

	out := d.Dispatch(ctx, ve.Record)
	if out.Action != ActionSuggest {
		t.Fatalf("Action = %q, want suggest", out.Action)
	}
	if len(out.Suggestions) == 0 {
		t.Error("no suggestions surfaced")
	}

	bare := faults.New("invalid", faults.CodeValidationFailed, faults.Options{})
	if out := d.Dispatch(ctx, bare); out.Action != ActionFail {
		t.Errorf("Action without suggestions = %q, want fail", out.Action)
	}
}

// TestDispatchUnknownCategory verifies categories without a strategy get
// ActionNone.
func TestDispatchUnknownCategory(t *testing.T) {
	d := NewDispatcher(DispatcherOptions{})
	rec := faults.New("odd", faults.CodeUnknown, faults.Options{})

	out := d.Dispatch(context.Background(), rec)
	if out.Action != ActionNone {
		t.Errorf("Action = %q, want none", out.Action)
	}
}

// TestRegisterOverride verifies caller strategies replace the defaults.
func TestRegisterOverride(t *testing.T) {
	d := NewDispatcher(DispatcherOptions{})
	d.Register(faults.CategoryNetwork, func(_ context.Context, _ *faults.Record) Outcome {
		return Outcome{Action: ActionPrompt, Message: "custom"}
	})

	out := d.Dispatch(context.Background(), retryableNetworkRecord())
	if out.Action != ActionPrompt || out.Message != "custom" {
		t.Errorf("override not dispatched: %+v", out)
	}
}

// TestCircuitBookkeeping verifies per-fingerprint failure accounting.
func TestCircuitBookkeeping(t *testing.T) {
	b := NewBreaker(BackoffPolicy{BaseDelay: time.Second, Factor: 2, MaxDelay: 30 * time.Second})

	st := b.RecordFailure("fp")
	if st.State != StateClosed {
		t.Errorf("State = %q, want closed", st.State)
	}
	if st.FailureCount != 1 {
		t.Errorf("FailureCount = %d", st.FailureCount)
	}
	if st.NextRetryTime.Sub(st.LastFailureTime) != time.Second {
		t.Errorf("first retry offset = %v, want 1s", st.NextRetryTime.Sub(st.LastFailureTime))
	}

	st = b.RecordFailure("fp")
	if st.FailureCount != 2 {
		t.Errorf("FailureCount = %d", st.FailureCount)
	}
	if st.NextRetryTime.Sub(st.LastFailureTime) != 2*time.Second {
		t.Errorf("second retry offset = %v, want 2s", st.NextRetryTime.Sub(st.LastFailureTime))
	}

	if _, ok := b.State("other"); ok {
		t.Error("State returned bookkeeping for an unseen fingerprint")
	}

	b.Reset()
	if _, ok := b.State("fp"); ok {
		t.Error("State returned bookkeeping after Reset")
	}
}

// TestWaitInStrategyHonorsContext verifies the in-strategy wait aborts on
// cancellation instead of sleeping out the delay.
func TestWaitInStrategyHonorsContext(t *testing.T) {
	d := NewDispatcher(DispatcherOptions{
		Network:        BackoffPolicy{BaseDelay: 10 * time.Second, MaxRetries: 3},
		WaitInStrategy: true,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	out := d.Dispatch(ctx, retryableNetworkRecord())
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("dispatch blocked %v despite cancelled context", elapsed)
	}
	if out.Action != ActionRetry {
		t.Errorf("Action = %q", out.Action)
	}
}
