package recovery

import (
	"context"
	"fmt"
	"time"

	"github.com/oasgen/faults"
)

// networkStrategy decides retry-with-backoff for retryable network
// failures. Each dispatch counts as one failure against the fingerprint's
// circuit bookkeeping; the attempt number is that failure count.
//
// Rate-limited responses (HTTP 429) override the computed delay with the
// server's parsed Retry-After value and allow RateLimitedMaxRetries
// attempts instead of the policy's default.
func (d *Dispatcher) networkStrategy(ctx context.Context, rec *faults.Record) Outcome {
	if !rec.Recoverable {
		return Outcome{Action: ActionFail, Message: "network failure is not retryable"}
	}

	state := d.breaker.RecordFailure(rec.Fingerprint)
	attempt := state.FailureCount

	policy := d.opts.Network
	maxRetries := policy.MaxRetries
	rateLimited := rec.HasCode(faults.CodeNetworkRateLimited)
	if rateLimited {
		maxRetries = RateLimitedMaxRetries
	}

	if attempt > maxRetries {
		return Outcome{
			Action:  ActionFail,
			Message: fmt.Sprintf("gave up after %d attempts", maxRetries),
			Attempt: attempt,
		}
	}

	delay := policy.Delay(attempt)
	if rateLimited {
		if ms, ok := rec.ContextValue("retry_after_ms"); ok {
			if v, ok := ms.(int64); ok && v > 0 {
				delay = time.Duration(v) * time.Millisecond
			}
		}
	}

	if d.opts.WaitInStrategy {
		sleep(ctx, delay)
	}

	return Outcome{Action: ActionRetry, Delay: delay, Attempt: attempt}
}

// filesystemStrategy maps the conditional filesystem failures to their
// recovery decisions: disk-full prompts the user, permission problems
// escalate, everything else fails.
func filesystemStrategy(_ context.Context, rec *faults.Record) Outcome {
	switch rec.Code {
	case faults.CodeFileDiskFull:
		return Outcome{
			Action:  ActionPrompt,
			Message: "the output disk is full; free space or choose another output directory",
		}
	case faults.CodeFilePermission:
		return Outcome{
			Action:  ActionEscalate,
			Message: "permission denied; rerun with elevated privileges or fix ownership",
		}
	default:
		return Outcome{Action: ActionFail}
	}
}

// validationStrategy surfaces synthesized suggestions when any exist.
func validationStrategy(_ context.Context, rec *faults.Record) Outcome {
	if len(rec.Solutions) > 0 {
		return Outcome{Action: ActionSuggest, Suggestions: rec.Solutions}
	}
	return Outcome{Action: ActionFail}
}
