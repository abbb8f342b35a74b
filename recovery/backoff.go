package recovery

import (
	"math"
	"math/rand"
	"time"
)

// Backoff defaults.
const (
	DefaultBaseDelay  = 1 * time.Second
	DefaultMaxDelay   = 30 * time.Second
	DefaultFactor     = 2.0
	DefaultMaxRetries = 3

	// RateLimitedMaxRetries applies when the server asked us to slow down
	// rather than failing outright.
	RateLimitedMaxRetries = 5
)

// BackoffPolicy computes retry delays: min(base * factor^(attempt-1), max),
// with optional ±50% jitter.
type BackoffPolicy struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Factor     float64
	Jitter     bool
	MaxRetries int
}

func (p BackoffPolicy) withDefaults() BackoffPolicy {
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	if p.Factor <= 1 {
		p.Factor = DefaultFactor
	}
	if p.MaxRetries <= 0 {
		p.MaxRetries = DefaultMaxRetries
	}
	return p
}

// Delay returns the wait before the given 1-based attempt. Without jitter
// the result is non-decreasing in attempt and never exceeds MaxDelay; with
// jitter the pre-jitter value is scaled by a random factor in [0.5, 1.5]
// and then re-capped.
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	p = p.withDefaults()
	if attempt < 1 {
		attempt = 1
	}

	d := float64(p.BaseDelay) * math.Pow(p.Factor, float64(attempt-1))
	if d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if p.Jitter {
		d *= 0.5 + rand.Float64()
		if d > float64(p.MaxDelay) {
			d = float64(p.MaxDelay)
		}
	}
	return time.Duration(d)
}

// ShouldRetry reports whether the given 1-based attempt is within budget.
func (p BackoffPolicy) ShouldRetry(attempt int) bool {
	p = p.withDefaults()
	return attempt >= 1 && attempt <= p.MaxRetries
}
