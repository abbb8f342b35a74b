// Package ratelimit admits or rejects error occurrences per fingerprint
// using a fixed-size counting window. Rejected occurrences are not stored,
// grouped, or formatted by the central handler; the rejection itself is
// surfaced as an observable event so callers can detect saturation.
//
// Two implementations are provided: an in-memory limiter for the common
// single-process pipeline, and a Redis-backed limiter for pipelines that
// fan generation out across processes.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Default window parameters.
const (
	DefaultWindow       = 60 * time.Second
	DefaultMaxPerWindow = 100
)

// Limiter decides whether another occurrence of a fingerprint is admitted.
type Limiter interface {
	// Allow reports whether this occurrence is within the window budget.
	Allow(ctx context.Context, fingerprint string) (bool, error)

	// Reset clears all counting state.
	Reset(ctx context.Context) error
}

// Options configures a limiter. Zero values take the defaults.
type Options struct {
	// Window is the counting interval.
	Window time.Duration

	// MaxPerWindow is the number of occurrences admitted per fingerprint
	// within one window.
	MaxPerWindow int

	// Clock overrides the time source, for tests.
	Clock func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Window <= 0 {
		o.Window = DefaultWindow
	}
	if o.MaxPerWindow <= 0 {
		o.MaxPerWindow = DefaultMaxPerWindow
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

// bucket is the per-fingerprint counter. The count resets when the window
// expires, not continuously, matching the admission contract: at most
// MaxPerWindow occurrences between consecutive resets.
type bucket struct {
	count   int
	resetAt time.Time
}

// WindowLimiter is the in-memory limiter. Buckets are created lazily on a
// fingerprint's first occurrence.
type WindowLimiter struct {
	mu      sync.Mutex
	opts    Options
	buckets map[string]*bucket
}

// NewWindowLimiter creates an in-memory limiter.
func NewWindowLimiter(opts Options) *WindowLimiter {
	return &WindowLimiter{
		opts:    opts.withDefaults(),
		buckets: make(map[string]*bucket),
	}
}

// Allow counts this occurrence and reports whether it is within budget.
func (l *WindowLimiter) Allow(_ context.Context, fingerprint string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.opts.Clock()
	b, ok := l.buckets[fingerprint]
	if !ok {
		b = &bucket{resetAt: now.Add(l.opts.Window)}
		l.buckets[fingerprint] = b
	}
	if now.After(b.resetAt) {
		b.count = 0
		b.resetAt = now.Add(l.opts.Window)
	}
	b.count++
	return b.count <= l.opts.MaxPerWindow, nil
}

// Reset drops every bucket.
func (l *WindowLimiter) Reset(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets = make(map[string]*bucket)
	return nil
}
