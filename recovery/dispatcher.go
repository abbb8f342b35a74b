package recovery

import (
	"context"
	"sync"
	"time"

	"github.com/oasgen/faults"
)

// Strategy decides the recovery outcome for one record. Strategies must
// respect ctx when they suspend (the network strategy's backoff wait is
// the only suspension point in the defaults).
type Strategy func(ctx context.Context, rec *faults.Record) Outcome

// DispatcherOptions configures the default strategies.
type DispatcherOptions struct {
	// Network is the backoff policy for the network strategy.
	// Zero values take the package defaults.
	Network BackoffPolicy

	// WaitInStrategy makes the network strategy sleep for the computed
	// delay before returning, instead of leaving the wait to the caller.
	WaitInStrategy bool
}

// Dispatcher is the per-category strategy registry. A fresh dispatcher
// carries the default network, filesystem, and validation strategies;
// callers may override any category.
type Dispatcher struct {
	mu         sync.RWMutex
	strategies map[faults.Category]Strategy
	breaker    *Breaker
	opts       DispatcherOptions
}

// NewDispatcher creates a dispatcher with the default strategies
// registered.
func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	opts.Network = opts.Network.withDefaults()
	d := &Dispatcher{
		strategies: make(map[faults.Category]Strategy),
		breaker:    NewBreaker(opts.Network),
		opts:       opts,
	}
	d.Register(faults.CategoryNetwork, d.networkStrategy)
	d.Register(faults.CategoryFilesystem, filesystemStrategy)
	d.Register(faults.CategoryValidation, validationStrategy)
	return d
}

// Register installs (or replaces) the strategy for a category.
func (d *Dispatcher) Register(category faults.Category, s Strategy) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.strategies[category] = s
}

// Dispatch runs the strategy registered for the record's category.
// Records from categories without a strategy get ActionNone.
func (d *Dispatcher) Dispatch(ctx context.Context, rec *faults.Record) Outcome {
	d.mu.RLock()
	s, ok := d.strategies[rec.Category]
	d.mu.RUnlock()
	if !ok {
		return Outcome{Action: ActionNone}
	}
	return s(ctx, rec)
}

// CircuitState exposes the fingerprint's retry bookkeeping.
func (d *Dispatcher) CircuitState(fingerprint string) (CircuitState, bool) {
	return d.breaker.State(fingerprint)
}

// Reset clears circuit bookkeeping.
func (d *Dispatcher) Reset() {
	d.breaker.Reset()
}

// sleep waits for delay or until ctx is done, whichever comes first.
func sleep(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
