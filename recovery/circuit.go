package recovery

import (
	"sync"
	"time"
)

// StateClosed is the only circuit state tracked in this scope. The
// bookkeeping (failure counts, next-retry times) is maintained so an
// open/half-open machine can be layered on without redesign.
const StateClosed = "closed"

// CircuitState is the per-fingerprint retry bookkeeping.
type CircuitState struct {
	State           string    `json:"state"`
	FailureCount    int       `json:"failureCount"`
	LastFailureTime time.Time `json:"lastFailureTime"`
	NextRetryTime   time.Time `json:"nextRetryTime"`
}

// Breaker tracks circuit state per fingerprint. Successive failures for a
// fingerprint observe a monotonically non-decreasing FailureCount when
// calls are serialized; the Breaker itself serializes its own state.
type Breaker struct {
	mu     sync.Mutex
	policy BackoffPolicy
	states map[string]*CircuitState
	clock  func() time.Time
}

// NewBreaker creates a breaker whose next-retry times follow policy.
func NewBreaker(policy BackoffPolicy) *Breaker {
	return &Breaker{
		policy: policy.withDefaults(),
		states: make(map[string]*CircuitState),
		clock:  time.Now,
	}
}

// RecordFailure increments the fingerprint's failure count and recomputes
// its next retry time from the backoff policy. Returns the updated state.
func (b *Breaker) RecordFailure(fingerprint string) CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.states[fingerprint]
	if !ok {
		st = &CircuitState{State: StateClosed}
		b.states[fingerprint] = st
	}

	now := b.clock()
	st.FailureCount++
	st.LastFailureTime = now
	st.NextRetryTime = now.Add(b.policy.Delay(st.FailureCount))
	return *st
}

// State returns the fingerprint's current bookkeeping.
func (b *Breaker) State(fingerprint string) (CircuitState, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.states[fingerprint]
	if !ok {
		return CircuitState{}, false
	}
	return *st, true
}

// Reset clears all circuit state.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.states = make(map[string]*CircuitState)
}
