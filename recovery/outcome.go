// Package recovery decides what a caller should do about a recoverable
// error: retry after a backoff delay, prompt the user, escalate, surface
// suggestions, or give up. It never performs the retried operation itself.
//
// Strategies are registered per category in a Dispatcher. The default
// network strategy computes exponential backoff with optional jitter and
// tracks per-fingerprint circuit bookkeeping so a stricter breaker can be
// layered on later.
package recovery

import "time"

// Action is the decision returned to the caller.
type Action string

const (
	// ActionRetry tells the caller to retry after Outcome.Delay.
	ActionRetry Action = "retry"

	// ActionPrompt tells the caller to ask the user before continuing.
	ActionPrompt Action = "prompt"

	// ActionEscalate tells the caller the failure needs elevated privileges
	// or operator intervention.
	ActionEscalate Action = "escalate"

	// ActionSuggest tells the caller to surface Outcome.Suggestions.
	ActionSuggest Action = "suggest"

	// ActionFail tells the caller recovery is not possible.
	ActionFail Action = "fail"

	// ActionNone means no strategy applied.
	ActionNone Action = "none"
)

// Outcome is the result of one recovery attempt. It is created per handled
// error and not persisted.
type Outcome struct {
	Action      Action        `json:"action"`
	Delay       time.Duration `json:"delay,omitempty"`
	Message     string        `json:"message,omitempty"`
	Suggestions []string      `json:"suggestions,omitempty"`

	// Attempt is the failure count for this fingerprint, 1-based, when the
	// network strategy produced the outcome.
	Attempt int `json:"attempt,omitempty"`
}
