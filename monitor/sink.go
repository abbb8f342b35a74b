// Package monitor delivers handled errors to external observability
// backends. Sinks are fire-and-forget from the central handler's
// perspective: delivery failures are logged, never propagated.
//
// Three sinks are provided — HTTP (JSON to a caller-supplied endpoint),
// OpenTelemetry (a counter and a span per handled error), and Prometheus
// (a labelled counter) — plus a CEL expression filter that selects which
// records are forwarded.
package monitor

import (
	"context"

	"github.com/oasgen/faults"
)

// Sink receives the JSON form of each handled error when monitoring is
// enabled. The record accompanies the payload so sinks can label metrics
// without re-parsing.
type Sink interface {
	Send(ctx context.Context, rec *faults.Record, payload string) error
}
