package monitor

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/oasgen/faults"
)

// PromSink counts handled errors in a Prometheus counter labelled by
// category, severity, and code, for pipelines already scraping metrics.
type PromSink struct {
	handled *prometheus.CounterVec
}

// NewPromSink registers the counter with reg. A nil registerer uses the
// default registry.
func NewPromSink(reg prometheus.Registerer) *PromSink {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &PromSink{
		handled: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "faults",
			Name:      "handled_total",
			Help:      "Errors handled, by category, severity, and code.",
		}, []string{"category", "severity", "code"}),
	}
}

// Send increments the counter for the record's labels.
func (s *PromSink) Send(_ context.Context, rec *faults.Record, _ string) error {
	s.handled.WithLabelValues(string(rec.Category), string(rec.Severity), rec.Code).Inc()
	return nil
}
