package monitor

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/oasgen/faults"
)

// OTelSink records each handled error as an increment of a labelled
// counter and a short span, linking pipeline failures into whatever trace
// the host application is already emitting.
type OTelSink struct {
	counter metric.Int64Counter
	tracer  trace.Tracer
}

// NewOTelSink creates a sink from the host application's meter and tracer.
func NewOTelSink(meter metric.Meter, tracer trace.Tracer) (*OTelSink, error) {
	counter, err := meter.Int64Counter(
		"faults.handled",
		metric.WithDescription("Errors handled, by category, severity, and code."),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create handled-errors counter: %w", err)
	}
	return &OTelSink{counter: counter, tracer: tracer}, nil
}

// Send records the counter increment and emits a span carrying the
// record's identity.
func (s *OTelSink) Send(ctx context.Context, rec *faults.Record, _ string) error {
	attrs := []attribute.KeyValue{
		attribute.String("faults.category", string(rec.Category)),
		attribute.String("faults.severity", string(rec.Severity)),
		attribute.String("faults.code", rec.Code),
	}

	s.counter.Add(ctx, 1, metric.WithAttributes(attrs...))

	_, span := s.tracer.Start(ctx, "faults.handle", trace.WithAttributes(attrs...))
	span.SetAttributes(attribute.String("faults.fingerprint", rec.Fingerprint))
	if rec.Severity == faults.SeverityError || rec.Severity == faults.SeverityFatal {
		span.SetStatus(codes.Error, rec.Message)
	}
	span.End()

	return nil
}
