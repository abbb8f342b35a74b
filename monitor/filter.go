package monitor

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/oasgen/faults"
)

// Filter selects which handled records are forwarded to a sink, using a
// caller-supplied CEL expression over the record's classification fields.
//
// Example expressions:
//
//	severity == 'fatal' || category == 'network'
//	code.startsWith('FILE_') && !recoverable
type Filter struct {
	program cel.Program
}

// NewFilter compiles the expression. The expression must evaluate to a
// boolean; compilation errors are returned verbatim.
func NewFilter(expression string) (*Filter, error) {
	env, err := cel.NewEnv(
		cel.Variable("code", cel.StringType),
		cel.Variable("category", cel.StringType),
		cel.Variable("severity", cel.StringType),
		cel.Variable("recoverable", cel.BoolType),
		cel.Variable("message", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build filter environment: %w", err)
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile filter expression: %w", issues.Err())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to build filter program: %w", err)
	}

	return &Filter{program: program}, nil
}

// Match evaluates the expression against the record.
func (f *Filter) Match(rec *faults.Record) (bool, error) {
	out, _, err := f.program.Eval(map[string]any{
		"code":        rec.Code,
		"category":    string(rec.Category),
		"severity":    string(rec.Severity),
		"recoverable": rec.Recoverable,
		"message":     rec.Message,
	})
	if err != nil {
		return false, fmt.Errorf("failed to evaluate filter: %w", err)
	}

	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter expression returned %T, want bool", out.Value())
	}
	return matched, nil
}

// FilteredSink wraps a sink so only records matching the filter are
// forwarded. Evaluation errors suppress delivery and are reported.
type FilteredSink struct {
	filter *Filter
	next   Sink
}

// NewFilteredSink wraps next with filter.
func NewFilteredSink(filter *Filter, next Sink) *FilteredSink {
	return &FilteredSink{filter: filter, next: next}
}

// Send forwards the payload when the record matches.
func (s *FilteredSink) Send(ctx context.Context, rec *faults.Record, payload string) error {
	matched, err := s.filter.Match(rec)
	if err != nil {
		return err
	}
	if !matched {
		return nil
	}
	return s.next.Send(ctx, rec, payload)
}
