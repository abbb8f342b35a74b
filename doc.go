// Package faults provides the error classification, aggregation, and
// recovery subsystem for OpenAPI code-generation pipelines.
//
// Collaborators in the pipeline (the spec loader, the schema validator, the
// template renderer, the file writer) never swallow failures: they wrap them
// into structured records and hand them to this subsystem, which decides
// whether the failure is recoverable, how to present it, and what the caller
// should do next. The subsystem never retries an operation itself; it only
// returns the decision.
//
// # Core Concepts
//
//   - Record: the structured base error with code, category, severity,
//     fingerprint, cause chain, context, and synthesized solutions
//   - Variants: ValidationError, FilesystemError, NetworkError, and
//     TemplateError add category-specific fields and diagnostics
//   - Fingerprint: a short deterministic hash identifying "the same kind
//     of failure" across occurrences, used for grouping and rate limiting
//   - Formatter: a registered renderer from a Record to one output
//     representation (CLI, JSON, HTML, Markdown, or single-line log)
//
// # Architecture
//
// The module is organized leaf-first:
//
//   - faults: taxonomy, fingerprinting, diagnostics synthesis (this package)
//   - format: the formatter bank, registered here at init
//   - ratelimit: per-fingerprint sliding-window admission
//   - aggregate: fingerprint groups and bounded history
//   - recovery: backoff, circuit bookkeeping, per-category strategies
//   - monitor: fire-and-forget sinks (HTTP, OpenTelemetry, Prometheus)
//   - handler: the central pipeline tying everything together
//
// # Getting Started
//
// Create and classify an error at the point of failure:
//
//	rec := faults.New("spec download failed", faults.CodeNetworkError, faults.Options{
//		Operation: "spec.Load",
//		Cause:     err,
//	})
//
// Hand it to a handler (see the handler package) or render it directly:
//
//	out, err := rec.Serialize(faults.FormatJSON, faults.RenderOptions{})
//
// Construction infers the category from the code prefix when one is not
// supplied, captures platform metadata, and computes the fingerprint once.
package faults
