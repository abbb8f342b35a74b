package faults

import (
	"fmt"
	"sort"
	"strings"
)

// FieldFailure is one schema-level validation failure raised by the
// validator collaborator.
type FieldFailure struct {
	// Keyword is the schema keyword that failed (e.g. "required", "pattern").
	Keyword string `json:"keyword"`

	// Path locates the failing value in the document (slash-separated,
	// e.g. "/paths/~1pets/get").
	Path string `json:"path"`

	// Message is the validator's own description of the failure.
	Message string `json:"message,omitempty"`

	// Params carries keyword-specific detail (e.g. missingProperty, pattern,
	// allowedValues).
	Params map[string]any `json:"params,omitempty"`
}

// Pointer returns the failure's JSON-Pointer-style path reference.
func (f FieldFailure) Pointer() string {
	if f.Path == "" {
		return "/"
	}
	if strings.HasPrefix(f.Path, "/") {
		return f.Path
	}
	return "/" + strings.ReplaceAll(f.Path, ".", "/")
}

// FailureGroup is the set of failures sharing one document path.
type FailureGroup struct {
	Path     string         `json:"path"`
	Severity Severity       `json:"severity"`
	Failures []FieldFailure `json:"failures"`
}

// ValidationError carries an ordered list of field-level failures plus the
// base record. Validation failures are never recoverable: the document has
// to change.
type ValidationError struct {
	*Record
	Failures []FieldFailure `json:"failures"`
}

// softKeywords mark failures that degrade output quality without blocking
// generation; groups containing only these render as warnings.
var softKeywords = map[string]bool{
	"format":     true,
	"deprecated": true,
}

// suggestionForFailure maps a failed keyword to one actionable suggestion.
func suggestionForFailure(f FieldFailure) string {
	switch f.Keyword {
	case "required":
		return fmt.Sprintf("Add the required field '%v'", f.Params["missingProperty"])
	case "pattern":
		return fmt.Sprintf("Match the pattern: %v", f.Params["pattern"])
	case "enum":
		return fmt.Sprintf("Use one of the allowed values: %s", joinParamList(f.Params["allowedValues"]))
	case "type":
		return fmt.Sprintf("Change the value to type '%v'", f.Params["type"])
	case "minimum":
		return fmt.Sprintf("Use a value >= %v", f.Params["limit"])
	case "maximum":
		return fmt.Sprintf("Use a value <= %v", f.Params["limit"])
	case "minLength":
		return fmt.Sprintf("Use at least %v characters", f.Params["limit"])
	case "maxLength":
		return fmt.Sprintf("Use at most %v characters", f.Params["limit"])
	case "additionalProperties":
		return fmt.Sprintf("Remove the unexpected field '%v'", f.Params["additionalProperty"])
	case "uniqueItems":
		return "Remove duplicate entries from the array"
	case "format":
		return fmt.Sprintf("Use a value matching the '%v' format", f.Params["format"])
	default:
		if f.Message != "" {
			return fmt.Sprintf("Fix the '%s' violation: %s", f.Keyword, f.Message)
		}
		return fmt.Sprintf("Fix the '%s' violation at %s", f.Keyword, f.Pointer())
	}
}

func joinParamList(v any) string {
	switch list := v.(type) {
	case []string:
		return strings.Join(list, ", ")
	case []any:
		parts := make([]string, len(list))
		for i, item := range list {
			parts[i] = fmt.Sprintf("%v", item)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprintf("%v", v)
	}
}

// NewValidationError creates a validation record from field-level failures.
// One suggestion is synthesized per distinct failing keyword.
func NewValidationError(message string, failures []FieldFailure, opts Options) *ValidationError {
	if opts.Category == "" {
		opts.Category = CategoryValidation
	}
	opts.Recoverable = false

	rec := New(message, CodeValidationFailed, opts)

	seen := make(map[string]bool)
	for _, f := range failures {
		if seen[f.Keyword] {
			continue
		}
		seen[f.Keyword] = true
		rec.Solutions = append(rec.Solutions, suggestionForFailure(f))
	}
	if len(failures) > 0 {
		rec.AddContext("failure_count", len(failures))
		rec.AddContext("validation_failures", failures)
	}

	return &ValidationError{Record: rec, Failures: failures}
}

// Groups partitions the failures by document path, assigning each group a
// severity: warning when every failure in the group is soft, error otherwise.
// Groups are returned sorted by path for deterministic rendering.
func (e *ValidationError) Groups() []FailureGroup {
	return GroupFailures(e.Failures)
}

// GroupFailures partitions failures by JSON-Pointer path. It backs both
// ValidationError.Groups and the CLI formatter's sub-error rendering.
func GroupFailures(failures []FieldFailure) []FailureGroup {
	byPath := make(map[string][]FieldFailure)
	for _, f := range failures {
		p := f.Pointer()
		byPath[p] = append(byPath[p], f)
	}

	paths := make([]string, 0, len(byPath))
	for p := range byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	groups := make([]FailureGroup, 0, len(paths))
	for _, p := range paths {
		failures := byPath[p]
		severity := SeverityWarning
		for _, f := range failures {
			if !softKeywords[f.Keyword] {
				severity = SeverityError
				break
			}
		}
		groups = append(groups, FailureGroup{Path: p, Severity: severity, Failures: failures})
	}
	return groups
}

// FailuresForPath returns every failure whose pointer equals path.
func (e *ValidationError) FailuresForPath(path string) []FieldFailure {
	var out []FieldFailure
	for _, f := range e.Failures {
		if f.Pointer() == path {
			out = append(out, f)
		}
	}
	return out
}

// HasFailuresAt reports whether any failure points at path.
func (e *ValidationError) HasFailuresAt(path string) bool {
	return len(e.FailuresForPath(path)) > 0
}

// MergeValidationErrors combines several validation errors into one record,
// deduplicating identical failures. Returns nil when no input carries
// failures.
func MergeValidationErrors(errs ...*ValidationError) *ValidationError {
	var failures []FieldFailure
	seen := make(map[string]bool)
	var messages []string

	for _, e := range errs {
		if e == nil {
			continue
		}
		messages = append(messages, e.Message)
		for _, f := range e.Failures {
			key := f.Keyword + "|" + f.Path + "|" + f.Message
			if seen[key] {
				continue
			}
			seen[key] = true
			failures = append(failures, f)
		}
	}

	if len(failures) == 0 && len(messages) == 0 {
		return nil
	}

	msg := fmt.Sprintf("%d validation failures across %d errors", len(failures), len(messages))
	merged := NewValidationError(msg, failures, Options{})
	merged.AddContext("merged_from", len(messages))
	return merged
}
