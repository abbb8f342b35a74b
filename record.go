package faults

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxCauseDepth caps the cause-chain walk so malformed or cyclic cause
// graphs cannot loop forever.
const maxCauseDepth = 32

// Location identifies where in a source or spec file an error occurred.
// Line and Column are 1-based; zero means unknown.
type Location struct {
	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// String formats the location as file:line:column, omitting unknown parts.
func (l Location) String() string {
	if l.File == "" {
		return ""
	}
	s := l.File
	if l.Line > 0 {
		s = fmt.Sprintf("%s:%d", s, l.Line)
		if l.Column > 0 {
			s = fmt.Sprintf("%s:%d", s, l.Column)
		}
	}
	return s
}

// KV is a single context entry. Context is kept as an ordered, append-only
// list so renderings are deterministic.
type KV struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// Metadata holds process and platform facts captured when a record is created.
type Metadata struct {
	Hostname  string `json:"hostname,omitempty"`
	PID       int    `json:"pid"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	GoVersion string `json:"go_version"`
}

// CauseEntry is one element of a record's cause chain.
type CauseEntry struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Options is the construction bundle for New. All fields are optional;
// zero values get sensible defaults (category inferred from the code prefix,
// severity "error").
type Options struct {
	// Category overrides prefix-based inference from the code.
	Category Category

	// Severity defaults to SeverityError.
	Severity Severity

	// Recoverable marks the failure as a candidate for recovery dispatch.
	Recoverable bool

	// Operation is the pipeline step that failed (e.g. "spec.Load",
	// "templates.Render"). It participates in the fingerprint.
	Operation string

	// UserMessage is an optional end-user friendly message shown instead of
	// Message in user-facing renderings.
	UserMessage string

	// DocsURL links to documentation for this failure.
	DocsURL string

	// Context is merged into the record's ordered context (sorted by key so
	// construction is deterministic).
	Context map[string]any

	// Cause is the underlying error; its own unwrap chain is walked (capped)
	// to build the record's cause chain.
	Cause error

	// Location identifies the offending file position, when known.
	// It participates in the fingerprint.
	Location *Location
}

// Record is the structured base error shared by all taxonomy variants.
//
// A Record is immutable after construction except for its context (append
// only via AddContext) and cause chain (append only via WithCause). The
// fingerprint is computed exactly once, at construction.
type Record struct {
	ID          string       `json:"id"`
	Code        string       `json:"code"`
	Category    Category     `json:"category"`
	Severity    Severity     `json:"severity"`
	Recoverable bool         `json:"recoverable"`
	Message     string       `json:"message"`
	UserMessage string       `json:"user_message,omitempty"`
	Operation   string       `json:"operation,omitempty"`
	Context     []KV         `json:"context,omitempty"`
	Metadata    Metadata     `json:"metadata"`
	CauseChain  []CauseEntry `json:"cause_chain,omitempty"`
	Fingerprint string       `json:"fingerprint"`
	Timestamp   time.Time    `json:"timestamp"`
	Location    *Location    `json:"location,omitempty"`

	// Solutions and Diagnostics are synthesized by the variant constructors
	// and rendered by the formatter bank.
	Solutions   []string `json:"solutions,omitempty"`
	Diagnostics []string `json:"diagnostics,omitempty"`
	DocsURL     string   `json:"docs_url,omitempty"`

	// Stack is the goroutine stack captured at construction. It is only
	// emitted by formatters when explicitly requested.
	Stack string `json:"-"`

	cause error
}

// Carrier is implemented by Record and every taxonomy variant. The central
// handler uses it to recognize values that already belong to the taxonomy.
type Carrier interface {
	error
	ErrorRecord() *Record
}

// New creates a classified Record at the point of failure.
//
// The code defaults to CodeUnknown when empty, the category is inferred
// from the code prefix when not supplied, and the fingerprint is computed
// once over (code, category, operation, file, line).
func New(message, code string, opts Options) *Record {
	if code == "" {
		code = CodeUnknown
	}
	category := opts.Category
	if category == "" {
		category = CategoryForCode(code)
	}
	severity := opts.Severity
	if severity == "" {
		severity = SeverityError
	}

	rec := &Record{
		ID:          newID(code),
		Code:        code,
		Category:    category,
		Severity:    severity,
		Recoverable: opts.Recoverable,
		Message:     message,
		UserMessage: opts.UserMessage,
		Operation:   opts.Operation,
		Metadata:    captureMetadata(),
		Timestamp:   time.Now().UTC(),
		Location:    opts.Location,
		DocsURL:     opts.DocsURL,
		Stack:       string(debug.Stack()),
		cause:       opts.Cause,
	}
	rec.Fingerprint = Fingerprint(code, category, opts.Operation, opts.Location)
	rec.CauseChain = buildCauseChain(opts.Cause)

	if len(opts.Context) > 0 {
		keys := make([]string, 0, len(opts.Context))
		for k := range opts.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			rec.Context = append(rec.Context, KV{Key: k, Value: opts.Context[k]})
		}
	}

	return rec
}

// ErrorRecord returns the record itself, satisfying Carrier.
func (e *Record) ErrorRecord() *Record { return e }

// Error implements the error interface.
// Format: "CODE [category/operation]: message: cause".
func (e *Record) Error() string {
	var parts []string
	if e.Operation != "" {
		parts = append(parts, fmt.Sprintf("%s [%s/%s]", e.Code, e.Category, e.Operation))
	} else {
		parts = append(parts, fmt.Sprintf("%s [%s]", e.Code, e.Category))
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.cause != nil {
		parts = append(parts, e.cause.Error())
	}
	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *Record) Unwrap() error { return e.cause }

// Is matches another *Record by code (and category when the target sets one),
// falling back to the underlying cause.
func (e *Record) Is(target error) bool {
	if t, ok := target.(*Record); ok {
		if t.Code != "" && e.Code == t.Code {
			return t.Category == "" || e.Category == t.Category
		}
		return false
	}
	return errors.Is(e.cause, target)
}

// As extracts the *Record from wrapped errors.
func (e *Record) As(target any) bool {
	t, ok := target.(**Record)
	if !ok {
		return false
	}
	*t = e
	return true
}

// AddContext appends one context entry. Context is append-only; existing
// keys are not replaced.
func (e *Record) AddContext(key string, value any) *Record {
	e.Context = append(e.Context, KV{Key: key, Value: value})
	return e
}

// ContextValue returns the most recently appended value for key.
func (e *Record) ContextValue(key string) (any, bool) {
	for i := len(e.Context) - 1; i >= 0; i-- {
		if e.Context[i].Key == key {
			return e.Context[i].Value, true
		}
	}
	return nil, false
}

// SetLocation records where the failure occurred. The fingerprint is not
// recomputed: it is fixed at construction.
func (e *Record) SetLocation(file string, line, column int) *Record {
	e.Location = &Location{File: file, Line: line, Column: column}
	return e
}

// WithCause attaches an underlying error and appends its unwrap chain
// (capped) to the record's cause chain.
func (e *Record) WithCause(err error) *Record {
	if err == nil {
		return e
	}
	if e.cause == nil {
		e.cause = err
	}
	e.CauseChain = append(e.CauseChain, buildCauseChain(err)...)
	if len(e.CauseChain) > maxCauseDepth {
		e.CauseChain = e.CauseChain[:maxCauseDepth]
	}
	return e
}

// WithUserMessage sets the end-user friendly message.
func (e *Record) WithUserMessage(msg string) *Record {
	e.UserMessage = msg
	return e
}

// WithSolutions appends remediation suggestions.
func (e *Record) WithSolutions(solutions ...string) *Record {
	e.Solutions = append(e.Solutions, solutions...)
	return e
}

// IsCategory reports whether the record belongs to the given category.
func (e *Record) IsCategory(category Category) bool { return e.Category == category }

// HasCode reports whether the record carries the given code.
func (e *Record) HasCode(code string) bool { return e.Code == code }

// Chain returns the record followed by every cause reachable through
// Unwrap, capped at maxCauseDepth entries.
func (e *Record) Chain() []error {
	chain := []error{e}
	cur := e.cause
	for cur != nil && len(chain) < maxCauseDepth {
		chain = append(chain, cur)
		cur = errors.Unwrap(cur)
	}
	return chain
}

/// newID generates a collision-resistant record id: code, creation time in
// milliseconds, and a random suffix.
func newID(code string) string {
	suffix := uuid.NewString()
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return fmt.Sprintf("%s-%d-%s", code, time.Now().UnixMilli(), suffix)
}

// captureMetadata records process and platform facts at creation time.
func captureMetadata() Metadata {
	host, _ := os.Hostname()
	return Metadata{
		Hostname:  host,
		PID:       os.Getpid(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		GoVersion: runtime.Version(),
	}
}

// buildCauseChain walks err's unwrap chain into serializable entries,
// capped at maxCauseDepth.
func buildCauseChain(err error) []CauseEntry {
	var chain []CauseEntry
	for err != nil && len(chain) < maxCauseDepth {
		entry := CauseEntry{
			Type:    fmt.Sprintf("%T", err),
			Message: err.Error(),
		}
		if c, ok := err.(Carrier); ok {
			entry.Code = c.ErrorRecord().Code
		}
		chain = append(chain, entry)
		err = errors.Unwrap(err)
	}
	return chain
}
