package faults

import (
	"fmt"
	"sync"
)

// Format names one output representation a record can be rendered into.
type Format string

const (
	FormatCLI      Format = "cli"
	FormatJSON     Format = "json"
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
	FormatLog      Format = "log"
)

// RenderOptions tunes formatter output.
type RenderOptions struct {
	// Debug enables the capped stack excerpt in CLI output.
	Debug bool

	// IncludeStack emits the stack field in structured formats. Off by
	// default so machine-readable output stays compact.
	IncludeStack bool
}

// Renderer is a pure function from a record to one representation.
type Renderer func(*Record, RenderOptions) string

var (
	renderersMu sync.RWMutex
	renderers   = make(map[Format]Renderer)
)

// RegisterFormatter installs a renderer for a format, replacing any
// previous registration. The format package registers the standard bank
// at init; applications may override individual formats.
func RegisterFormatter(f Format, r Renderer) {
	renderersMu.Lock()
	defer renderersMu.Unlock()
	renderers[f] = r
}

// Serialize renders the record using the registered formatter.
// It returns an error for unknown formats.
func (e *Record) Serialize(f Format, opts RenderOptions) (string, error) {
	renderersMu.RLock()
	r, ok := renderers[f]
	renderersMu.RUnlock()
	if !ok {
		return "", fmt.Errorf("faults: no formatter registered for %q", f)
	}
	return r(e, opts), nil
}
