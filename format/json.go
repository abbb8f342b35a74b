package format

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/oasgen/faults"
)

// payload is the wire shape of the JSON rendering. Field names follow the
// report contract consumed by pipeline tooling.
type payload struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Code        string              `json:"code"`
	Message     string              `json:"message"`
	UserMessage string              `json:"userMessage,omitempty"`
	Category    faults.Category     `json:"category"`
	Severity    faults.Severity     `json:"severity"`
	Recoverable bool                `json:"recoverable"`
	Operation   string              `json:"operation,omitempty"`
	Location    *faults.Location    `json:"location,omitempty"`
	Context     map[string]any      `json:"context,omitempty"`
	Metadata    faults.Metadata     `json:"metadata"`
	CauseChain  []faults.CauseEntry `json:"causeChain,omitempty"`
	Fingerprint string              `json:"fingerprint"`
	Timestamp   time.Time           `json:"timestamp"`
	Solutions   []string            `json:"solutions,omitempty"`
	Diagnostics []string            `json:"diagnostics,omitempty"`
	DocsURL     string              `json:"docsUrl,omitempty"`
	Stack       string              `json:"stack,omitempty"`
}

// JSON renders a record as a flat JSON object. The stack field is emitted
// only when RenderOptions.IncludeStack is set.
func JSON(rec *faults.Record, opts faults.RenderOptions) string {
	p := payload{
		ID:          rec.ID,
		Name:        displayName(rec.Category),
		Code:        rec.Code,
		Message:     rec.Message,
		UserMessage: rec.UserMessage,
		Category:    rec.Category,
		Severity:    rec.Severity,
		Recoverable: rec.Recoverable,
		Operation:   rec.Operation,
		Location:    rec.Location,
		Context:     ContextMap(rec),
		Metadata:    rec.Metadata,
		CauseChain:  rec.CauseChain,
		Fingerprint: rec.Fingerprint,
		Timestamp:   rec.Timestamp,
		Solutions:   rec.Solutions,
		Diagnostics: rec.Diagnostics,
		DocsURL:     rec.DocsURL,
	}
	if opts.IncludeStack {
		p.Stack = rec.Stack
	}

	data, err := json.Marshal(p)
	if err != nil {
		// Context values are caller-supplied and may not marshal.
		return fmt.Sprintf(`{"id":%q,"code":%q,"message":%q,"marshalError":%q}`,
			rec.ID, rec.Code, rec.Message, err.Error())
	}
	return string(data)
}

// ContextMap flattens the record's ordered context into a map for
// structured renderings; later entries win on duplicate keys.
func ContextMap(rec *faults.Record) map[string]any {
	if len(rec.Context) == 0 {
		return nil
	}
	m := make(map[string]any, len(rec.Context))
	for _, kv := range rec.Context {
		m[kv.Key] = kv.Value
	}
	return m
}
