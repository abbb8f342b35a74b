package format

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/oasgen/faults"
)

// Markdown renders a record as a heading, a key/value list, and fenced
// code blocks for context and stack — the shape issue trackers expect.
func Markdown(rec *faults.Record, opts faults.RenderOptions) string {
	var b strings.Builder

	msg := rec.Message
	if rec.UserMessage != "" {
		msg = rec.UserMessage
	}

	fmt.Fprintf(&b, "## %s %s\n\n", severityIcon(rec.Severity), msg)
	fmt.Fprintf(&b, "- **ID**: `%s`\n", rec.ID)
	fmt.Fprintf(&b, "- **Code**: `%s`\n", rec.Code)
	fmt.Fprintf(&b, "- **Category**: %s\n", rec.Category)
	fmt.Fprintf(&b, "- **Severity**: %s\n", rec.Severity)
	fmt.Fprintf(&b, "- **Recoverable**: %t\n", rec.Recoverable)
	fmt.Fprintf(&b, "- **Fingerprint**: `%s`\n", rec.Fingerprint)
	if rec.Operation != "" {
		fmt.Fprintf(&b, "- **Operation**: `%s`\n", rec.Operation)
	}
	if rec.Location != nil && rec.Location.File != "" {
		fmt.Fprintf(&b, "- **Location**: `%s`\n", rec.Location)
	}
	if rec.DocsURL != "" {
		fmt.Fprintf(&b, "- **Docs**: %s\n", rec.DocsURL)
	}

	if len(rec.Solutions) > 0 {
		b.WriteString("\n### Solutions\n\n")
		for i, s := range rec.Solutions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, s)
		}
	}
	if len(rec.Diagnostics) > 0 {
		b.WriteString("\n### Diagnostics\n\n")
		for i, d := range rec.Diagnostics {
			fmt.Fprintf(&b, "%d. %s\n", i+1, d)
		}
	}
	if len(rec.CauseChain) > 0 {
		b.WriteString("\n### Cause chain\n\n")
		for _, c := range rec.CauseChain {
			fmt.Fprintf(&b, "- %s\n", c.Message)
		}
	}

	if ctx := ContextMap(rec); len(ctx) > 0 {
		if pretty, err := json.MarshalIndent(ctx, "", "  "); err == nil {
			fmt.Fprintf(&b, "\n### Context\n\n```json\n%s\n```\n", string(pretty))
		}
	}

	if opts.IncludeStack && rec.Stack != "" {
		fmt.Fprintf(&b, "\n### Stack\n\n```\n%s\n```\n", strings.TrimRight(rec.Stack, "\n"))
	}

	return b.String()
}
