package format

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/oasgen/faults"
)

// HTML renders a record as a self-contained fragment with collapsible
// sections for context and stack. Every user-controlled string is escaped
// before embedding.
func HTML(rec *faults.Record, opts faults.RenderOptions) string {
	esc := html.EscapeString
	var b strings.Builder

	msg := rec.Message
	if rec.UserMessage != "" {
		msg = rec.UserMessage
	}

	fmt.Fprintf(&b, `<div class="fault fault-%s">`+"\n", esc(string(rec.Severity)))
	fmt.Fprintf(&b, "<h3>%s %s</h3>\n", severityIcon(rec.Severity), esc(msg))
	b.WriteString("<dl>\n")
	writeDT(&b, "ID", rec.ID)
	writeDT(&b, "Name", displayName(rec.Category))
	writeDT(&b, "Code", rec.Code)
	writeDT(&b, "Category", string(rec.Category))
	writeDT(&b, "Severity", string(rec.Severity))
	writeDT(&b, "Recoverable", fmt.Sprintf("%t", rec.Recoverable))
	writeDT(&b, "Fingerprint", rec.Fingerprint)
	if rec.Operation != "" {
		writeDT(&b, "Operation", rec.Operation)
	}
	if rec.Location != nil && rec.Location.File != "" {
		writeDT(&b, "Location", rec.Location.String())
	}
	if rec.DocsURL != "" {
		writeDT(&b, "Docs", rec.DocsURL)
	}
	b.WriteString("</dl>\n")

	writeList(&b, "Solutions", rec.Solutions)
	writeList(&b, "Diagnostics", rec.Diagnostics)

	if len(rec.CauseChain) > 0 {
		b.WriteString("<details><summary>Cause chain</summary><ol>\n")
		for _, c := range rec.CauseChain {
			fmt.Fprintf(&b, "<li>%s</li>\n", esc(c.Message))
		}
		b.WriteString("</ol></details>\n")
	}

	if ctx := ContextMap(rec); len(ctx) > 0 {
		pretty, err := json.MarshalIndent(ctx, "", "  ")
		if err == nil {
			fmt.Fprintf(&b, "<details><summary>Context</summary><pre>%s</pre></details>\n", esc(string(pretty)))
		}
	}

	if opts.IncludeStack && rec.Stack != "" {
		fmt.Fprintf(&b, "<details><summary>Stack</summary><pre>%s</pre></details>\n", esc(rec.Stack))
	}

	b.WriteString("</div>\n")
	return b.String()
}

func writeDT(b *strings.Builder, key, value string) {
	fmt.Fprintf(b, "<dt>%s</dt><dd>%s</dd>\n", html.EscapeString(key), html.EscapeString(value))
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "<h4>%s</h4><ol>\n", html.EscapeString(title))
	for _, item := range items {
		fmt.Fprintf(b, "<li>%s</li>\n", html.EscapeString(item))
	}
	b.WriteString("</ol>\n")
}
