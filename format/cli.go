package format

import (
	"fmt"
	"sort"
	"strings"

	"github.com/oasgen/faults"
)

// maxStackLines caps the stack excerpt emitted in debug CLI output.
const maxStackLines = 12

// CLI renders a record as a multi-line human-readable block: severity icon
// and message, code, category and operation, location, grouped sub-errors
// for validation records, numbered solutions and diagnostics, documentation
// link, and (debug mode only) a capped stack excerpt.
func CLI(rec *faults.Record, opts faults.RenderOptions) string {
	var b strings.Builder

	msg := rec.Message
	if rec.UserMessage != "" {
		msg = rec.UserMessage
	}
	fmt.Fprintf(&b, "%s %s\n", severityIcon(rec.Severity), msg)
	fmt.Fprintf(&b, "  Code:     %s\n", rec.Code)
	if rec.Operation != "" {
		fmt.Fprintf(&b, "  Category: %s (%s)\n", rec.Category, rec.Operation)
	} else {
		fmt.Fprintf(&b, "  Category: %s\n", rec.Category)
	}
	if rec.Location != nil && rec.Location.File != "" {
		fmt.Fprintf(&b, "  Location: %s\n", rec.Location)
	}

	if failures := validationFailures(rec); len(failures) > 0 {
		b.WriteString("  Sub-errors:\n")
		for _, group := range faults.GroupFailures(failures) {
			fmt.Fprintf(&b, "    %s [%s]\n", group.Path, group.Severity)
			for _, f := range group.Failures {
				detail := f.Message
				if detail == "" {
					detail = f.Keyword
				}
				fmt.Fprintf(&b, "      - %s: %s\n", f.Keyword, detail)
			}
		}
	}

	writeNumbered(&b, "Solutions", rec.Solutions)
	writeNumbered(&b, "Diagnostics", rec.Diagnostics)

	if len(rec.CauseChain) > 0 {
		b.WriteString("  Caused by:\n")
		for _, c := range rec.CauseChain {
			fmt.Fprintf(&b, "    - %s\n", c.Message)
		}
	}

	if rec.DocsURL != "" {
		fmt.Fprintf(&b, "  Docs:     %s\n", rec.DocsURL)
	}

	if opts.Debug && rec.Stack != "" {
		b.WriteString("  Stack:\n")
		lines := strings.Split(strings.TrimRight(rec.Stack, "\n"), "\n")
		if len(lines) > maxStackLines {
			lines = lines[:maxStackLines]
		}
		for _, line := range lines {
			fmt.Fprintf(&b, "    %s\n", line)
		}
	}

	return b.String()
}

// Summary renders a bulk-handling summary grouped by category.
func Summary(records []*faults.Record) string {
	if len(records) == 0 {
		return "no errors handled\n"
	}

	counts := make(map[faults.Category]int)
	for _, rec := range records {
		counts[rec.Category]++
	}
	categories := make([]string, 0, len(counts))
	for c := range counts {
		categories = append(categories, string(c))
	}
	sort.Strings(categories)

	var b strings.Builder
	fmt.Fprintf(&b, "%d errors in %d categories\n", len(records), len(counts))
	for _, c := range categories {
		fmt.Fprintf(&b, "  %s: %d\n", c, counts[faults.Category(c)])
	}
	return b.String()
}

func writeNumbered(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "  %s:\n", title)
	for i, item := range items {
		fmt.Fprintf(b, "    %d. %s\n", i+1, item)
	}
}

// validationFailures extracts field failures a validation constructor
// attached to the record's context.
func validationFailures(rec *faults.Record) []faults.FieldFailure {
	v, ok := rec.ContextValue("validation_failures")
	if !ok {
		return nil
	}
	failures, _ := v.([]faults.FieldFailure)
	return failures
}
