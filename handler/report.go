package handler

import (
	"encoding/json"
	"fmt"
	"html"
	"os"
	"strings"
	"time"

	"github.com/oasgen/faults"
	"github.com/oasgen/faults/aggregate"
)

// maxReportRecent bounds the recent-records section of a report.
const maxReportRecent = 100

// Report is the exportable summary of a handler session.
type Report struct {
	Generated time.Time         `json:"generated"`
	Uptime    string            `json:"uptime"`
	Stats     Stats             `json:"stats"`
	Groups    []aggregate.Group `json:"groups"`
	Recent    []ReportRecord    `json:"recent"`
}

// ReportRecord is the abbreviated per-record entry of a report.
type ReportRecord struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Message   string          `json:"message"`
	Category  faults.Category `json:"category"`
	Code      string          `json:"code"`
}

// BuildReport assembles a report from the handler's current state.
func (h *Handler) BuildReport() *Report {
	report := &Report{
		Generated: time.Now().UTC(),
		Uptime:    time.Since(h.started).Round(time.Millisecond).String(),
		Stats:     h.Stats(),
		Groups:    h.store.Groups(),
	}
	for _, rec := range h.store.Recent(maxReportRecent) {
		report.Recent = append(report.Recent, ReportRecord{
			ID:        rec.ID,
			Timestamp: rec.Timestamp,
			Message:   rec.Message,
			Category:  rec.Category,
			Code:      rec.Code,
		})
	}
	return report
}

// ExportReport writes the session report to path in the given format
// ("json", "markdown", or "html").
func (h *Handler) ExportReport(path string, f faults.Format) error {
	report := h.BuildReport()

	var (
		data []byte
		err  error
	)
	switch f {
	case faults.FormatJSON:
		data, err = json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
	case faults.FormatMarkdown:
		data = []byte(report.markdown())
	case faults.FormatHTML:
		data = []byte(report.html())
	default:
		return fmt.Errorf("unsupported report format: %s", f)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func (r *Report) markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Error Report\n\nGenerated: %s\nUptime: %s\n\n", r.Generated.Format(time.RFC3339), r.Uptime)

	fmt.Fprintf(&b, "## Statistics\n\n")
	fmt.Fprintf(&b, "- Total: %d\n", r.Stats.Total)
	fmt.Fprintf(&b, "- Recovered: %d\n", r.Stats.Recovered)
	fmt.Fprintf(&b, "- Fatal: %d\n", r.Stats.Fatal)
	fmt.Fprintf(&b, "- Rate limited: %d\n", r.Stats.RateLimited)
	fmt.Fprintf(&b, "- Groups: %d\n\n", r.Stats.Groups)

	if len(r.Groups) > 0 {
		b.WriteString("## Groups\n\n")
		b.WriteString("| Code | Category | Count | Message | First seen | Last seen |\n")
		b.WriteString("|------|----------|-------|---------|------------|----------|\n")
		for _, g := range r.Groups {
			fmt.Fprintf(&b, "| %s | %s | %d | %s | %s | %s |\n",
				g.Code, g.Category, g.Count, escapePipes(g.Message),
				g.FirstSeen.Format(time.RFC3339), g.LastSeen.Format(time.RFC3339))
		}
		b.WriteString("\n")
	}

	if len(r.Recent) > 0 {
		b.WriteString("## Recent Errors\n\n")
		for _, rec := range r.Recent {
			fmt.Fprintf(&b, "- `%s` [%s/%s] %s (%s)\n",
				rec.Timestamp.Format(time.RFC3339), rec.Category, rec.Code,
				rec.Message, rec.ID)
		}
	}

	return b.String()
}

func (r *Report) html() string {
	var b strings.Builder

	b.WriteString("<!DOCTYPE html>\n<html>\n<head><title>Error Report</title></head>\n<body>\n")
	fmt.Fprintf(&b, "<h1>Error Report</h1>\n<p>Generated: %s (uptime %s)</p>\n", r.Generated.Format(time.RFC3339), r.Uptime)

	b.WriteString("<h2>Statistics</h2>\n<ul>\n")
	fmt.Fprintf(&b, "<li>Total: %d</li>\n", r.Stats.Total)
	fmt.Fprintf(&b, "<li>Recovered: %d</li>\n", r.Stats.Recovered)
	fmt.Fprintf(&b, "<li>Fatal: %d</li>\n", r.Stats.Fatal)
	fmt.Fprintf(&b, "<li>Rate limited: %d</li>\n", r.Stats.RateLimited)
	fmt.Fprintf(&b, "<li>Groups: %d</li>\n", r.Stats.Groups)
	b.WriteString("</ul>\n")

	if len(r.Groups) > 0 {
		b.WriteString("<h2>Groups</h2>\n<table border=\"1\">\n")
		b.WriteString("<tr><th>Code</th><th>Category</th><th>Count</th><th>Message</th><th>First seen</th><th>Last seen</th></tr>\n")
		for _, g := range r.Groups {
			fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%d</td><td>%s</td><td>%s</td><td>%s</td></tr>\n",
				html.EscapeString(g.Code), html.EscapeString(string(g.Category)), g.Count,
				html.EscapeString(g.Message),
				g.FirstSeen.Format(time.RFC3339), g.LastSeen.Format(time.RFC3339))
		}
		b.WriteString("</table>\n")
	}

	if len(r.Recent) > 0 {
		b.WriteString("<h2>Recent Errors</h2>\n<ol>\n")
		for _, rec := range r.Recent {
			fmt.Fprintf(&b, "<li><code>%s</code> [%s/%s] %s</li>\n",
				rec.Timestamp.Format(time.RFC3339),
				html.EscapeString(string(rec.Category)), html.EscapeString(rec.Code),
				html.EscapeString(rec.Message))
		}
		b.WriteString("</ol>\n")
	}

	b.WriteString("</body>\n</html>\n")
	return b.String()
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
