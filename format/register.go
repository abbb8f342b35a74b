package format

import "github.com/oasgen/faults"

func init() {
	faults.RegisterFormatter(faults.FormatCLI, CLI)
	faults.RegisterFormatter(faults.FormatJSON, JSON)
	faults.RegisterFormatter(faults.FormatHTML, HTML)
	faults.RegisterFormatter(faults.FormatMarkdown, Markdown)
	faults.RegisterFormatter(faults.FormatLog, LogLine)
}

// severityIcon returns the glyph prefixing human-readable renderings.
func severityIcon(s faults.Severity) string {
	switch s {
	case faults.SeverityInfo:
		return "ℹ"
	case faults.SeverityWarning:
		return "⚠"
	case faults.SeverityFatal:
		return "☠"
	default:
		return "✖"
	}
}

// displayName maps a category to the record's human-facing type name.
func displayName(c faults.Category) string {
	switch c {
	case faults.CategoryValidation:
		return "ValidationError"
	case faults.CategoryFilesystem:
		return "FilesystemError"
	case faults.CategoryNetwork:
		return "NetworkError"
	case faults.CategoryTemplate:
		return "TemplateError"
	case faults.CategoryConfiguration:
		return "ConfigurationError"
	case faults.CategoryParsing:
		return "ParseError"
	case faults.CategoryFatal:
		return "FatalError"
	default:
		return "PipelineError"
	}
}
