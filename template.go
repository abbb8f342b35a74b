package faults

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// TemplateError carries the failing template's identity, a 1-based
// position, and fields extracted from the engine's raw error text.
// Template failures are never recoverable: the template has to change.
type TemplateError struct {
	*Record

	TemplateName string `json:"template_name"`
	TemplatePath string `json:"template_path,omitempty"`
	Engine       string `json:"engine,omitempty"`
	Line         int    `json:"line,omitempty"`
	Column       int    `json:"column,omitempty"`

	// Exactly one of the following is typically populated after parsing
	// the engine's raw error text.
	UndefinedVariable string `json:"undefined_variable,omitempty"`
	MissingHelper     string `json:"missing_helper,omitempty"`
	MissingPartial    string `json:"missing_partial,omitempty"`
}

// enginePatterns holds per-engine rules for extracting structure from raw
// error text.
type enginePatterns struct {
	position  *regexp.Regexp // groups: line, optional column
	undefined *regexp.Regexp // group 1: variable name
	helper    *regexp.Regexp // group 1: helper/function name
	partial   *regexp.Regexp // group 1: partial/template name
}

var engineRules = map[string]enginePatterns{
	"gotemplate": {
		position:  regexp.MustCompile(`template: [^:]*:(\d+)(?::(\d+))?`),
		undefined: regexp.MustCompile(`(?:undefined variable|map has no entry for key)[: ]+"\$?([^"]+)"`),
		helper:    regexp.MustCompile(`function "([^"]+)" not defined`),
		partial:   regexp.MustCompile(`no such template "([^"]+)"`),
	},
	"handlebars": {
		position:  regexp.MustCompile(`Parse error on line (\d+)`),
		undefined: regexp.MustCompile(`"([^"]+)" not defined`),
		helper:    regexp.MustCompile(`Missing helper: "([^"]+)"`),
		partial:   regexp.MustCompile(`The partial ([^\s]+) could not be found`),
	},
	"ejs": {
		position:  regexp.MustCompile(`ejs:(\d+)`),
		undefined: regexp.MustCompile(`(\w+) is not defined`),
	},
}

// genericPosition is the fallback position rule for unknown engines.
var genericPosition = regexp.MustCompile(`line[: ]+(\d+)(?:[,: ]+col(?:umn)?[: ]+(\d+))?`)

// NewTemplateError creates a template record, parsing the engine's raw
// error text into position and cause fields and synthesizing fix
// suggestions keyed to whichever field was extracted.
func NewTemplateError(name, path, engine, raw string, opts Options) *TemplateError {
	if opts.Category == "" {
		opts.Category = CategoryTemplate
	}
	opts.Recoverable = false

	msg := fmt.Sprintf("template %s failed", name)
	if raw != "" {
		msg = fmt.Sprintf("%s: %s", msg, strings.TrimSpace(raw))
	}

	te := &TemplateError{
		TemplateName: name,
		TemplatePath: path,
		Engine:       engine,
	}
	te.parseRaw(engine, raw)

	code := CodeTemplateRenderFailed
	if te.MissingPartial != "" {
		code = CodeTemplateNotFound
	} else if te.UndefinedVariable == "" && te.MissingHelper == "" && raw != "" {
		code = CodeTemplateSyntax
	}

	if te.Line > 0 && opts.Location == nil {
		opts.Location = &Location{File: path, Line: te.Line, Column: te.Column}
	}

	rec := New(msg, code, opts)
	rec.AddContext("template", name)
	if engine != "" {
		rec.AddContext("engine", engine)
	}
	te.Record = rec
	rec.Solutions = te.suggestions()

	return te
}

// parseRaw applies the per-engine pattern rules to the raw error text.
func (e *TemplateError) parseRaw(engine, raw string) {
	if raw == "" {
		return
	}

	rules, ok := engineRules[strings.ToLower(engine)]
	if !ok {
		rules = enginePatterns{position: genericPosition}
	}

	if rules.position != nil {
		if m := rules.position.FindStringSubmatch(raw); m != nil {
			e.Line, _ = strconv.Atoi(m[1])
			if len(m) > 2 && m[2] != "" {
				e.Column, _ = strconv.Atoi(m[2])
			}
		}
	}
	if rules.undefined != nil {
		if m := rules.undefined.FindStringSubmatch(raw); m != nil {
			e.UndefinedVariable = m[1]
		}
	}
	if rules.helper != nil {
		if m := rules.helper.FindStringSubmatch(raw); m != nil {
			e.MissingHelper = m[1]
		}
	}
	if rules.partial != nil {
		if m := rules.partial.FindStringSubmatch(raw); m != nil {
			e.MissingPartial = m[1]
		}
	}
}

// SourceContext loads the template source and returns a window of lines
// around the failing one, the failing line marked with ">". Returns nil
// when the path is unknown, unreadable, or the line is out of range.
func (e *TemplateError) SourceContext(radius int) []string {
	if e.TemplatePath == "" || e.Line <= 0 {
		return nil
	}
	data, err := os.ReadFile(e.TemplatePath)
	if err != nil {
		return nil
	}
	lines := strings.Split(string(data), "\n")
	if e.Line > len(lines) {
		return nil
	}

	start := e.Line - 1 - radius
	if start < 0 {
		start = 0
	}
	end := e.Line + radius
	if end > len(lines) {
		end = len(lines)
	}

	out := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		marker := "  "
		if i == e.Line-1 {
			marker = "> "
		}
		out = append(out, fmt.Sprintf("%s%4d | %s", marker, i+1, lines[i]))
	}
	return out
}

// suggestions synthesizes fixes keyed to whichever field the engine error
// parsing populated.
func (e *TemplateError) suggestions() []string {
	switch {
	case e.UndefinedVariable != "":
		v := e.UndefinedVariable
		return []string{
			fmt.Sprintf("Define '%s' in the template data model", v),
			fmt.Sprintf("Guard the reference: {{if .%s}}...{{end}}", v),
			fmt.Sprintf("Check '%s' for typos against the generator context", v),
			"Dump the available variables with the debug template flag",
		}
	case e.MissingHelper != "":
		h := e.MissingHelper
		return []string{
			fmt.Sprintf("Register the '%s' helper before rendering", h),
			fmt.Sprintf("Check '%s' for typos against the registered helper list", h),
			"Import the helper library the template set depends on",
			"Pin the template set to a generator version that ships this helper",
		}
	case e.MissingPartial != "":
		p := e.MissingPartial
		return []string{
			fmt.Sprintf("Add the partial '%s' to the template directory", p),
			fmt.Sprintf("Check the partial reference '%s' for typos", p),
			"Verify the template search path includes the partials directory",
		}
	default:
		return []string{
			"Check the template syntax near the reported line",
			"Validate the template with the engine's lint command",
			"Diff the template against the last known-good revision",
		}
	}
}
