package format

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/oasgen/faults"
)

// TestCLI verifies the human-readable block layout.
func TestCLI(t *testing.T) {
	rec := faults.New("output directory is not writable", faults.CodeFilePermission, faults.Options{
		Operation: "output.Write",
		Location:  &faults.Location{File: "gen/config.yaml", Line: 12},
		Cause:     errors.New("permission denied"),
		DocsURL:   "https://oasgen.dev/errors/file-permission",
	})
	rec.WithSolutions("chmod u+rw gen", "choose another output directory")
	rec.Diagnostics = []string{"ls -la gen"}

	out := CLI(rec, faults.RenderOptions{})

	for _, want := range []string{
		"✖ output directory is not writable",
		"Code:     FILE_PERMISSION_DENIED",
		"Category: filesystem (output.Write)",
		"Location: gen/config.yaml:12",
		"Solutions:",
		"1. chmod u+rw gen",
		"2. choose another output directory",
		"Diagnostics:",
		"1. ls -la gen",
		"Caused by:",
		"- permission denied",
		"Docs:     https://oasgen.dev/errors/file-permission",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("CLI output missing %q:\n%s", want, out)
		}
	}

	if strings.Contains(out, "Stack:") {
		t.Error("stack emitted without debug mode")
	}

	debug := CLI(rec, faults.RenderOptions{Debug: true})
	if !strings.Contains(debug, "Stack:") {
		t.Error("stack missing in debug mode")
	}
	_, stackPart, found := strings.Cut(debug, "  Stack:\n")
	if !found {
		t.Fatal("stack section missing")
	}
	stackLines := 0
	for _, line := range strings.Split(stackPart, "\n") {
		if strings.HasPrefix(line, "    ") {
			stackLines++
		}
	}
	if stackLines > maxStackLines {
		t.Errorf("stack excerpt = %d lines, want <= %d", stackLines, maxStackLines)
	}
}

// TestCLIUserMessage verifies the end-user message takes precedence.
func TestCLIUserMessage(t *testing.T) {
	rec := faults.New("EACCES on openat", faults.CodeFilePermission, faults.Options{
		UserMessage: "The output directory is not writable.",
	})

	out := CLI(rec, faults.RenderOptions{})
	if !strings.Contains(out, "The output directory is not writable.") {
		t.Errorf("user message not rendered:\n%s", out)
	}
	if strings.Contains(strings.SplitN(out, "\n", 2)[0], "EACCES") {
		t.Error("internal message rendered in the headline")
	}
}

// TestCLIValidationSubErrors verifies grouped sub-error rendering.
func TestCLIValidationSubErrors(t *testing.T) {
	ve := faults.NewValidationError("spec failed validation", []faults.FieldFailure{
		{Keyword: "required", Path: "/pet", Message: "must have required property 'name'",
			Params: map[string]any{"missingProperty": "name"}},
		{Keyword: "format", Path: "/pet/created", Message: "must match format date-time",
			Params: map[string]any{"format": "date-time"}},
	}, faults.Options{})

	out := CLI(ve.Record, faults.RenderOptions{})

	for _, want := range []string{
		"Sub-errors:",
		"/pet [error]",
		"- required: must have required property 'name'",
		"/pet/created [warning]",
		"- format: must match format date-time",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("CLI output missing %q:\n%s", want, out)
		}
	}
}

// TestJSON verifies the wire shape and the stack gate.
func TestJSON(t *testing.T) {
	rec := faults.New("fetch failed", faults.CodeNetworkServerError, faults.Options{
		Operation: "spec.Fetch",
		Context:   map[string]any{"url": "https://specs.example.com/api.yaml"},
	})

	out := JSON(rec, faults.RenderOptions{})

	var decoded map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, out)
	}

	checks := map[string]any{
		"name":        "NetworkError",
		"code":        "NETWORK_SERVER_ERROR",
		"category":    "network",
		"severity":    "error",
		"message":     "fetch failed",
		"operation":   "spec.Fetch",
		"fingerprint": rec.Fingerprint,
		"id":          rec.ID,
	}
	for key, want := range checks {
		if decoded[key] != want {
			t.Errorf("%s = %v, want %v", key, decoded[key], want)
		}
	}

	if _, ok := decoded["stack"]; ok {
		t.Error("stack emitted without IncludeStack")
	}

	ctx, ok := decoded["context"].(map[string]any)
	if !ok || ctx["url"] != "https://specs.example.com/api.yaml" {
		t.Errorf("context = %v", decoded["context"])
	}

	withStack := JSON(rec, faults.RenderOptions{IncludeStack: true})
	decoded = map[string]any{}
	if err := json.Unmarshal([]byte(withStack), &decoded); err != nil {
		t.Fatal(err)
	}
	if s, ok := decoded["stack"].(string); !ok || s == "" {
		t.Error("stack missing with IncludeStack")
	}
}

// TestJSONMarshalFallback verifies unmarshalable context degrades to the
// minimal literal instead of failing.
func TestJSONMarshalFallback(t *testing.T) {
	rec := faults.New("bad context", faults.CodeUnknown, faults.Options{})
	rec.AddContext("fn", func() {}) // functions do not marshal

	out := JSON(rec, faults.RenderOptions{})

	var decoded map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("fallback output is not valid JSON: %v\n%s", err, out)
	}
	if decoded["marshalError"] == nil {
		t.Error("fallback lacks marshalError")
	}
	if decoded["code"] != faults.CodeUnknown {
		t.Errorf("fallback code = %v", decoded["code"])
	}
}

// TestHTMLEscaping verifies caller-controlled text cannot inject markup.
func TestHTMLEscaping(t *testing.T) {
	rec := faults.New(`<script>alert("x")</script>`, faults.CodeUnknown, faults.Options{})
	rec.WithSolutions(`use <b>safe</b> values`)

	out := HTML(rec, faults.RenderOptions{})

	if strings.Contains(out, "<script>") {
		t.Error("message not escaped")
	}
	if !strings.Contains(out, "&lt;script&gt;") {
		t.Error("escaped message missing")
	}
	if strings.Contains(out, "<b>safe</b>") {
		t.Error("solution not escaped")
	}
	if !strings.Contains(out, `class="fault fault-error"`) {
		t.Errorf("severity class missing:\n%s", out)
	}
}

// TestMarkdown verifies the structural elements.
func TestMarkdown(t *testing.T) {
	rec := faults.New("template failed", faults.CodeTemplateSyntax, faults.Options{
		Operation: "templates.Render",
	})
	rec.WithSolutions("check the syntax near line 3")

	out := Markdown(rec, faults.RenderOptions{})

	for _, want := range []string{
		"## ",
		"**Code**: `TEMPLATE_SYNTAX_ERROR`",
		"1. check the syntax near line 3",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Markdown output missing %q:\n%s", want, out)
		}
	}
}

// TestLogLine verifies the single-line form.
func TestLogLine(t *testing.T) {
	rec := faults.New("spec unreadable", faults.CodeFileNotFound, faults.Options{
		Operation: "spec.Load",
		Location:  &faults.Location{File: "api.yaml", Line: 1},
	})

	out := LogLine(rec, faults.RenderOptions{})

	if strings.Contains(out, "\n") {
		t.Error("log line contains a newline")
	}
	for _, want := range []string{"[ERROR]", "[FILE_NOT_FOUND]", "spec unreadable", "at api.yaml:1", "(spec.Load)"} {
		if !strings.Contains(out, want) {
			t.Errorf("log line missing %q: %s", want, out)
		}
	}
}

// TestSerializeRegistration verifies the init-time formatter bank is wired
// into the root package.
func TestSerializeRegistration(t *testing.T) {
	rec := faults.New("m", faults.CodeUnknown, faults.Options{})

	for _, f := range []faults.Format{
		faults.FormatCLI, faults.FormatJSON, faults.FormatHTML,
		faults.FormatMarkdown, faults.FormatLog,
	} {
		if _, err := rec.Serialize(f, faults.RenderOptions{}); err != nil {
			t.Errorf("Serialize(%s) error: %v", f, err)
		}
	}

	if _, err := rec.Serialize("yaml", faults.RenderOptions{}); err == nil {
		t.Error("Serialize accepted an unregistered format")
	}
}

// TestSummary verifies the bulk category breakdown.
func TestSummary(t *testing.T) {
	records := []*faults.Record{
		faults.New("a", faults.CodeValidationFailed, faults.Options{}),
		faults.New("b", faults.CodeValidationFailed, faults.Options{}),
		faults.New("c", faults.CodeNetworkTimeout, faults.Options{}),
	}

	out := Summary(records)
	for _, want := range []string{"3 errors in 2 categories", "validation: 2", "network: 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}

	if got := Summary(nil); got != "no errors handled\n" {
		t.Errorf("empty summary = %q", got)
	}
}
