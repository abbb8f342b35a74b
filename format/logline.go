package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/oasgen/faults"
)

// LogLine renders a record as a single append-friendly line:
//
//	timestamp [SEVERITY] [CODE] message at file:line:col (operation)
func LogLine(rec *faults.Record, _ faults.RenderOptions) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s [%s] [%s] %s",
		rec.Timestamp.Format(time.RFC3339),
		strings.ToUpper(string(rec.Severity)),
		rec.Code,
		rec.Message)

	if rec.Location != nil && rec.Location.File != "" {
		fmt.Fprintf(&b, " at %s", rec.Location)
	}
	if rec.Operation != "" {
		fmt.Fprintf(&b, " (%s)", rec.Operation)
	}

	return b.String()
}
