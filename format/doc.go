// Package format is the formatter bank: pure renderers from an error
// record to one output representation.
//
// Five formats are provided and registered with the faults package at
// init, so any record can be serialized once this package is imported:
//
//   - CLI: a multi-line human-readable block with severity icon, grouped
//     sub-errors, numbered solutions and diagnostics
//   - JSON: a flat machine-readable object (stack only on request)
//   - HTML: a self-contained fragment with collapsible sections
//   - Markdown: heading plus key/value list, suitable for issue trackers
//   - Log: a single line for append-only log sinks
//
// All user-controlled text is escaped before being embedded in HTML.
package format
