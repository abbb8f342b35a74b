package faults

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
)

// Fingerprint computes the short deterministic hash identifying "the same
// kind of failure" across occurrences. It hashes code:category:operation:
// file:line, omitting empty parts, so two records differing in any one
// field get different fingerprints.
//
// The fingerprint is computed once at construction and never recomputed.
func Fingerprint(code string, category Category, operation string, loc *Location) string {
	parts := make([]string, 0, 5)
	if code != "" {
		parts = append(parts, code)
	}
	if category != "" {
		parts = append(parts, string(category))
	}
	if operation != "" {
		parts = append(parts, operation)
	}
	if loc != nil {
		if loc.File != "" {
			parts = append(parts, loc.File)
		}
		if loc.Line > 0 {
			parts = append(parts, strconv.Itoa(loc.Line))
		}
	}

	h := fnv.New64a()
	h.Write([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("%016x", h.Sum64())
}
