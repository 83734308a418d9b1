// Package strings normalizes the free-text lists carried by request bodies:
// referentials, processes, markets and evidence file names.
package strings

import (
	"strings"
)

// DedupeAndTrim trims each value, drops blanks and repeats, and keeps the
// first occurrence order. The result is never nil so it encodes as [].
func DedupeAndTrim(values []string) []string {
	result := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}
