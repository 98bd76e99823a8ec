// Package shared provides small string helpers used by the adapters and
// the application layer.
package shared

import (
	"slices"
	"strings"
)

// NormalizePipName lowercases a Python package name and replaces
// underscores and dots with hyphens, following PEP 503 normalization.
func NormalizePipName(value string) string {
	lower := strings.ToLower(strings.TrimSpace(value))
	replacer := strings.NewReplacer("_", "-", ".", "-")
	return replacer.Replace(lower)
}

// AppendUnique appends the trimmed, non-blank values of extra to a copy of
// base, skipping values already present.
func AppendUnique(base, extra []string) []string {
	out := slices.Clone(base)
	for _, v := range extra {
		v = strings.TrimSpace(v)
		if v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
