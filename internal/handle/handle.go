// Package handle validates and normalizes account handles before they enter
// any pipeline stage or network call.
package handle

import "strings"

const maxLen = 15

// Normalize strips a leading @ and surrounding whitespace.
func Normalize(h string) string {
	return strings.TrimPrefix(strings.TrimSpace(h), "@")
}

// Valid reports whether h is a syntactically valid handle: 1-15 characters,
// ASCII letters, digits, underscore.
func Valid(h string) bool {
	if len(h) == 0 || len(h) > maxLen {
		return false
	}
	for i := 0; i < len(h); i++ {
		c := h[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_':
		default:
			return false
		}
	}
	return true
}

// Filter normalizes each entry and drops invalid or duplicate handles,
// preserving first-seen order.
func Filter(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	var out []string
	for _, r := range raw {
		h := Normalize(r)
		if !Valid(h) || seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
	}
	return out
}
