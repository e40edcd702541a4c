// Package textfold prepares free text for keyword matching.
package textfold

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Fold returns s in NFC with lower case letters, so "Flurstücke" and
// "FLURSTÜCKE" both match the pattern "flurstück".
func Fold(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}

// Join folds and concatenates parts with a single space.
func Join(parts ...string) string {
	folded := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			folded = append(folded, Fold(p))
		}
	}
	return strings.Join(folded, " ")
}

// ContainsAny reports whether folded text contains one of patterns.
// Patterns are folded too.
func ContainsAny(text string, patterns []string) bool {
	for _, p := range patterns {
		if p = Fold(strings.TrimSpace(p)); p != "" && strings.Contains(text, p) {
			return true
		}
	}
	return false
}
