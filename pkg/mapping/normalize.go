package mapping

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxPatternHeaderLength is the default length above which a header is only
// eligible for exact label matching. Longer cells are usually document titles
// that ended up in the header row.
const MaxPatternHeaderLength = 50

// Strict canonicalizes a header for exact label comparison: lowercase, trimmed
// and stripped of hyphens, underscores and whitespace.
func Strict(header string) string {
	lowered := strings.ToLower(strings.TrimSpace(header))
	return strings.Map(func(r rune) rune {
		if r == '-' || r == '_' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, lowered)
}

// Loose canonicalizes a header for pattern matching. Internal whitespace is kept.
func Loose(header string) string {
	return strings.ToLower(strings.TrimSpace(header))
}

// Eligible reports whether a header may take part in matching at all.
func Eligible(header string) bool {
	return strings.TrimSpace(header) != ""
}

func headerLength(header string) int {
	return utf8.RuneCountInString(strings.TrimSpace(header))
}
