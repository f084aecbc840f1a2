package strings

import (
	"strings"
)

// DefaultDetailMaxLen is the width of free-text columns in table output,
// such as the error detail of a failed step.
const DefaultDetailMaxLen = 80

// MinTruncateLen is the smallest maxLen Truncate honours: one character plus
// "...".
const MinTruncateLen = 4

// Truncate flattens s to a single line and shortens it to maxLen runes,
// ending in "..." when anything was cut. Whitespace runs, including
// newlines, collapse to one space.
func Truncate(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}
