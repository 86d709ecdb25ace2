package strings

import (
	"strings"
)

// DefaultCellMaxLen is the widest value shown in a table cell.
const DefaultCellMaxLen = 100

// MinTruncateLen is the smallest maxLen Truncate honours; one character
// plus "...".
const MinTruncateLen = 4

// Truncate collapses whitespace in s to single spaces and shortens it to
// maxLen runes, ending with "..." when anything was cut.
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
