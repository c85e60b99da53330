// Package strings has text helpers for single-line terminal output.
package strings

import (
	"strings"
)

// DefaultCellMaxLen is the widest free-text cell the CLI prints in tables.
const DefaultCellMaxLen = 60

// MinTruncateLen is the smallest useful maxLen: one character plus "...".
const MinTruncateLen = 4

// SingleLine collapses every run of whitespace, newlines included, into one space.
func SingleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate makes s a single line of at most maxLen runes, ending in "..."
// when shortened. maxLen below MinTruncateLen is raised to it.
func Truncate(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}
	s = SingleLine(s)
	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}
