package tui

import (
	"regexp"
	"strings"
	"unicode"
)

const truncateIndicator = "..."

// truncate shortens text to maxLen runes, adding indicator if truncated.
func truncate(s string, maxLen int) string {
	s = safeString(s)
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= len(truncateIndicator) {
		return truncateIndicator
	}
	return string(r[:maxLen-len(truncateIndicator)]) + truncateIndicator
}

// safeString sanitizes model or user text for display by removing escape
// sequences and control characters and folding it onto one line.
func safeString(s string) string {
	// Remove ANSI escape sequences
	s = stripANSI(s)

	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			sb.WriteRune(' ')
		case !unicode.IsControl(r):
			sb.WriteRune(r)
		}
	}

	// Collapse runs of spaces
	return strings.Join(strings.Fields(sb.String()), " ")
}

// ansiRegex matches ANSI escape sequences.
var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// stripANSI removes ANSI escape sequences from a string.
func stripANSI(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}
