// Package sanitize cleans chat message text before it reaches a prompt, a ticket or
// an MCP response. It removes terminal escape sequences that users paste from their
// consoles, stray carriage returns and other control characters.
package sanitize

import (
	"strings"
	"unicode"

	"github.com/charmbracelet/x/ansi"
)

// StripANSI removes ANSI escape sequences (colors, cursor movement, OSC strings).
func StripANSI(s string) string {
	return ansi.Strip(s)
}

// Clean strips escape sequences, normalizes line endings, drops control characters
// other than newline and tab, and trims surrounding whitespace.
func Clean(s string) string {
	s = StripANSI(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || r == '\u200b' || r == '\ufeff' {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// CleanLines applies Clean to each line and drops lines that end up empty.
func CleanLines(lines []string) []string {
	if len(lines) == 0 {
		return lines
	}
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if c := Clean(line); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// Truncate shortens s to at most max runes, appending "..." when cut.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
