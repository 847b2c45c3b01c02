package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"insight-agent/src/sanitize"
)

// VisualWidth is the number of terminal cells s occupies.
func VisualWidth(s string) int {
	return runewidth.StringWidth(s)
}

// Truncate cuts s to at most maxLen cells. With ellipsis, a cut string ends in "...".
func Truncate(s string, maxLen int, ellipsis bool) string {
	s = strings.TrimSpace(s)
	if maxLen <= 0 {
		return ""
	}
	if VisualWidth(s) <= maxLen {
		return s
	}
	if ellipsis && maxLen > 3 {
		return runewidth.Truncate(s, maxLen-3, "") + "..."
	}
	return runewidth.Truncate(s, maxLen, "")
}

// TruncateAndPad returns a cell of exactly width cells.
func TruncateAndPad(s string, width int, ellipsis bool) string {
	return runewidth.FillRight(Truncate(s, width, ellipsis), width)
}

// Wrap breaks text into lines of at most width cells, on spaces where possible.
// Words wider than a line are split.
func Wrap(text string, width int) string {
	words := strings.Fields(text)
	if width <= 0 || len(words) == 0 {
		return text
	}

	var lines []string
	line, lineWidth := "", 0
	flush := func() {
		if lineWidth > 0 {
			lines = append(lines, line)
		}
		line, lineWidth = "", 0
	}

	for _, word := range words {
		w := VisualWidth(word)
		switch {
		case w > width:
			flush()
			chunks := splitByWidth(word, width)
			lines = append(lines, chunks[:len(chunks)-1]...)
			line = chunks[len(chunks)-1]
			lineWidth = VisualWidth(line)
		case lineWidth == 0:
			line, lineWidth = word, w
		case lineWidth+1+w <= width:
			line += " " + word
			lineWidth += 1 + w
		default:
			flush()
			line, lineWidth = word, w
		}
	}
	flush()

	return strings.Join(lines, "\n")
}

// splitByWidth cuts s into pieces of at most width cells. A rune wider than
// width gets a piece of its own.
func splitByWidth(s string, width int) []string {
	var (
		chunks []string
		cur    strings.Builder
		curW   int
	)
	for _, r := range s {
		rw := runewidth.RuneWidth(r)
		if curW > 0 && curW+rw > width {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curW = 0
		}
		cur.WriteRune(r)
		curW += rw
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

// CleanDisplayText strips control sequences and folds the text onto one line.
func CleanDisplayText(s string) string {
	return strings.Join(strings.Fields(sanitize.Clean(s)), " ")
}
