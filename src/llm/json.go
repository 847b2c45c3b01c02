package llm

import (
	"regexp"
	"strings"
)

var codeFencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*\\n?(.*?)```")

// ExtractJSON returns the JSON object embedded in a model response.
// Markdown code fences and prose before or after the object are removed.
// It returns "" when the text holds no object.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)

	if m := codeFencePattern.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	start := strings.Index(text, "{")
	if start < 0 {
		return ""
	}
	end := matchingBrace(text, start)
	if end < 0 {
		return ""
	}
	return text[start : end+1]
}

// matchingBrace finds the brace closing the object opened at start,
// ignoring braces inside string literals.
func matchingBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
