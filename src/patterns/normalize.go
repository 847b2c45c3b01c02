// Package patterns normalizes chat text for two purposes, using the same underlying
// patterns at different masking levels:
//   - MaskPrompt: the full text sent to the model (mentions resolved, secrets
//     redacted, everything else verbatim)
//   - MaskPresentation: compact text for manifests and tickets (long URLs
//     shortened, UUIDs masked, whitespace collapsed)
package patterns

import (
	"regexp"
	"strings"
)

// MaskingLevel controls how aggressively text is normalized.
type MaskingLevel int

const (
	// MaskPresentation keeps the text readable.
	// Example: <@81234> can't call https://api.example.com/v2/very/long/path → @user can't call https://api.example.com/...
	MaskPresentation MaskingLevel = iota

	// MaskPrompt only resolves mentions and redacts secrets. Paths, ids and
	// line breaks are what the model groups issues by.
	MaskPrompt
)

// Shared regex patterns - compiled once at package init.
var (
	// Discord mention markup: <@123>, <@!123>, <@&123>, <#123>
	userMentionPattern    = regexp.MustCompile(`<@!?\d+>`)
	roleMentionPattern    = regexp.MustCompile(`<@&\d+>`)
	channelMentionPattern = regexp.MustCompile(`<#\d+>`)

	// Custom emoji: <:name:123> and animated <a:name:123>
	customEmojiPattern = regexp.MustCompile(`<a?:(\w+):\d+>`)

	// Credentials users paste by accident: sk-..., Bearer tokens, lin_api_..., long base64-ish keys after "key"/"token"
	secretPattern = regexp.MustCompile(`(?i)\b(sk-[A-Za-z0-9_\-]{16,}|lin_api_[A-Za-z0-9]{16,}|bearer\s+[A-Za-z0-9._\-]{16,}|(?:api[_-]?key|token)\s*[:=]\s*[A-Za-z0-9._\-]{12,})`)

	// urlPattern captures scheme+host so long URLs can be shortened.
	urlPattern = regexp.MustCompile(`(https?://[^/\s]+)(/[^\s]*)?`)

	uuidPattern = regexp.MustCompile(`\b[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}\b`)

	whitespacePattern = regexp.MustCompile(`\s+`)
)

// maxURLPath is the longest URL path kept verbatim in presentation mode.
const maxURLPath = 40

// Normalize applies pattern normalization to a single piece of text.
func Normalize(text string, level MaskingLevel) string {
	// Core transforms - always apply
	text = resolveMentions(text)
	text = redactSecrets(text)

	if level == MaskPrompt {
		return strings.TrimSpace(text)
	}

	text = shortenURLs(text)
	text = uuidPattern.ReplaceAllString(text, "<UUID>")
	return normalizeWhitespace(text)
}

// NormalizeLines applies normalization to each line and drops lines that end up empty.
func NormalizeLines(lines []string, level MaskingLevel) []string {
	if len(lines) == 0 {
		return lines
	}

	result := make([]string, 0, len(lines))
	for _, line := range lines {
		if n := Normalize(line, level); n != "" {
			result = append(result, n)
		}
	}
	return result
}

// --- Core transforms (always applied) ---

func resolveMentions(text string) string {
	text = roleMentionPattern.ReplaceAllString(text, "@role")
	text = userMentionPattern.ReplaceAllString(text, "@user")
	text = channelMentionPattern.ReplaceAllString(text, "#channel")
	text = customEmojiPattern.ReplaceAllString(text, ":$1:")
	return text
}

func redactSecrets(text string) string {
	return secretPattern.ReplaceAllString(text, "<REDACTED>")
}

// --- Presentation-only transforms ---

// shortenURLs keeps the host and drops long paths.
// https://docs.example.com/a/very/long/path/that/goes/on → https://docs.example.com/...
func shortenURLs(text string) string {
	return urlPattern.ReplaceAllStringFunc(text, func(u string) string {
		m := urlPattern.FindStringSubmatch(u)
		if len(m[2]) <= maxURLPath {
			return u
		}
		return m[1] + "/..."
	})
}

// --- Shared cleanup ---

func normalizeWhitespace(text string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}
