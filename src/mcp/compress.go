package mcp

import (
	"regexp"
	"strings"

	"insight-agent/src/patterns"
	"insight-agent/src/sanitize"
)

// MaxQuoteRunes caps a single compressed quote.
const MaxQuoteRunes = 280

// timestampPattern matches leading timestamps users paste from logs:
// - 2024-05-21T10:00:05.123Z
// - 2024-05-21 10:00:05,123
// - 2024-05-21T10:00:05+00:00
var timestampPattern = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}[.,]?\d*Z?([+-]\d{2}:?\d{2})?\s*`)

// stripTimestamps removes timestamps from a quote.
func stripTimestamps(line string) string {
	return timestampPattern.ReplaceAllString(line, "")
}

// hashPattern matches hex strings of 12+ characters (request ids, git SHAs).
var hashPattern = regexp.MustCompile(`\b[a-f0-9]{12,}\b`)

func maskHashes(line string) string {
	return hashPattern.ReplaceAllString(line, "<HASH>")
}

// longPathPattern matches absolute paths with 3+ directories and keeps the last element.
var longPathPattern = regexp.MustCompile(`(^|\s)/(?:[^/\s]+/){3,}([^/\s:]+(?::\d+)?)`)

// compressPath shortens long file paths to .../filename.
func compressPath(line string) string {
	return longPathPattern.ReplaceAllString(line, "$1.../$2")
}

// CompressQuote makes a quote cheaper to send: presentation normalization,
// timestamps and hashes removed, long paths shortened, then truncated.
func CompressQuote(quote string) string {
	q := sanitize.Clean(quote)
	q = stripTimestamps(q)
	q = compressPath(q)
	q = maskHashes(q)
	q = patterns.Normalize(q, patterns.MaskPresentation)
	return sanitize.Truncate(q, MaxQuoteRunes)
}

// CompressQuotes compresses each quote and drops those that become duplicates
// or empty. Order is preserved.
func CompressQuotes(quotes []string) []string {
	seen := make(map[string]bool, len(quotes))
	out := make([]string, 0, len(quotes))
	for _, q := range quotes {
		c := CompressQuote(q)
		key := strings.ToLower(c)
		if c == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}
