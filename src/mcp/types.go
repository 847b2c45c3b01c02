// Package mcp exposes the insight engine and the stored insights as MCP tools.
package mcp

// TieredResponse is the full result of one extract_insights call.
type TieredResponse struct {
	Run           RunInfo          `json:"run"`
	Tier1Volume   []ClusterFinding `json:"tier_1_volume"`
	Tier2Friction []ClusterFinding `json:"tier_2_friction"`
	Tier3Rejected []ClusterFinding `json:"tier_3_rejected"`
}

// RunInfo contains run metadata.
type RunInfo struct {
	RunID         string   `json:"run_id"`
	Conversations int      `json:"conversations"`
	Batches       int      `json:"batches"`
	Extracted     int      `json:"extracted_issues"`
	Noise         int      `json:"noise"`
	BatchErrors   []string `json:"batch_errors,omitempty"`
	Timestamp     string   `json:"timestamp"`
}

// ClusterFinding is a deduplicated issue ready for an LLM client.
type ClusterFinding struct {
	ID         string   `json:"id"`
	Summary    string   `json:"summary"`
	Channel    string   `json:"channel"`
	QuoteCount int      `json:"quote_count"`
	Members    int      `json:"members"`
	Reason     string   `json:"reason"`
	Keyword    string   `json:"keyword,omitempty"`
	Quotes     []string `json:"quotes"`
}

// ManifestResponse is what extract_insights returns: tier 1 in full,
// everything else summarized.
type ManifestResponse struct {
	RunID         string           `json:"run_id"`
	Run           RunInfo          `json:"run"`
	Tier1Findings []ClusterFinding `json:"tier_1_findings"`
	OtherFindings []ClusterSummary `json:"other_findings"`
}

// ClusterSummary is the lightweight form used in the manifest.
type ClusterSummary struct {
	ID           string   `json:"id"`
	Tier         int      `json:"tier"`
	Summary      string   `json:"summary"`
	Channel      string   `json:"channel"`
	QuoteCount   int      `json:"quote_count"`
	SampleQuotes []string `json:"sample_quotes"`
}
