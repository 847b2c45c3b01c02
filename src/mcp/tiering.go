package mcp

import (
	"fmt"
	"sort"
	"time"

	"insight-agent/src/insight"
	"insight-agent/src/ranking"
)

// Quote limits per tier.
// Tier 1 (accepted on volume) keeps the most quotes since it is what gets escalated.
// Tier 2/3 get progressively fewer since they're lower signal.
const (
	Tier1Quotes = 10
	Tier2Quotes = 5
	Tier3Quotes = 2
)

// Default finding limits per tier.
const (
	DefaultTier1Limit = 15
	DefaultTier2Limit = 5
	DefaultTier3Limit = 3
)

// ClusterID is the drill-down identifier of a cluster within one run: its
// position in the significant (c0, c1, ...) or rejected (r0, r1, ...) list.
func ClusterID(rejected bool, index int) string {
	if rejected {
		return fmt.Sprintf("r%d", index)
	}
	return fmt.Sprintf("c%d", index)
}

func quoteLimit(tier int) int {
	switch tier {
	case 1:
		return Tier1Quotes
	case 2:
		return Tier2Quotes
	default:
		return Tier3Quotes
	}
}

// toFinding builds a finding carrying every compressed quote.
func toFinding(id, summary, channel string, quotes []string, members int, v ranking.Verdict) ClusterFinding {
	return ClusterFinding{
		ID:         id,
		Summary:    summary,
		Channel:    channel,
		QuoteCount: len(quotes),
		Members:    members,
		Reason:     v.Reason,
		Keyword:    v.Keyword,
		Quotes:     CompressQuotes(quotes),
	}
}

// TierClusters groups a run result by significance tier.
// limit caps tier 1; tiers 2 and 3 get proportionally smaller limits.
// Within a tier clusters are ordered by quote count, ties in discovery order.
func TierClusters(runID string, res *insight.Result, t ranking.Thresholds, limit int) TieredResponse {
	tier1Limit := DefaultTier1Limit
	tier2Limit := DefaultTier2Limit
	tier3Limit := DefaultTier3Limit
	if limit > 0 && limit != DefaultTier1Limit {
		tier1Limit = limit
		tier2Limit = max(1, limit/3)
		tier3Limit = max(1, limit/5)
	}

	resp := TieredResponse{Run: runInfo(runID, res)}

	ranked := t.RankClusters(res.Clusters)
	for _, rc := range ranked.Volume {
		if len(resp.Tier1Volume) < tier1Limit {
			c := rc.Cluster
			resp.Tier1Volume = append(resp.Tier1Volume, toFinding(ClusterID(false, rc.Index), c.Summary, c.ChannelName, c.Quotes, c.Members, t.Score(c)))
		}
	}
	for _, rc := range ranked.Friction {
		if len(resp.Tier2Friction) < tier2Limit {
			c := rc.Cluster
			resp.Tier2Friction = append(resp.Tier2Friction, toFinding(ClusterID(false, rc.Index), c.Summary, c.ChannelName, c.Quotes, c.Members, t.Score(c)))
		}
	}

	order := make([]int, len(res.Rejected))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return len(res.Rejected[order[i]].Quotes) > len(res.Rejected[order[j]].Quotes)
	})
	for _, i := range order {
		if len(resp.Tier3Rejected) >= tier3Limit {
			break
		}
		c := res.Rejected[i]
		resp.Tier3Rejected = append(resp.Tier3Rejected, toFinding(ClusterID(true, i), c.Summary, c.ChannelName, c.Quotes, c.Members, t.Score(c)))
	}

	return resp
}

func runInfo(runID string, res *insight.Result) RunInfo {
	info := RunInfo{
		RunID:         runID,
		Conversations: res.Conversations,
		Batches:       res.Batches,
		Extracted:     res.Extracted,
		Noise:         res.Noise,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}
	for _, err := range res.BatchErrors {
		info.BatchErrors = append(info.BatchErrors, err.Error())
	}
	return info
}

// ToManifest expands tier 1 findings, capped at Tier1Quotes quotes each, and
// converts tiers 2-3 to summaries. The full findings stay in the store for
// get_cluster_details.
func ToManifest(resp TieredResponse) ManifestResponse {
	other := make([]ClusterSummary, 0, len(resp.Tier2Friction)+len(resp.Tier3Rejected))
	for _, f := range resp.Tier2Friction {
		other = append(other, toSummary(f, 2))
	}
	for _, f := range resp.Tier3Rejected {
		other = append(other, toSummary(f, 3))
	}

	tier1 := make([]ClusterFinding, len(resp.Tier1Volume))
	for i, f := range resp.Tier1Volume {
		tier1[i] = capQuotes(f, quoteLimit(1))
	}

	return ManifestResponse{
		RunID:         resp.Run.RunID,
		Run:           resp.Run,
		Tier1Findings: tier1,
		OtherFindings: other,
	}
}

func toSummary(f ClusterFinding, tier int) ClusterSummary {
	return ClusterSummary{
		ID:           f.ID,
		Tier:         tier,
		Summary:      f.Summary,
		Channel:      f.Channel,
		QuoteCount:   f.QuoteCount,
		SampleQuotes: capQuotes(f, quoteLimit(tier)).Quotes,
	}
}

// capQuotes returns a copy of f with at most limit quotes.
func capQuotes(f ClusterFinding, limit int) ClusterFinding {
	if len(f.Quotes) > limit {
		f.Quotes = append([]string(nil), f.Quotes[:limit]...)
	}
	return f
}
