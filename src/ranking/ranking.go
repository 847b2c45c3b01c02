// Package ranking decides which clusters are significant enough to escalate and
// orders them for display. Both the engine and the presentation layers (MCP, TUI)
// consume this package so that significance is judged the same way everywhere.
package ranking

import (
	"sort"
	"strings"

	"insight-agent/src/contracts"
	"insight-agent/src/logger"
)

// Tier constants for accepted clusters.
const (
	TierVolume   = 1 // Accepted on quote volume alone
	TierFriction = 2 // Accepted because quotes mention a friction keyword
)

// DefaultFrictionKeywords are matched as lower-case substrings of the joined quotes.
var DefaultFrictionKeywords = []string{
	"error", "failed", "failing", "fails", "broken",
	"401", "403", "404", "500",
	"unauthorized", "forbidden", "denied", "invalid", "exception",
	"timeout", "crash", "bug",
	"confusing", "confused", "frustrating",
	"doesn't work", "not working", "stuck",
}

// Thresholds controls the significance test.
type Thresholds struct {
	// MinQuotes is the floor: clusters with fewer quotes are always rejected.
	MinQuotes int
	// EscalateQuotes accepts a cluster on volume alone.
	EscalateQuotes int
	// FrictionKeywords accept a cluster above the floor when any appears in its quotes.
	FrictionKeywords []string
}

// DefaultThresholds returns floor 3, volume 5 and the default keyword set.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinQuotes:        3,
		EscalateQuotes:   5,
		FrictionKeywords: append([]string(nil), DefaultFrictionKeywords...),
	}
}

// Verdict is the outcome of scoring a single cluster.
type Verdict struct {
	Accepted bool
	Tier     int    // TierVolume or TierFriction when accepted
	Keyword  string // matching keyword for TierFriction
	Reason   string
}

// Score applies the significance test to a cluster.
func (t Thresholds) Score(c contracts.Cluster) Verdict {
	n := len(c.Quotes)
	if n < t.MinQuotes {
		return Verdict{Reason: "below quote floor"}
	}
	if n >= t.EscalateQuotes {
		return Verdict{Accepted: true, Tier: TierVolume, Reason: "quote volume"}
	}
	if kw, ok := t.frictionKeyword(c.Quotes); ok {
		return Verdict{Accepted: true, Tier: TierFriction, Keyword: kw, Reason: "friction keyword"}
	}
	return Verdict{Reason: "no friction keyword"}
}

func (t Thresholds) frictionKeyword(quotes []string) (string, bool) {
	text := strings.ToLower(strings.Join(quotes, " "))
	for _, kw := range t.FrictionKeywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(text, kw) {
			return kw, true
		}
	}
	return "", false
}

// Filter splits clusters into accepted and rejected, both in input order,
// and logs every rejection.
func (t Thresholds) Filter(clusters []contracts.Cluster, log logger.Logger) (accepted, rejected []contracts.Cluster) {
	for _, c := range clusters {
		v := t.Score(c)
		if !v.Accepted {
			log.Info("[Significance] Rejected %q (%d quotes, %s)", c.Summary, len(c.Quotes), v.Reason)
			rejected = append(rejected, c)
			continue
		}
		log.Debug("[Significance] Accepted %q (%d quotes, %s)", c.Summary, len(c.Quotes), v.Reason)
		accepted = append(accepted, c)
	}
	return accepted, rejected
}

// RankedCluster wraps an accepted cluster with tier and rank information.
type RankedCluster struct {
	Cluster contracts.Cluster
	Index   int // Position in the input slice
	Tier    int
	Rank    int // Position within the flattened list (1-indexed)
}

// TieredClusters groups accepted clusters by tier, each tier sorted by quote count.
type TieredClusters struct {
	Volume   []RankedCluster
	Friction []RankedCluster
}

// RankClusters scores clusters, drops rejected ones and groups the rest by tier.
// Within a tier clusters are ordered by quote count (descending); ties keep input order.
func (t Thresholds) RankClusters(clusters []contracts.Cluster) TieredClusters {
	var tc TieredClusters
	for i, c := range clusters {
		v := t.Score(c)
		if !v.Accepted {
			continue
		}
		rc := RankedCluster{Cluster: c, Index: i, Tier: v.Tier}
		switch v.Tier {
		case TierVolume:
			tc.Volume = append(tc.Volume, rc)
		case TierFriction:
			tc.Friction = append(tc.Friction, rc)
		}
	}

	byQuotes := func(s []RankedCluster) {
		sort.SliceStable(s, func(i, j int) bool {
			return len(s[i].Cluster.Quotes) > len(s[j].Cluster.Quotes)
		})
	}
	byQuotes(tc.Volume)
	byQuotes(tc.Friction)
	return tc
}

// FlattenByTier returns volume clusters first, then friction clusters,
// and assigns a global rank (1-indexed).
func (tc TieredClusters) FlattenByTier() []RankedCluster {
	total := len(tc.Volume) + len(tc.Friction)
	if total == 0 {
		return nil
	}

	result := make([]RankedCluster, 0, total)
	result = append(result, tc.Volume...)
	result = append(result, tc.Friction...)
	for i := range result {
		result[i].Rank = i + 1
	}
	return result
}

// Counts returns the number of clusters in each tier.
func (tc TieredClusters) Counts() (volume, friction int) {
	return len(tc.Volume), len(tc.Friction)
}
