package mcp

import (
	"errors"
	"fmt"
	"testing"

	"insight-agent/src/contracts"
	"insight-agent/src/insight"
	"insight-agent/src/ranking"
)

func quotes(n int, text string) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("'%s %d' - (from user%d)", text, i, i)
	}
	return out
}

func sampleResult() *insight.Result {
	return &insight.Result{
		Conversations: 20,
		Batches:       2,
		Extracted:     6,
		Noise:         1,
		BatchErrors:   []error{errors.New("batch 1 timed out")},
		Clusters: []contracts.Cluster{
			{Summary: "[Endpoint] 404 on /v2/users", ChannelName: "api", Quotes: quotes(3, "getting an error"), Members: 2},
			{Summary: "[Authentication] 401 on login", ChannelName: "auth", Quotes: quotes(12, "login"), Members: 4},
			{Summary: "[Rate Limiting] 429 after 10 calls", ChannelName: "api", Quotes: quotes(6, "slow down"), Members: 2},
		},
		Rejected: []contracts.Cluster{
			{Summary: "[General] dark mode please", ChannelName: "general", Quotes: quotes(1, "dark mode"), Members: 1},
			{Summary: "[Conceptual] what is a workspace", ChannelName: "general", Quotes: quotes(2, "what is"), Members: 2},
		},
	}
}

func TestTierClusters(t *testing.T) {
	resp := TierClusters("run-1", sampleResult(), ranking.DefaultThresholds(), 0)

	if len(resp.Tier1Volume) != 2 {
		t.Fatalf("expected 2 volume clusters, got %d", len(resp.Tier1Volume))
	}
	// Ordered by quote count.
	if resp.Tier1Volume[0].Summary != "[Authentication] 401 on login" {
		t.Errorf("expected largest cluster first, got %q", resp.Tier1Volume[0].Summary)
	}
	if resp.Tier1Volume[0].QuoteCount != 12 || len(resp.Tier1Volume[0].Quotes) != 12 {
		t.Errorf("expected all 12 quotes kept in the full response, got %d/%d",
			resp.Tier1Volume[0].QuoteCount, len(resp.Tier1Volume[0].Quotes))
	}

	if len(resp.Tier2Friction) != 1 || resp.Tier2Friction[0].Keyword != "error" {
		t.Errorf("expected one friction cluster matched on 'error', got %+v", resp.Tier2Friction)
	}

	if len(resp.Tier3Rejected) != 2 || resp.Tier3Rejected[0].Summary != "[Conceptual] what is a workspace" {
		t.Errorf("expected rejected clusters ordered by quote count, got %+v", resp.Tier3Rejected)
	}
	if resp.Tier3Rejected[0].Reason != "below quote floor" {
		t.Errorf("unexpected rejection reason %q", resp.Tier3Rejected[0].Reason)
	}

	if resp.Run.RunID != "run-1" || resp.Run.Conversations != 20 || len(resp.Run.BatchErrors) != 1 {
		t.Errorf("unexpected run info %+v", resp.Run)
	}
}

func TestTierClusters_Limits(t *testing.T) {
	resp := TierClusters("run-1", sampleResult(), ranking.DefaultThresholds(), 1)

	if len(resp.Tier1Volume) != 1 {
		t.Errorf("expected tier 1 capped at 1, got %d", len(resp.Tier1Volume))
	}
	if len(resp.Tier3Rejected) != 1 {
		t.Errorf("expected tier 3 capped at 1, got %d", len(resp.Tier3Rejected))
	}
}

func TestTierClusters_IDsAreUniquePerCluster(t *testing.T) {
	// Same text once numbers and paths are masked.
	res := &insight.Result{
		Clusters: []contracts.Cluster{
			{Summary: "[Endpoint] 404 on /v2/users/list", ChannelName: "api", Quotes: quotes(6, "not found")},
			{Summary: "[Endpoint] 500 on /v3/orders/export", ChannelName: "api", Quotes: quotes(5, "server error")},
		},
		Rejected: []contracts.Cluster{
			{Summary: "[Endpoint] 404 on /v2/users/7", ChannelName: "api", Quotes: quotes(1, "hm")},
		},
	}
	resp := TierClusters("run-1", res, ranking.DefaultThresholds(), 0)

	store := NewInMemoryStore()
	store.Store("run-1", resp)

	tests := []struct {
		id      string
		summary string
	}{
		{"c0", "[Endpoint] 404 on /v2/users/list"},
		{"c1", "[Endpoint] 500 on /v3/orders/export"},
		{"r0", "[Endpoint] 404 on /v2/users/7"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			f, ok := store.Get("run-1", tt.id)
			if !ok {
				t.Fatalf("cluster %s not found", tt.id)
			}
			if f.Summary != tt.summary {
				t.Errorf("cluster %s = %q, want %q", tt.id, f.Summary, tt.summary)
			}
		})
	}
}

func TestToManifest(t *testing.T) {
	manifest := ToManifest(TierClusters("run-1", sampleResult(), ranking.DefaultThresholds(), 0))

	if manifest.RunID != "run-1" {
		t.Errorf("RunID = %q", manifest.RunID)
	}
	if len(manifest.Tier1Findings) != 2 {
		t.Fatalf("expected 2 tier 1 findings, got %d", len(manifest.Tier1Findings))
	}
	if got := len(manifest.Tier1Findings[0].Quotes); got != Tier1Quotes {
		t.Errorf("expected tier 1 quotes capped at %d, got %d", Tier1Quotes, got)
	}
	if manifest.Tier1Findings[0].QuoteCount != 12 {
		t.Errorf("expected quote count to report the full cluster, got %d", manifest.Tier1Findings[0].QuoteCount)
	}

	if len(manifest.OtherFindings) != 3 {
		t.Fatalf("expected 3 summarized findings, got %d", len(manifest.OtherFindings))
	}
	if manifest.OtherFindings[0].Tier != 2 || len(manifest.OtherFindings[0].SampleQuotes) != 3 {
		t.Errorf("unexpected tier 2 summary %+v", manifest.OtherFindings[0])
	}
	if manifest.OtherFindings[1].Tier != 3 || len(manifest.OtherFindings[1].SampleQuotes) != Tier3Quotes {
		t.Errorf("unexpected tier 3 summary %+v", manifest.OtherFindings[1])
	}
}

func TestToManifest_DoesNotMutateResponse(t *testing.T) {
	resp := TierClusters("run-1", sampleResult(), ranking.DefaultThresholds(), 0)
	_ = ToManifest(resp)

	if len(resp.Tier1Volume[0].Quotes) != 12 {
		t.Errorf("manifest capping changed the stored response: %d quotes", len(resp.Tier1Volume[0].Quotes))
	}
}
