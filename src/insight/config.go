package insight

import (
	"fmt"
	"math"
	"time"

	"insight-agent/src/cluster"
	"insight-agent/src/ranking"
)

// Config holds every tunable of the extraction and deduplication engine.
// It is constructed by the caller (normally src/config) and passed to NewEngine;
// the engine never reads the environment itself.
type Config struct {
	// Eps is the maximum cosine distance (1 - cosine similarity) between two
	// summaries for them to count as neighbours.
	// 0.3 corresponds to a cosine similarity of 0.7.
	// Default: 0.3
	Eps float64

	// MinSamples is the neighbourhood size (the point itself included) a summary
	// needs to anchor a cluster.
	// 1 = every issue surfaces, even singletons
	// 2 = an issue must be repeated at least once before it can form a cluster
	// Default: 2
	MinSamples int

	// MinQuotes is the significance floor. Clusters with fewer quotes are rejected.
	// Default: 3
	MinQuotes int

	// EscalateQuotes accepts a cluster on quote volume alone.
	// Default: 5
	EscalateQuotes int

	// FrictionKeywords accept a cluster between the two thresholds when any of them
	// appears in its quotes (case-insensitive substring match).
	FrictionKeywords []string

	// MaxBatchConversations caps how many conversations of one channel go into a
	// single extraction call. 0 sends the whole channel in one call.
	// Default: 0
	MaxBatchConversations int

	// PromptTokenBudget is the prompt size above which the extractor logs a warning.
	// The prompt is still sent. 0 disables the check.
	// Default: 100000
	PromptTokenBudget int

	// GenerateTimeout bounds each extraction call.
	// Default: 60 seconds
	GenerateTimeout time.Duration

	// EmbedTimeout bounds the single embedding call of a run.
	// Default: 30 seconds
	EmbedTimeout time.Duration
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		Eps:                   0.3,
		MinSamples:            2,
		MinQuotes:             3,
		EscalateQuotes:        5,
		FrictionKeywords:      append([]string(nil), ranking.DefaultFrictionKeywords...),
		MaxBatchConversations: 0,
		PromptTokenBudget:     100000,
		GenerateTimeout:       60 * time.Second,
		EmbedTimeout:          30 * time.Second,
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if math.IsNaN(c.Eps) || c.Eps < 0 || c.Eps > 2 {
		return fmt.Errorf("eps must be between 0.0 and 2.0 (got %.2f)", c.Eps)
	}
	if c.MinSamples < 1 {
		return fmt.Errorf("min_samples must be at least 1 (got %d)", c.MinSamples)
	}
	if c.MinQuotes < 1 {
		return fmt.Errorf("min_quotes must be at least 1 (got %d)", c.MinQuotes)
	}
	if c.EscalateQuotes < c.MinQuotes {
		return fmt.Errorf("escalate_quotes must be >= min_quotes (got %d < %d)", c.EscalateQuotes, c.MinQuotes)
	}
	if c.MaxBatchConversations < 0 {
		return fmt.Errorf("max_batch_conversations cannot be negative (got %d)", c.MaxBatchConversations)
	}
	if c.PromptTokenBudget < 0 {
		return fmt.Errorf("prompt_token_budget cannot be negative (got %d)", c.PromptTokenBudget)
	}
	if c.GenerateTimeout <= 0 {
		return fmt.Errorf("generate_timeout must be positive (got %v)", c.GenerateTimeout)
	}
	if c.EmbedTimeout <= 0 {
		return fmt.Errorf("embed_timeout must be positive (got %v)", c.EmbedTimeout)
	}
	return nil
}

// String returns a human-readable representation of the config
func (c Config) String() string {
	return fmt.Sprintf(
		"Config{Eps: %.2f, MinSamples: %d, MinQuotes: %d, EscalateQuotes: %d, "+
			"Keywords: %d, MaxBatch: %d, TokenBudget: %d, GenerateTimeout: %v, EmbedTimeout: %v}",
		c.Eps, c.MinSamples, c.MinQuotes, c.EscalateQuotes,
		len(c.FrictionKeywords), c.MaxBatchConversations, c.PromptTokenBudget,
		c.GenerateTimeout, c.EmbedTimeout,
	)
}

// ClusterParams returns the DBSCAN parameters.
func (c Config) ClusterParams() cluster.Params {
	return cluster.Params{Eps: c.Eps, MinSamples: c.MinSamples}
}

// Thresholds returns the significance policy.
func (c Config) Thresholds() ranking.Thresholds {
	return ranking.Thresholds{
		MinQuotes:        c.MinQuotes,
		EscalateQuotes:   c.EscalateQuotes,
		FrictionKeywords: c.FrictionKeywords,
	}
}
