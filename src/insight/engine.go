// Package insight turns raw support conversations into a small number of
// distinct, significant issues.
//
// A run groups conversations by channel, asks the generator once per batch for
// candidate issues, resolves their quotes, embeds every summary in one call,
// clusters the vectors with DBSCAN and keeps the clusters that pass the
// significance policy.
package insight

import (
	"context"
	"errors"
	"fmt"

	"insight-agent/src/cluster"
	"insight-agent/src/contracts"
	"insight-agent/src/llm"
	"insight-agent/src/logger"
	"insight-agent/src/ranking"
)

// ErrEmbedding wraps every failure of the embedding stage. It aborts the run.
var ErrEmbedding = errors.New("embedding failed")

// Embedder converts texts into vectors of a fixed dimension, one per text, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// TokenCounter estimates prompt size.
type TokenCounter interface {
	Count(text string) int
}

// Engine runs extraction, clustering and scoring. It keeps no state between
// runs and may be shared by concurrent callers.
type Engine struct {
	cfg        Config
	thresholds ranking.Thresholds
	gen        llm.Generator
	emb        Embedder
	tokens     TokenCounter
	log        logger.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithTokenCounter enables the prompt budget warning.
func WithTokenCounter(tc TokenCounter) Option {
	return func(e *Engine) { e.tokens = tc }
}

// NewEngine validates cfg and wires the two collaborators.
func NewEngine(cfg Config, gen llm.Generator, emb Embedder, log logger.Logger, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	if gen == nil || emb == nil {
		return nil, errors.New("engine requires a generator and an embedder")
	}
	if log == nil {
		log = logger.NewSilentLogger()
	}

	e := &Engine{
		cfg:        cfg,
		thresholds: cfg.Thresholds(),
		gen:        gen,
		emb:        emb,
		log:        log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Result is the outcome of one run.
type Result struct {
	// Clusters accepted by the significance policy, in cluster discovery order.
	Clusters []contracts.Cluster
	// Rejected clusters, kept for reporting.
	Rejected []contracts.Cluster

	Conversations int
	Batches       int
	Extracted     int // issues that survived quote resolution
	Noise         int // issues that joined no cluster

	// BatchErrors holds one *ExtractionError per abandoned batch.
	BatchErrors []error
}

// Run processes conversations end to end. Only an embedding failure (or context
// cancellation before embedding) returns an error; failed batches are logged
// and reported in Result.BatchErrors.
func (e *Engine) Run(ctx context.Context, conversations []contracts.Conversation) (*Result, error) {
	res := &Result{Conversations: len(conversations)}
	if len(conversations) == 0 {
		e.log.Info("[Engine] No conversations to process")
		return res, nil
	}

	issues, batches, batchErrs := e.Extract(ctx, conversations)
	res.Batches = batches
	res.BatchErrors = batchErrs
	res.Extracted = len(issues)

	if len(issues) == 0 {
		e.log.Info("[Engine] No actionable issues identified in any channel")
		return res, nil
	}

	clusters, noise, err := e.Cluster(ctx, issues)
	if err != nil {
		return nil, err
	}
	res.Noise = noise

	res.Clusters, res.Rejected = e.thresholds.Filter(clusters, e.log)

	e.log.Info("[Engine] %d conversations -> %d issues -> %d clusters (%d noise) -> %d significant",
		len(conversations), len(issues), len(clusters), noise, len(res.Clusters))
	return res, nil
}

// Extract runs grouping, one generator call per batch and quote resolution.
// It returns the extracted issues, the number of batches attempted and the
// errors of abandoned batches.
func (e *Engine) Extract(ctx context.Context, conversations []contracts.Conversation) ([]contracts.ExtractedIssue, int, []error) {
	groups := GroupByChannel(conversations)
	batches := Batches(groups, e.cfg.MaxBatchConversations)
	e.log.Info("[Engine] Grouped %d conversations into %d channels (%d batches)", len(conversations), len(groups), len(batches))

	var (
		issues []contracts.ExtractedIssue
		errs   []error
	)
	for _, batch := range batches {
		e.log.Info("[Extractor] Processing %q batch %d (%d conversations)", batch.Ref.Channel, batch.Ref.Seq, batch.Ref.Size)

		candidates, err := e.extractBatch(ctx, batch)
		if err != nil {
			e.log.Error("[Extractor] %v", err)
			errs = append(errs, err)
			continue
		}

		kept := 0
		for _, cand := range candidates {
			issue, ok := ResolveQuotes(cand, batch.Conversations)
			if !ok {
				e.log.Debug("[Resolver] Dropped %q: no valid conversation indices %v", cand.Summary, cand.ConversationIndices)
				continue
			}
			issues = append(issues, issue)
			kept++
		}
		e.log.Debug("[Extractor] %q batch %d: %d candidates, %d kept", batch.Ref.Channel, batch.Ref.Seq, len(candidates), kept)
	}

	return issues, len(batches), errs
}

// Cluster embeds the issue summaries in one call and merges them with DBSCAN.
// It returns every cluster (unscored) and the number of noise issues.
func (e *Engine) Cluster(ctx context.Context, issues []contracts.ExtractedIssue) ([]contracts.Cluster, int, error) {
	if len(issues) == 0 {
		return nil, 0, nil
	}

	summaries := make([]string, len(issues))
	for i, issue := range issues {
		summaries[i] = issue.Summary
	}

	e.log.Info("[Engine] Embedding %d issue summaries", len(summaries))
	vectors, err := e.embed(ctx, summaries)
	if err != nil {
		return nil, 0, err
	}

	labels, err := cluster.DBSCAN(vectors, e.cfg.ClusterParams())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to cluster issues: %w", err)
	}

	noise := 0
	for _, l := range labels {
		if l == cluster.Noise {
			noise++
		}
	}

	clusters, err := cluster.Merge(issues, labels)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to merge clusters: %w", err)
	}
	return clusters, noise, nil
}

func (e *Engine) embed(ctx context.Context, texts []string) ([][]float32, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.EmbedTimeout)
	defer cancel()

	vectors, err := e.emb.Embed(callCtx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrEmbedding, len(vectors), len(texts))
	}
	return vectors, nil
}
