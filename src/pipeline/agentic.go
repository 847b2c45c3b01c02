package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"insight-agent/src/broker"
	"insight-agent/src/contracts"
	"insight-agent/src/provider"
	"insight-agent/src/store"
)

// AgenticPipeline submits runs to the agents through the broker and reads
// their progress from the store.
type AgenticPipeline struct {
	broker broker.Broker
	store  store.Store
}

// NewAgenticPipeline creates a new agentic pipeline.
func NewAgenticPipeline(brk broker.Broker, st store.Store) *AgenticPipeline {
	return &AgenticPipeline{broker: brk, store: st}
}

// Submit records the run and publishes the request. The run record is created
// first so the ingest agent always finds it.
func (p *AgenticPipeline) Submit(ctx context.Context, req contracts.RunRequest) (string, error) {
	if len(req.ChannelIDs) == 0 {
		return "", fmt.Errorf("cannot submit run: %w", provider.ErrMissingChannels)
	}

	if err := p.store.CreateRun(ctx, req.RunID, req.ChannelIDs); err != nil {
		return "", fmt.Errorf("failed to create run record: %w", err)
	}

	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	if err := p.broker.Publish(ctx, contracts.TopicRequests, req.RunID, data); err != nil {
		return "", fmt.Errorf("failed to publish request: %w", err)
	}

	return req.RunID, nil
}

// Status returns the current status of a run.
func (p *AgenticPipeline) Status(ctx context.Context, runID string) (*contracts.RunStatus, error) {
	return p.store.GetRunStatus(ctx, runID)
}

// Insights returns the insights filed for a run.
func (p *AgenticPipeline) Insights(ctx context.Context, runID string) ([]contracts.Insight, error) {
	return p.store.ListInsights(ctx, runID)
}

// Close shuts down the broker and the store.
func (p *AgenticPipeline) Close() error {
	if err := p.broker.Close(); err != nil {
		return err
	}
	return p.store.Close()
}
