// Package ingest provides the Ingestion Agent for the agentic architecture.
// This agent consumes run requests and publishes the conversations of each run.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"insight-agent/src/broker"
	"insight-agent/src/contracts"
	"insight-agent/src/logger"
	"insight-agent/src/provider"
	"insight-agent/src/store"
)

// Agent consumes run requests and publishes conversation batches.
type Agent struct {
	broker broker.Broker
	source provider.Source
	store  store.Store
	logger logger.Logger
}

// NewAgent creates a new ingest agent.
func NewAgent(brk broker.Broker, src provider.Source, st store.Store, log logger.Logger) *Agent {
	return &Agent{
		broker: brk,
		source: src,
		store:  st,
		logger: log,
	}
}

// Run starts the agent's main loop.
// It subscribes to insight.requests and processes incoming run requests.
func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("[IngestAgent] Starting...")

	msgChan, err := a.broker.Subscribe(ctx, contracts.TopicRequests, "insight-ingest")
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", contracts.TopicRequests, err)
	}

	a.logger.Info("[IngestAgent] Listening for requests on '%s' topic...", contracts.TopicRequests)

	for {
		select {
		case msg, ok := <-msgChan:
			if !ok {
				a.logger.Info("[IngestAgent] Message channel closed, shutting down")
				return nil
			}

			if err := a.processRequest(ctx, msg); err != nil {
				a.logger.Error("[IngestAgent] Error processing request: %v", err)
			}

		case <-ctx.Done():
			a.logger.Info("[IngestAgent] Context cancelled, shutting down")
			return ctx.Err()
		}
	}
}

// processRequest fetches the conversations of one run and publishes them as a
// single batch, so the cluster agent sees every channel of the run together.
func (a *Agent) processRequest(ctx context.Context, msg broker.Message) error {
	var request contracts.RunRequest
	if err := json.Unmarshal(msg.Value, &request); err != nil {
		return fmt.Errorf("failed to unmarshal request: %w", err)
	}

	a.logger.Info("[IngestAgent] Processing run %s (%d channels, last %d days)",
		request.RunID, len(request.ChannelIDs), request.SinceDays)

	if err := a.setStatus(ctx, request.RunID, func(s *contracts.RunStatus) {
		s.Status = contracts.RunProcessing
	}); err != nil {
		a.logger.Warn("[IngestAgent] Could not mark run %s as processing: %v", request.RunID, err)
	}

	refs, err := provider.ParseChannelRefs(request.ChannelIDs)
	if err != nil {
		return a.fail(ctx, request.RunID, err)
	}

	since := time.Now().AddDate(0, 0, -request.SinceDays)
	conversations, err := a.source.FetchConversations(ctx, refs, since)
	if err != nil {
		return a.fail(ctx, request.RunID, fmt.Errorf("failed to fetch conversations: %w", err))
	}

	a.logger.Info("[IngestAgent] Fetched %d conversations for run %s", len(conversations), request.RunID)

	if err := a.setStatus(ctx, request.RunID, func(s *contracts.RunStatus) {
		s.Conversations = len(conversations)
	}); err != nil {
		a.logger.Warn("[IngestAgent] Could not record conversation count for run %s: %v", request.RunID, err)
	}

	data, err := json.Marshal(contracts.ConversationBatch{
		RunID:         request.RunID,
		DryRun:        request.DryRun,
		Conversations: conversations,
	})
	if err != nil {
		return a.fail(ctx, request.RunID, fmt.Errorf("failed to marshal conversations: %w", err))
	}

	if err := a.broker.Publish(ctx, contracts.TopicConversations, request.RunID, data); err != nil {
		return a.fail(ctx, request.RunID, fmt.Errorf("failed to publish conversations: %w", err))
	}

	a.logger.Info("[IngestAgent] Completed run %s ingestion", request.RunID)
	return nil
}

func (a *Agent) fail(ctx context.Context, runID string, cause error) error {
	if err := a.setStatus(ctx, runID, func(s *contracts.RunStatus) {
		s.Status = contracts.RunFailed
		s.Error = cause.Error()
	}); err != nil {
		a.logger.Warn("[IngestAgent] Could not mark run %s as failed: %v", runID, err)
	}
	return cause
}

func (a *Agent) setStatus(ctx context.Context, runID string, update func(*contracts.RunStatus)) error {
	status, err := a.store.GetRunStatus(ctx, runID)
	if err != nil {
		return err
	}
	update(status)
	return a.store.UpdateRunStatus(ctx, status)
}
