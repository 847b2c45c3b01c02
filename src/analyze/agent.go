// Package analyze provides the Analysis Agent for the distributed architecture.
// This agent consumes conversation batches, runs the insight engine and
// publishes every significant cluster.
package analyze

import (
	"context"
	"encoding/json"
	"fmt"

	"insight-agent/src/broker"
	"insight-agent/src/contracts"
	"insight-agent/src/insight"
	"insight-agent/src/logger"
	"insight-agent/src/store"
)

// Runner is the engine entry point the agent needs.
type Runner interface {
	Run(ctx context.Context, conversations []contracts.Conversation) (*insight.Result, error)
}

// Agent consumes conversation batches and publishes accepted clusters.
type Agent struct {
	broker broker.Broker
	engine Runner
	store  store.Store
	logger logger.Logger
}

// NewAgent creates a new analyze agent.
func NewAgent(brk broker.Broker, engine Runner, st store.Store, log logger.Logger) *Agent {
	return &Agent{
		broker: brk,
		engine: engine,
		store:  st,
		logger: log,
	}
}

// Run starts the agent's main loop.
// It subscribes to insight.conversations and processes incoming batches.
func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("[AnalyzeAgent] Starting...")

	msgChan, err := a.broker.Subscribe(ctx, contracts.TopicConversations, "insight-analyze")
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", contracts.TopicConversations, err)
	}

	a.logger.Info("[AnalyzeAgent] Listening for conversations on '%s' topic...", contracts.TopicConversations)

	for {
		select {
		case msg, ok := <-msgChan:
			if !ok {
				a.logger.Info("[AnalyzeAgent] Message channel closed, shutting down")
				return nil
			}

			if err := a.processBatch(ctx, msg); err != nil {
				a.logger.Error("[AnalyzeAgent] Error processing batch: %v", err)
			}

		case <-ctx.Done():
			a.logger.Info("[AnalyzeAgent] Context cancelled, shutting down")
			return ctx.Err()
		}
	}
}

// processBatch runs the engine over one run's conversations.
func (a *Agent) processBatch(ctx context.Context, msg broker.Message) error {
	var batch contracts.ConversationBatch
	if err := json.Unmarshal(msg.Value, &batch); err != nil {
		return fmt.Errorf("failed to unmarshal conversations: %w", err)
	}

	a.logger.Info("[AnalyzeAgent] Analyzing %d conversations for run %s", len(batch.Conversations), batch.RunID)

	result, err := a.engine.Run(ctx, batch.Conversations)
	if err != nil {
		a.updateRun(ctx, batch.RunID, func(s *contracts.RunStatus) {
			s.Status = contracts.RunFailed
			s.Error = err.Error()
		})
		return fmt.Errorf("engine failed for run %s: %w", batch.RunID, err)
	}

	total := len(result.Clusters)
	a.logger.Info("[AnalyzeAgent] Run %s: %d significant clusters (%d rejected, %d failed batches)",
		batch.RunID, total, len(result.Rejected), len(result.BatchErrors))

	a.updateRun(ctx, batch.RunID, func(s *contracts.RunStatus) {
		s.Clusters = total
		if total == 0 {
			s.Status = contracts.RunCompleted
		}
	})

	for i, c := range result.Clusters {
		data, err := json.Marshal(contracts.ClusterMessage{
			RunID:   batch.RunID,
			DryRun:  batch.DryRun,
			Index:   i,
			Total:   total,
			Cluster: c,
		})
		if err != nil {
			a.logger.Error("[AnalyzeAgent] Failed to marshal cluster: %v", err)
			continue
		}

		// Keyed by run id so the clusters of a run stay in order.
		if err := a.broker.Publish(ctx, contracts.TopicClusters, batch.RunID, data); err != nil {
			a.logger.Error("[AnalyzeAgent] Failed to publish cluster: %v", err)
			continue
		}

		a.logger.Debug("[AnalyzeAgent] Published cluster %d/%d: %s (%d quotes)", i+1, total, c.Summary, len(c.Quotes))
	}

	return nil
}

func (a *Agent) updateRun(ctx context.Context, runID string, update func(*contracts.RunStatus)) {
	status, err := a.store.GetRunStatus(ctx, runID)
	if err != nil {
		a.logger.Warn("[AnalyzeAgent] Could not load run %s: %v", runID, err)
		return
	}
	update(status)
	if err := a.store.UpdateRunStatus(ctx, status); err != nil {
		a.logger.Warn("[AnalyzeAgent] Could not update run %s: %v", runID, err)
	}
}
