package escalate

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"insight-agent/src/broker"
	"insight-agent/src/contracts"
	"insight-agent/src/logger"
	"insight-agent/src/store"
)

// Agent consumes accepted clusters and escalates them.
type Agent struct {
	broker    broker.Broker
	escalator *Escalator
	store     store.Store
	logger    logger.Logger

	mu   sync.Mutex
	seen map[string]bool // run id + cluster index
}

// NewAgent creates a new escalate agent.
func NewAgent(brk broker.Broker, esc *Escalator, st store.Store, log logger.Logger) *Agent {
	return &Agent{
		broker:    brk,
		escalator: esc,
		store:     st,
		logger:    log,
		seen:      make(map[string]bool),
	}
}

// Run subscribes to insight.clusters and processes clusters until ctx is done.
func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("[EscalateAgent] Starting...")

	msgChan, err := a.broker.Subscribe(ctx, contracts.TopicClusters, "insight-escalate")
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", contracts.TopicClusters, err)
	}

	a.logger.Info("[EscalateAgent] Listening for clusters on '%s' topic...", contracts.TopicClusters)

	for {
		select {
		case msg, ok := <-msgChan:
			if !ok {
				a.logger.Info("[EscalateAgent] Message channel closed, shutting down")
				return nil
			}

			if err := a.processCluster(ctx, msg); err != nil {
				a.logger.Error("[EscalateAgent] Error processing cluster: %v", err)
			}

		case <-ctx.Done():
			a.logger.Info("[EscalateAgent] Context cancelled, shutting down")
			return ctx.Err()
		}
	}
}

func (a *Agent) processCluster(ctx context.Context, msg broker.Message) error {
	var cm contracts.ClusterMessage
	if err := json.Unmarshal(msg.Value, &cm); err != nil {
		return fmt.Errorf("failed to unmarshal cluster: %w", err)
	}

	// Redelivered clusters must not file a second ticket.
	key := cm.RunID + ":" + strconv.Itoa(cm.Index)
	if !a.markSeen(key) {
		a.logger.Debug("[EscalateAgent] Skipping redelivered cluster %d/%d of run %s", cm.Index+1, cm.Total, cm.RunID)
		return nil
	}

	a.logger.Info("[EscalateAgent] Escalating cluster %d/%d of run %s", cm.Index+1, cm.Total, cm.RunID)

	_, escErr := a.escalator.Escalate(ctx, cm.RunID, cm.Cluster, cm.DryRun)
	if escErr != nil {
		// Allow a later redelivery to retry.
		a.forget(key)
	}

	if err := a.recordProgress(ctx, cm, escErr); err != nil {
		a.logger.Error("[EscalateAgent] Failed to update run %s: %v", cm.RunID, err)
	}
	return escErr
}

// recordProgress counts the ticket and completes the run after its last cluster.
func (a *Agent) recordProgress(ctx context.Context, cm contracts.ClusterMessage, escErr error) error {
	status, err := a.store.GetRunStatus(ctx, cm.RunID)
	if err != nil {
		return err
	}

	if escErr == nil && !cm.DryRun {
		status.Tickets++
	}
	if escErr != nil {
		status.Error = appendError(status.Error, escErr)
	}
	if cm.Index+1 >= cm.Total {
		status.Status = contracts.RunCompleted
	}
	return a.store.UpdateRunStatus(ctx, status)
}

func (a *Agent) markSeen(key string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.seen[key] {
		return false
	}
	a.seen[key] = true
	return true
}

func (a *Agent) forget(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.seen, key)
}

func appendError(existing string, err error) string {
	if existing == "" {
		return err.Error()
	}
	return existing + "; " + err.Error()
}
