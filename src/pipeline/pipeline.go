// Package pipeline wires ingestion, the insight engine and escalation together,
// either in-process (local mode) or across agents connected by a broker
// (agentic mode). It is used by the CLI and the MCP server.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"insight-agent/src/config"
	"insight-agent/src/contracts"
	"insight-agent/src/logger"
)

// Mode selects how a run is executed.
type Mode int

const (
	// LocalMode runs every step in the calling process.
	LocalMode Mode = iota
	// AgenticMode publishes the run to Redpanda for the agents.
	AgenticMode
)

func (m Mode) String() string {
	if m == AgenticMode {
		return "agentic"
	}
	return "local"
}

// DetectMode picks agentic mode when Redpanda brokers are configured.
func DetectMode(cfg *config.Config) Mode {
	if cfg.Agentic() {
		return AgenticMode
	}
	return LocalMode
}

// NewRequest creates a run request with a fresh run id.
func NewRequest(channelIDs []string, sinceDays int, dryRun bool) contracts.RunRequest {
	return contracts.RunRequest{
		RunID:      uuid.NewString(),
		ChannelIDs: channelIDs,
		SinceDays:  sinceDays,
		DryRun:     dryRun,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
}

// Agent is a long-running consumer.
type Agent interface {
	Run(ctx context.Context) error
}

// RunAgents runs agents until ctx is cancelled or one of them fails.
// Cancellation is not reported as an error.
func RunAgents(ctx context.Context, log logger.Logger, agents ...Agent) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, a := range agents {
		a := a
		g.Go(func() error {
			return a.Run(gctx)
		})
	}

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("[Pipeline] Agent stopped: %v", err)
		return err
	}
	return nil
}
