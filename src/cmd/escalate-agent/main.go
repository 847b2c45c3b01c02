// Package main provides the standalone escalate agent binary.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"insight-agent/src/broker"
	"insight-agent/src/config"
	"insight-agent/src/escalate"
	"insight-agent/src/logger"
	"insight-agent/src/pipeline"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	if len(cfg.RedpandaBrokers) == 0 {
		fmt.Fprintln(os.Stderr, "ERROR: REDPANDA_BROKERS environment variable is required for escalate agent")
		fmt.Fprintln(os.Stderr, "Example: export REDPANDA_BROKERS=localhost:19092")
		os.Exit(1)
	}

	log := logger.NewConsoleLogger()
	if cfg.Debug {
		log = logger.NewDebugConsoleLogger()
	}

	log.Info("Starting Insight Escalate Agent")
	log.Info("Redpanda brokers: %v", cfg.RedpandaBrokers)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := pipeline.OpenStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	// Dry runs are decided per request by the agent, so Linear is always wired.
	esc, closeDocs, err := pipeline.NewEscalator(ctx, cfg, st, false, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create escalator: %v\n", err)
		os.Exit(1)
	}
	defer closeDocs()

	brk, err := broker.NewRedpandaBroker(cfg.RedpandaBrokers, broker.WithLogger(log), broker.WithClientID("insight-escalate-agent"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create broker: %v\n", err)
		os.Exit(1)
	}
	defer brk.Close()

	agent := escalate.NewAgent(brk, esc, st, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("Shutdown signal received, stopping agent...")
		cancel()
	}()

	log.Info("Escalate agent started, waiting for clusters...")
	if err := agent.Run(ctx); err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "Agent error: %v\n", err)
		os.Exit(1)
	}

	log.Info("Escalate agent stopped")
}
