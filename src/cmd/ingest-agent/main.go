// Package main provides the standalone ingest agent binary.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"insight-agent/src/broker"
	"insight-agent/src/config"
	"insight-agent/src/ingest"
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
		fmt.Fprintln(os.Stderr, "ERROR: REDPANDA_BROKERS environment variable is required for ingest agent")
		fmt.Fprintln(os.Stderr, "Example: export REDPANDA_BROKERS=localhost:19092")
		os.Exit(1)
	}

	log := logger.NewConsoleLogger()
	if cfg.Debug {
		log = logger.NewDebugConsoleLogger()
	}

	log.Info("Starting Insight Ingest Agent")
	log.Info("Redpanda brokers: %v", cfg.RedpandaBrokers)

	src, err := pipeline.NewSource(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create source: %v\n", err)
		os.Exit(1)
	}

	st, err := pipeline.OpenStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	brk, err := broker.NewRedpandaBroker(cfg.RedpandaBrokers, broker.WithLogger(log), broker.WithClientID("insight-ingest-agent"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create broker: %v\n", err)
		os.Exit(1)
	}
	defer brk.Close()

	agent := ingest.NewAgent(brk, src, st, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("Shutdown signal received, stopping agent...")
		cancel()
	}()

	log.Info("Ingest agent started, waiting for requests...")
	if err := agent.Run(ctx); err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "Agent error: %v\n", err)
		os.Exit(1)
	}

	log.Info("Ingest agent stopped")
}
