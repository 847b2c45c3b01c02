package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"insight-agent/src/analyze"
	"insight-agent/src/broker"
	"insight-agent/src/escalate"
	"insight-agent/src/ingest"
	"insight-agent/src/pipeline"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Run the ingest, analyze and escalate agents in one process",
	Long: `Runs all three agents against REDPANDA_BROKERS until interrupted.
Equivalent to starting ingest-agent, analyze-agent and escalate-agent.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if appMode != pipeline.AgenticMode {
			return fmt.Errorf("REDPANDA_BROKERS is required to run the agents")
		}

		ctx, cancel := signalContext()
		defer cancel()

		src, err := pipeline.NewSource(appConfig)
		if err != nil {
			return err
		}
		engine, err := pipeline.NewEngine(appConfig, log)
		if err != nil {
			return err
		}
		st, err := pipeline.OpenStore(appConfig)
		if err != nil {
			return err
		}
		defer st.Close()

		esc, closeDocs, err := pipeline.NewEscalator(ctx, appConfig, st, false, log)
		if err != nil {
			return err
		}
		defer closeDocs()

		brk, err := broker.NewRedpandaBroker(appConfig.RedpandaBrokers,
			broker.WithLogger(log), broker.WithClientID("insight-agents"))
		if err != nil {
			return fmt.Errorf("failed to create broker: %w", err)
		}
		defer brk.Close()

		log.Info("Starting agents (brokers: %v)", appConfig.RedpandaBrokers)
		return pipeline.RunAgents(ctx, log,
			ingest.NewAgent(brk, src, st, log),
			analyze.NewAgent(brk, engine, st, log),
			escalate.NewAgent(brk, esc, st, log),
		)
	},
}
