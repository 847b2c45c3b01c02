// Package main provides the insight CLI. It runs the extraction pipeline
// locally or submits it to the agents, and serves the webhook and MCP endpoints.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"insight-agent/src/config"
	"insight-agent/src/logger"
	"insight-agent/src/pipeline"
	"insight-agent/src/provider"
)

var (
	// Application configuration
	appConfig *config.Config
	// Execution mode detected from the configuration
	appMode pipeline.Mode
	// Shared console logger
	log logger.Logger

	configFile string
	debugLogs  bool
)

var rootCmd = &cobra.Command{
	Use:   "insight",
	Short: "Insight - recurring support issues, deduplicated and filed",
	Long: `Insight reads recent support conversations, extracts the recurring
problems, merges duplicates and files a ticket for every significant one.

Local mode (default):
  Everything runs in this process.

Agentic mode (REDPANDA_BROKERS set):
  'run' publishes a request and the ingest, analyze and escalate agents
  do the work. Use 'status' and 'view' to follow it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		appConfig, err = config.Load(configPath())
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		if debugLogs {
			appConfig.Debug = true
		}

		if appConfig.Debug {
			log = logger.NewDebugConsoleLogger()
		} else {
			log = logger.NewConsoleLogger()
		}

		appMode = pipeline.DetectMode(appConfig)
		log.Debug("[CLI] Mode: %s", appMode)
		return nil
	},
}

// logToStderr moves log output off stdout for commands that print JSON or
// speak a protocol there.
func logToStderr() {
	log = logger.NewStderrConsoleLogger(appConfig.Debug)
}

func configPath() string {
	if configFile != "" {
		return configFile
	}
	return os.Getenv("INSIGHT_CONFIG")
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (default $INSIGHT_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&debugLogs, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(clusterCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(webhookCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		err = provider.WrapError(err)

		var userErr *provider.UserError
		if errors.As(err, &userErr) {
			fmt.Fprintf(os.Stderr, "❌ %v\n", userErr)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
