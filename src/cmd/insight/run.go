package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"insight-agent/src/broker"
	"insight-agent/src/contracts"
	"insight-agent/src/pipeline"
)

var (
	runChannels  []string
	runSinceDays int
	runDryRun    bool
	runJSON      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Extract insights from recent conversations and file tickets",
	Long: `Fetches the conversations of the configured channels, extracts and
deduplicates the recurring issues and files a ticket for every significant one.

Channels default to DISCORD_CHANNEL_IDS. Each --channel accepts a channel URL
or a bare channel id.

In agentic mode the request is published and the command returns the run id.`,
	Example: `  insight run
  insight run --channel 1123456789012345678 --since-days 14
  insight run --dry-run --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if runJSON {
			logToStderr()
		}

		channels := runChannels
		if len(channels) == 0 {
			channels = appConfig.DiscordChannelIDs
		}
		sinceDays := runSinceDays
		if sinceDays <= 0 {
			sinceDays = appConfig.DiscordSinceDays
		}
		req := pipeline.NewRequest(channels, sinceDays, runDryRun)

		ctx, cancel := signalContext()
		defer cancel()

		if appMode == pipeline.AgenticMode {
			return submitRun(ctx, req)
		}
		return runLocal(ctx, req)
	},
}

func init() {
	runCmd.Flags().StringSliceVar(&runChannels, "channel", nil, "Channel URL or id to scan (repeatable)")
	runCmd.Flags().IntVar(&runSinceDays, "since-days", 0, "Days of history to read (default DISCORD_SINCE_DAYS)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Report insights without filing tickets")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print the insights as JSON")
}

func runLocal(ctx context.Context, req contracts.RunRequest) error {
	c, err := buildLocal(ctx, appConfig, req.DryRun)
	if err != nil {
		return err
	}
	defer c.close()

	runner := pipeline.NewRunner(c.source, c.engine, c.escalator, c.store, log)
	report, err := runner.Run(ctx, req)
	if err != nil {
		return err
	}

	if runJSON {
		return printJSON(report.Insights)
	}

	res := report.Result
	fmt.Println()
	fmt.Printf("✅ Run %s completed\n", report.RunID)
	fmt.Printf("   Conversations: %d (%d batches, %d failed)\n", res.Conversations, res.Batches, len(res.BatchErrors))
	fmt.Printf("   Issues:        %d extracted, %d noise\n", res.Extracted, res.Noise)
	fmt.Printf("   Clusters:      %d significant, %d rejected\n", len(res.Clusters), len(res.Rejected))
	fmt.Println()

	for _, ins := range report.Insights {
		label := ins.Identifier
		if label == "" {
			label = "(dry run)"
		}
		fmt.Printf("💡 %-10s %s (%d quotes)\n", label, ins.Summary, len(ins.Quotes))
		if ins.URL != "" {
			fmt.Printf("   %s\n", ins.URL)
		}
	}
	for _, failure := range report.Failures {
		fmt.Printf("⚠️  %v\n", failure)
	}

	if !req.DryRun && len(report.Insights) > 0 {
		fmt.Println()
		fmt.Printf("Browse them with: insight view %s\n", report.RunID)
	}
	return nil
}

func submitRun(ctx context.Context, req contracts.RunRequest) error {
	brk, err := broker.New(appConfig.RedpandaBrokers, broker.WithLogger(log))
	if err != nil {
		return fmt.Errorf("failed to connect to Redpanda: %w", err)
	}
	st, err := pipeline.OpenStore(appConfig)
	if err != nil {
		_ = brk.Close()
		return err
	}

	p := pipeline.NewAgenticPipeline(brk, st)
	defer p.Close()

	runID, err := p.Submit(ctx, req)
	if err != nil {
		return err
	}

	if runJSON {
		return printJSON(map[string]string{"run_id": runID})
	}

	fmt.Printf("✅ Submitted run: %s\n", runID)
	fmt.Println()
	fmt.Println("💡 Tips:")
	fmt.Printf("   Check status:   insight status %s\n", runID)
	fmt.Printf("   Browse results: insight view %s\n", runID)
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			log.Info("Shutdown signal received, stopping...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
