package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"insight-agent/src/contracts"
	"insight-agent/src/pipeline"
	"insight-agent/src/store"
	"insight-agent/src/tui"
)

var statusCmd = &cobra.Command{
	Use:   "status <run-id>",
	Short: "Show the status of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := pipeline.OpenStore(appConfig)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		runID := args[0]
		status, err := st.GetRunStatus(ctx, runID)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("run %s not found", runID)
		}
		if err != nil {
			return fmt.Errorf("failed to get run status: %w", err)
		}

		printStatus(status)
		return nil
	},
}

func printStatus(status *contracts.RunStatus) {
	icon := "⏳"
	switch status.Status {
	case contracts.RunCompleted:
		icon = "✅"
	case contracts.RunFailed:
		icon = "❌"
	}

	fmt.Printf("%s Run %s: %s\n", icon, status.RunID, status.Status)
	fmt.Printf("   Channels:      %v\n", status.Channels)
	fmt.Printf("   Conversations: %d\n", status.Conversations)
	fmt.Printf("   Clusters:      %d\n", status.Clusters)
	fmt.Printf("   Tickets:       %d\n", status.Tickets)
	if status.Error != "" {
		fmt.Printf("   Error:         %s\n", status.Error)
	}
}

var viewCmd = &cobra.Command{
	Use:   "view [run-id]",
	Short: "Browse insights in the terminal UI",
	Long: `Opens the insight browser. With a run id only that run's insights are
shown and the view refreshes until the run finishes; without one every stored
insight is listed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := pipeline.OpenStore(appConfig)
		if err != nil {
			return err
		}
		defer st.Close()

		runID := ""
		if len(args) == 1 {
			runID = args[0]
		}
		return tui.Run(tui.StoreLoader(st, runID))
	},
}
