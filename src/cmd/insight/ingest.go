package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"insight-agent/src/contracts"
	"insight-agent/src/pipeline"
	"insight-agent/src/provider"
)

var (
	ingestChannels  []string
	ingestSinceDays int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch conversations and print them as JSON",
	Long: `Fetches the conversations of the configured channels and prints them as
JSON. The output can be fed back to 'insight cluster --input'.`,
	Example: `  insight ingest > conversations.json
  insight cluster --input conversations.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logToStderr()

		channels := ingestChannels
		if len(channels) == 0 {
			channels = appConfig.DiscordChannelIDs
		}
		refs, err := provider.ParseChannelRefs(channels)
		if err != nil {
			return err
		}
		if len(refs) == 0 {
			return provider.ErrMissingChannels
		}

		sinceDays := ingestSinceDays
		if sinceDays <= 0 {
			sinceDays = appConfig.DiscordSinceDays
		}

		src, err := pipeline.NewSource(appConfig)
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		conversations, err := src.FetchConversations(ctx, refs, time.Now().AddDate(0, 0, -sinceDays))
		if err != nil {
			return fmt.Errorf("failed to fetch conversations: %w", err)
		}
		if conversations == nil {
			conversations = []contracts.Conversation{}
		}
		log.Info("[Ingest] Fetched %d conversations from %d channels", len(conversations), len(refs))
		return printJSON(conversations)
	},
}

func init() {
	ingestCmd.Flags().StringSliceVar(&ingestChannels, "channel", nil, "Channel URL or id to read (repeatable)")
	ingestCmd.Flags().IntVar(&ingestSinceDays, "since-days", 0, "Days of history to read (default DISCORD_SINCE_DAYS)")
}
