package main

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"insight-agent/src/mcp"
	"insight-agent/src/pipeline"
	"insight-agent/src/store"
	"insight-agent/src/webhook"
)

var webhookAddr string

var webhookCmd = &cobra.Command{
	Use:   "webhook",
	Short: "Serve the Linear webhook that mirrors ticket status",
	Long: `Listens for Linear issue events on POST /webhooks/linear and records
status changes of filed tickets in the store. GET /healthz answers 200.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := webhookAddr
		if addr == "" {
			addr = appConfig.WebhookAddr
		}
		if !appConfig.Debug {
			gin.SetMode(gin.ReleaseMode)
		}

		st, err := pipeline.OpenStore(appConfig)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx, cancel := signalContext()
		defer cancel()

		log.Info("[Webhook] Listening on %s", addr)
		if err := webhook.NewServer(st, log).ListenAndServe(ctx, addr); err != nil {
			return fmt.Errorf("webhook server: %w", err)
		}
		log.Info("[Webhook] Stopped")
		return nil
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the MCP tools over stdio",
	Long: `Runs a Model Context Protocol server on stdin/stdout with the tools
extract_insights, get_cluster_details, list_insights and get_insight.

The store is optional: without one the insight tools report an error.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logToStderr()

		engine, err := pipeline.NewEngine(appConfig, log)
		if err != nil {
			return err
		}

		var insights store.Store
		if st, err := pipeline.OpenStore(appConfig); err != nil {
			log.Warn("[MCP] Insight tools disabled: %v", err)
		} else {
			defer st.Close()
			insights = st
		}

		server := mcp.NewServer(engine, appConfig.Engine.Thresholds(), insights, log)
		if err := server.Run(); err != nil {
			return fmt.Errorf("MCP server error: %w", err)
		}
		return nil
	},
}

func init() {
	webhookCmd.Flags().StringVar(&webhookAddr, "addr", "", "Listen address (default WEBHOOK_ADDR)")
}
