package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"insight-agent/src/contracts"
	"insight-agent/src/insight"
	"insight-agent/src/logger"
	"insight-agent/src/ranking"
	"insight-agent/src/store"
)

// Version is reported to MCP clients.
const Version = "1.0.0"

// Engine runs extraction and clustering over conversations.
type Engine interface {
	Run(ctx context.Context, conversations []contracts.Conversation) (*insight.Result, error)
}

// Server is the MCP server for the insight agent.
type Server struct {
	mcpServer  *server.MCPServer
	engine     Engine
	thresholds ranking.Thresholds
	results    ResultStore
	insights   store.Store
	log        logger.Logger
}

// NewServer creates a new MCP server. engine and insights may be nil, in which
// case the tools that need them report an error to the client.
func NewServer(engine Engine, thresholds ranking.Thresholds, insights store.Store, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewSilentLogger()
	}

	s := server.NewMCPServer(
		"insight-agent",
		Version,
		server.WithToolCapabilities(true),
	)

	srv := &Server{
		mcpServer:  s,
		engine:     engine,
		thresholds: thresholds,
		results:    NewInMemoryStore(),
		insights:   insights,
		log:        log,
	}
	srv.registerTools()

	return srv
}

// registerTools registers all available tools.
func (s *Server) registerTools() {
	extractTool := mcp.NewTool("extract_insights",
		mcp.WithDescription("Extract recurring developer-support issues from conversations and deduplicate them. Returns significant issues accepted on quote volume fully expanded; issues accepted on friction keywords and rejected issues are summarized. Use get_cluster_details to drill into any of them."),
		mcp.WithArray("conversations",
			mcp.Required(),
			mcp.Description("Conversations as objects with channel_name, main_message, thread_messages and quotes"),
			mcp.Items(map[string]any{"type": "object"}),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max findings per tier (default: 15)"),
		),
	)

	detailsTool := mcp.NewTool("get_cluster_details",
		mcp.WithDescription("Get every quote of one issue returned by extract_insights."),
		mcp.WithString("run_id",
			mcp.Required(),
			mcp.Description("Run ID from the extract_insights response"),
		),
		mcp.WithString("cluster_id",
			mcp.Required(),
			mcp.Description("Cluster ID from the manifest"),
		),
	)

	listTool := mcp.NewTool("list_insights",
		mcp.WithDescription("List escalated insights with their ticket and status."),
		mcp.WithString("run_id",
			mcp.Description("Only insights from this run (default: all runs)"),
		),
	)

	getTool := mcp.NewTool("get_insight",
		mcp.WithDescription("Get one escalated insight, including its quotes, doc link and suggestion."),
		mcp.WithString("ticket_id",
			mcp.Required(),
			mcp.Description("Linear ticket ID"),
		),
	)

	s.mcpServer.AddTool(extractTool, s.handleExtractInsights)
	s.mcpServer.AddTool(detailsTool, s.handleGetClusterDetails)
	s.mcpServer.AddTool(listTool, s.handleListInsights)
	s.mcpServer.AddTool(getTool, s.handleGetInsight)
}

// Run starts the MCP server on stdio.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

type extractArgs struct {
	Conversations []contracts.Conversation `json:"conversations"`
	Limit         int                      `json:"limit"`
}

// handleExtractInsights runs the engine and returns a manifest.
func (s *Server) handleExtractInsights(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.engine == nil {
		return mcp.NewToolResultError("insight engine is not configured (set ANTHROPIC_API_KEY and EMBEDDING_API_KEY)"), nil
	}

	var args extractArgs
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if len(args.Conversations) == 0 {
		return mcp.NewToolResultError("conversations parameter is required"), nil
	}
	for i, conv := range args.Conversations {
		if conv.ChannelName == "" {
			return mcp.NewToolResultError(fmt.Sprintf("conversation %d: channel_name is required", i)), nil
		}
	}

	res, err := s.engine.Run(ctx, args.Conversations)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("extraction failed: %v", err)), nil
	}

	runID := uuid.NewString()
	response := TierClusters(runID, res, s.thresholds, args.Limit)
	s.results.Store(runID, response)
	s.log.Info("[MCP] Run %s: %d conversations -> %d significant issues", runID, res.Conversations, len(res.Clusters))

	return jsonResult(ToManifest(response))
}

// handleGetClusterDetails returns a stored finding with every quote.
func (s *Server) handleGetClusterDetails(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID := request.GetString("run_id", "")
	if runID == "" {
		return mcp.NewToolResultError("run_id parameter is required"), nil
	}

	clusterID := request.GetString("cluster_id", "")
	if clusterID == "" {
		return mcp.NewToolResultError("cluster_id parameter is required"), nil
	}

	finding, found := s.results.Get(runID, clusterID)
	if !found {
		return mcp.NewToolResultError(fmt.Sprintf("cluster not found: run_id=%s, cluster_id=%s", runID, clusterID)), nil
	}

	return jsonResult(finding)
}

// handleListInsights lists stored insights.
func (s *Server) handleListInsights(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.insights == nil {
		return mcp.NewToolResultError("insight store is not configured"), nil
	}

	insights, err := s.insights.ListInsights(ctx, request.GetString("run_id", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list insights: %v", err)), nil
	}
	if insights == nil {
		insights = []contracts.Insight{}
	}

	return jsonResult(insights)
}

// handleGetInsight returns one stored insight.
func (s *Server) handleGetInsight(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.insights == nil {
		return mcp.NewToolResultError("insight store is not configured"), nil
	}

	ticketID := request.GetString("ticket_id", "")
	if ticketID == "" {
		return mcp.NewToolResultError("ticket_id parameter is required"), nil
	}

	ins, err := s.insights.GetInsight(ctx, ticketID)
	if errors.Is(err, store.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("insight not found: ticket_id=%s", ticketID)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get insight: %v", err)), nil
	}

	return jsonResult(ins)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
