// Package mcp exposes the flow engine as a Model Context Protocol server so
// agent frontends can drive training conversations over stdio or SSE.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kursio/weft"
	"github.com/kursio/weft/internal/logging"
	"github.com/kursio/weft/pkg/analyzer"
	"github.com/kursio/weft/pkg/domain"
)

// StepResponse is the unified payload returned by the session tools.
type StepResponse struct {
	SessionID string             `json:"session_id" jsonschema_description:"Id of the session the step ran on"`
	Result    *domain.StepResult `json:"result" jsonschema_description:"Outcome of the executed step"`
}

// Server wraps a weft.Engine as an MCP server.
type Server struct {
	engine    *weft.Engine
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates an MCP server over the given engine.
func NewServer(engine *weft.Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("weft-mcp", strings.TrimSpace(weft.Version)),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	return s
}

// ServeStdio starts the server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE, shutting down
// gracefully when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{Addr: addr, Handler: mux}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("mcp server listening (sse)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	startTool := mcp.NewTool("start_session",
		mcp.WithDescription("Start a new training conversation on a registered flow graph."),
		mcp.WithString("graph", mcp.Required(), mcp.Description("Name of the registered graph")),
		mcp.WithString("meta", mcp.Description("JSON object with training context (title, description, ...)")),
		mcp.WithOutputSchema[StepResponse](),
	)
	s.mcpServer.AddTool(startTool, mcp.NewStructuredToolHandler(s.handleStartSession))

	stepTool := mcp.NewTool("step_flow",
		mcp.WithDescription("Run one step of an existing training conversation with the user's message."),
		mcp.WithString("graph", mcp.Required(), mcp.Description("Name of the registered graph")),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Id returned by start_session")),
		mcp.WithString("message", mcp.Description("The user's message (may be empty to continue)")),
		mcp.WithOutputSchema[StepResponse](),
	)
	s.mcpServer.AddTool(stepTool, mcp.NewStructuredToolHandler(s.handleStepFlow))

	analyzeTool := mcp.NewTool("analyze_paths",
		mcp.WithDescription("Rank the likely next steps of a session and summarize its progress."),
		mcp.WithString("graph", mcp.Required(), mcp.Description("Name of the registered graph")),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to analyze")),
		mcp.WithOutputSchema[analyzer.Report](),
	)
	s.mcpServer.AddTool(analyzeTool, mcp.NewStructuredToolHandler(s.handleAnalyzePaths))

	s.mcpServer.AddTool(mcp.NewTool("list_graphs",
		mcp.WithDescription("List the registered flow graphs."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		names, err := s.engine.Graphs().Names()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
		}
		jsonBytes, _ := json.Marshal(names)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

func (s *Server) handleStartSession(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StepResponse, error) {
	graphName, _ := args["graph"].(string)

	meta := map[string]string{}
	if metaStr, ok := args["meta"].(string); ok && metaStr != "" {
		if err := json.Unmarshal([]byte(metaStr), &meta); err != nil {
			return StepResponse{}, fmt.Errorf("invalid meta: %w", err)
		}
	}

	sessionID, res, err := s.engine.StartSession(ctx, graphName, meta)
	if err != nil {
		return StepResponse{}, fmt.Errorf("start session failed: %w", err)
	}
	return StepResponse{SessionID: sessionID, Result: res}, nil
}

func (s *Server) handleStepFlow(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StepResponse, error) {
	graphName, _ := args["graph"].(string)
	sessionID, _ := args["session_id"].(string)
	message, _ := args["message"].(string)

	res, err := s.engine.Step(ctx, graphName, sessionID, message)
	if err != nil {
		return StepResponse{}, fmt.Errorf("step failed: %w", err)
	}
	return StepResponse{SessionID: sessionID, Result: res}, nil
}

func (s *Server) handleAnalyzePaths(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (analyzer.Report, error) {
	graphName, _ := args["graph"].(string)
	sessionID, _ := args["session_id"].(string)

	report, err := s.engine.Analyze(ctx, graphName, sessionID)
	if err != nil {
		return analyzer.Report{}, fmt.Errorf("analyze failed: %w", err)
	}
	return *report, nil
}
