package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"bqgate/internal/domain"
	"bqgate/internal/query"
	"bqgate/internal/service"
)

// Gateway is the entity side of the server: listing, dry runs and fetches.
type Gateway interface {
	Entities() []string
	BuildQuery(entity string, p query.Params) (string, error)
	Fetch(ctx context.Context, entity string, p query.Params) (*service.FetchResult, error)
}

// Snapshots runs and reports on snapshot jobs.
type Snapshots interface {
	Jobs() []domain.SnapshotJob
	RunJob(ctx context.Context, name string) (*domain.SnapshotRun, error)
	ListRuns(name string, limit int) ([]domain.SnapshotRun, error)
}

// Server is the MCP server for bqgate.
// It exposes tools, resources, and prompts so AI agents can page through
// entities and trigger snapshots.
type Server struct {
	mcp       *server.MCPServer
	gateway   Gateway
	snapshots Snapshots // may be nil
	log       *zap.Logger
}

// Deps holds all dependencies passed from the CLI layer to the MCP server.
type Deps struct {
	Gateway   Gateway
	Snapshots Snapshots
	Log       *zap.Logger
	Version   string
}

// New creates and configures a new MCP server with all tools and resources.
func New(deps Deps) *Server {
	s := &Server{
		gateway:   deps.Gateway,
		snapshots: deps.Snapshots,
		log:       deps.Log,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	version := deps.Version
	if version == "" {
		version = "dev"
	}

	s.mcp = server.NewMCPServer(
		"bqgate-mcp",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerEntityTools()
	s.registerResources()
	s.registerPrompts()
	if s.snapshots != nil {
		s.registerSnapshotTools()
	}
	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.log.Info("mcp: starting stdio server")
	return server.ServeStdio(s.mcp)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}
