package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerSnapshotTools() {
	s.mcp.AddTool(mcp.NewTool("list_snapshot_jobs",
		mcp.WithDescription("List configured snapshot jobs"),
	), s.handleListSnapshotJobs)

	s.mcp.AddTool(mcp.NewTool("run_snapshot",
		mcp.WithDescription("Run a snapshot job now and write its entity page to the job's output file"),
		mcp.WithString("job", mcp.Description("Snapshot job name"), mcp.Required()),
	), s.handleRunSnapshot)

	s.mcp.AddTool(mcp.NewTool("list_snapshot_runs",
		mcp.WithDescription("List recent runs of a snapshot job, newest first"),
		mcp.WithString("job", mcp.Description("Snapshot job name"), mcp.Required()),
		mcp.WithNumber("limit", mcp.Description("Maximum runs to return (default 20)")),
	), s.handleListSnapshotRuns)
}

func (s *Server) handleListSnapshotJobs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.snapshots.Jobs())
}

func (s *Server) handleRunSnapshot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	job, err := requireString(req, "job")
	if err != nil {
		return nil, err
	}
	run, err := s.snapshots.RunJob(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("run snapshot: %w", err)
	}
	return jsonResult(run)
}

func (s *Server) handleListSnapshotRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	job, err := requireString(req, "job")
	if err != nil {
		return nil, err
	}
	runs, err := s.snapshots.ListRuns(job, req.GetInt("limit", 20))
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return jsonResult(runs)
}
