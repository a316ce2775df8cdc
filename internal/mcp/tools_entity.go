package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"bqgate/internal/service"
)

func (s *Server) registerEntityTools() {
	s.mcp.AddTool(mcp.NewTool("list_entities",
		mcp.WithDescription("List the entities the gateway serves"),
	), s.handleListEntities)

	s.mcp.AddTool(mcp.NewTool("build_query",
		mcp.WithDescription("Show the SQL statement an entity request would run, without running it"),
		mcp.WithString("entity", mcp.Description("Entity name"), mcp.Required()),
		mcp.WithString("filter", mcp.Description("Filter expression, emitted as WHERE <filter>")),
		mcp.WithString("orderBy", mcp.Description("Ordering expression, emitted as ORDER BY <orderBy>")),
		mcp.WithString("pageSize", mcp.Description("Rows per page")),
		mcp.WithString("pageToken", mcp.Description("1-based page number")),
	), s.handleBuildQuery)

	s.mcp.AddTool(mcp.NewTool("fetch_entity",
		mcp.WithDescription("Run an entity request and return the converted page"),
		mcp.WithString("entity", mcp.Description("Entity name"), mcp.Required()),
		mcp.WithString("filter", mcp.Description("Filter expression, emitted as WHERE <filter>")),
		mcp.WithString("orderBy", mcp.Description("Ordering expression, emitted as ORDER BY <orderBy>")),
		mcp.WithString("pageSize", mcp.Description("Rows per page")),
		mcp.WithString("pageToken", mcp.Description("1-based page number")),
	), s.handleFetchEntity)

	s.mcp.AddTool(mcp.NewTool("convert_page",
		mcp.WithDescription("Convert a raw query result page ({schema, rows} in f/v form) into the entity envelope"),
		mcp.WithString("page", mcp.Description("Raw result page JSON"), mcp.Required()),
		mcp.WithString("entity", mcp.Description("Entity name used as the envelope key"), mcp.Required()),
		mcp.WithString("pageToken", mcp.Description("Page token of the request that produced the page")),
	), s.handleConvertPage)
}

func (s *Server) handleListEntities(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.gateway.Entities())
}

func (s *Server) handleBuildQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entity, err := requireString(req, "entity")
	if err != nil {
		return nil, err
	}
	sql, err := s.gateway.BuildQuery(entity, paramsFromRequest(req))
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return textResult(sql), nil
}

func (s *Server) handleFetchEntity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entity, err := requireString(req, "entity")
	if err != nil {
		return nil, err
	}
	res, err := s.gateway.Fetch(ctx, entity, paramsFromRequest(req))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", entity, err)
	}
	s.log.Debug("mcp: entity fetched", zap.String("entity", entity), zap.Int("rows", res.Rows))
	return jsonResult(res)
}

func (s *Server) handleConvertPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, err := requireString(req, "page")
	if err != nil {
		return nil, err
	}
	entity, err := requireString(req, "entity")
	if err != nil {
		return nil, err
	}
	body, _, err := service.ConvertPageJSON([]byte(page), entity, argText(req.GetArguments(), "pageToken"))
	if err != nil {
		return nil, err
	}
	return textResult(string(body)), nil
}
