package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("explore_entity",
		mcp.WithPromptDescription("Page through an entity and summarise what it holds"),
		mcp.WithArgument("entity",
			mcp.ArgumentDescription("Entity to explore"),
			mcp.RequiredArgument(),
		),
	), s.handleExplorePrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("debug_conversion",
		mcp.WithPromptDescription("Explain how a raw result page turns into the entity envelope"),
		mcp.WithArgument("entity",
			mcp.ArgumentDescription("Entity the page belongs to"),
			mcp.RequiredArgument(),
		),
	), s.handleDebugConversionPrompt)
}

func (s *Server) handleExplorePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	entity := req.Params.Arguments["entity"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Explore the %s entity", entity),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Explore the "%s" entity. Follow these steps:

1. Use build_query with entity "%s" and pageSize "10" to see the statement that will run
2. Use fetch_entity with the same arguments to read the first page
3. Keep passing the returned next_page_token as pageToken until a page comes back empty or you have seen enough rows
4. Summarise the fields, their types as they appear, and anything unusual (nulls, empty lists)

Use filter and orderBy only with expressions that are valid in the backend's SQL dialect.`, entity, entity),
				},
			},
		},
	}, nil
}

func (s *Server) handleDebugConversionPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	entity := req.Params.Arguments["entity"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Debug conversion of a %s page", entity),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`I have a raw query result page for "%s" in {schema, rows} form where each row is {"f": [{"v": ...}]}.

1. Ask me for the page JSON if I have not pasted it yet
2. Run convert_page with entity "%s" on it
3. For each schema field, explain how it was rendered: plain values pass through, repeated records become lists of objects, non-repeated records are dropped, missing values are omitted
4. Point out any row where the number of cells exceeds the number of schema fields, since that fails the conversion`, entity, entity),
				},
			},
		},
	}, nil
}
