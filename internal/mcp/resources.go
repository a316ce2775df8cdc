package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"bqgate/internal/query"
)

const (
	entitiesURI       = "bqgate://entities"
	entityQueryPrefix = "bqgate://entity/"
	entityQuerySuffix = "/query"
)

func (s *Server) registerResources() {
	// ── bqgate://entities ──────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		entitiesURI,
		"Served Entities",
		mcp.WithMIMEType("application/json"),
	), s.handleEntitiesResource)

	// ── bqgate://entity/{entity}/query ─────────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			entityQueryPrefix+"{entity}"+entityQuerySuffix,
			"Base Query of an Entity",
		),
		s.handleEntityQueryResource,
	)
}

func (s *Server) handleEntitiesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(s.gateway.Entities(), "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      entitiesURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleEntityQueryResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	entity := entityFromURI(uri)
	if entity == "" {
		return nil, fmt.Errorf("could not extract entity from URI: %s", uri)
	}
	sql, err := s.gateway.BuildQuery(entity, query.Params{})
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/sql",
			Text:     sql,
		},
	}, nil
}

// entityFromURI extracts the entity from "bqgate://entity/{entity}/query".
func entityFromURI(uri string) string {
	rest, ok := strings.CutPrefix(uri, entityQueryPrefix)
	if !ok {
		return ""
	}
	entity, ok := strings.CutSuffix(rest, entityQuerySuffix)
	if !ok || strings.Contains(entity, "/") {
		return ""
	}
	return entity
}
