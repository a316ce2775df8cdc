package mcpserver

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"bqgate/internal/query"
)

// paramsFromRequest reads the paging arguments shared by the entity tools.
// Numbers are accepted too and rendered as integers.
func paramsFromRequest(req mcp.CallToolRequest) query.Params {
	args := req.GetArguments()
	return query.Params{
		Filter:    req.GetString("filter", ""),
		OrderBy:   req.GetString("orderBy", ""),
		PageSize:  argText(args, "pageSize"),
		PageToken: argText(args, "pageToken"),
	}
}

func argText(args map[string]any, key string) string {
	switch v := args[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}

func requireString(req mcp.CallToolRequest, key string) (string, error) {
	v := req.GetString(key, "")
	if v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}
