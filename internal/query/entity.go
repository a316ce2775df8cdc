package query

import (
	"net/url"
	"strings"
)

// Prefixes recognised in entity mapping values.
const (
	TablePrefix = "table::"
	QueryPrefix = "query::"
)

// Target is what an entity name resolves to: a table or a raw statement.
type Target struct {
	Table    string
	RawQuery string
}

// Resolve maps entity to its target. The mapping value (or the entity itself
// when unmapped) is read as "table::<name>", "query::<sql>", or a bare table
// name.
func Resolve(entity string, mapping map[string]string) Target {
	object, ok := mapping[entity]
	if !ok || object == "" {
		object = entity
	}
	switch {
	case strings.HasPrefix(object, TablePrefix):
		return Target{Table: strings.TrimPrefix(object, TablePrefix)}
	case strings.HasPrefix(object, QueryPrefix):
		return Target{RawQuery: strings.TrimPrefix(object, QueryPrefix)}
	default:
		return Target{Table: object}
	}
}

// IsZero reports whether the target names neither a table nor a query.
func (t Target) IsZero() bool {
	return t.Table == "" && t.RawQuery == ""
}

// Params are the caller-controlled request inputs.
type Params struct {
	Filter    string `json:"filter,omitempty"`
	OrderBy   string `json:"orderBy,omitempty"`
	PageSize  string `json:"pageSize,omitempty"`
	PageToken string `json:"pageToken,omitempty"`
}

// ParamsFromValues reads filter, orderBy, pageSize and pageToken from v,
// taking the first value of each.
func ParamsFromValues(v url.Values) Params {
	return Params{
		Filter:    v.Get("filter"),
		OrderBy:   v.Get("orderBy"),
		PageSize:  v.Get("pageSize"),
		PageToken: v.Get("pageToken"),
	}
}

// Request combines the target with caller params.
func (t Target) Request(p Params) Request {
	return Request{
		RawQuery:  t.RawQuery,
		Table:     t.Table,
		Filter:    p.Filter,
		OrderBy:   p.OrderBy,
		PageSize:  p.PageSize,
		PageToken: p.PageToken,
	}
}
