// Package query assembles the SQL text sent to the query service from a
// table name or a raw statement plus filter, ordering and paging parameters.
package query

import (
	"sort"
	"strings"

	"bqgate/internal/numparse"
)

// DefaultPageSize is the page size assumed for offset math when the caller
// supplies none.
const DefaultPageSize = "10"

const (
	placeholderFilter    = "%filter%"
	placeholderOrderBy   = "%orderBy%"
	placeholderPageSize  = "%pageSize%"
	placeholderPageToken = "%pageToken%"

	tableTemplate = placeholderFilter + " " + placeholderOrderBy + " " + placeholderPageSize + " " + placeholderPageToken
)

// Request carries the inputs of one query build. An empty string means the
// input is absent.
type Request struct {
	RawQuery  string
	Table     string
	Filter    string
	OrderBy   string
	PageSize  string
	PageToken string
}

// QueryParts holds the four clauses substituted into a statement template.
// Each is empty when its source input was absent.
type QueryParts struct {
	Filter  string
	OrderBy string
	Limit   string
	Offset  string
}

// Parts computes the clauses for req.
//
// A missing page size only feeds "10" into the offset arithmetic; it never
// produces a LIMIT clause. Unparseable numbers surface as "NaN" in the
// offset text.
func Parts(req Request) QueryParts {
	var p QueryParts
	if req.Filter != "" {
		p.Filter = "WHERE " + req.Filter
	}
	if req.OrderBy != "" {
		p.OrderBy = "ORDER BY " + req.OrderBy
	}
	if req.PageSize != "" {
		p.Limit = "LIMIT " + req.PageSize
	}
	if req.PageToken != "" {
		size := req.PageSize
		if size == "" {
			size = DefaultPageSize
		}
		offset := numparse.ParseInt(size) * (numparse.ParseInt(req.PageToken) - 1)
		p.Offset = "OFFSET " + numparse.Format(offset)
	}
	return p
}

type substitution struct {
	at     int
	token  string
	clause string
}

// Expand replaces the first occurrence of each placeholder token in template
// with its clause. Positions are taken from template before any replacement,
// so clause text is copied verbatim and never expanded again. When two tokens
// overlap, the one earlier in filter, orderBy, pageSize, pageToken order wins.
func (p QueryParts) Expand(template string) string {
	candidates := []substitution{
		{token: placeholderFilter, clause: p.Filter},
		{token: placeholderOrderBy, clause: p.OrderBy},
		{token: placeholderPageSize, clause: p.Limit},
		{token: placeholderPageToken, clause: p.Offset},
	}

	var accepted []substitution
	for _, c := range candidates {
		c.at = strings.Index(template, c.token)
		if c.at < 0 || overlaps(accepted, c) {
			continue
		}
		accepted = append(accepted, c)
	}
	if len(accepted) == 0 {
		return template
	}
	sort.Slice(accepted, func(i, j int) bool { return accepted[i].at < accepted[j].at })

	var b strings.Builder
	b.Grow(len(template) + len(p.Filter) + len(p.OrderBy) + len(p.Limit) + len(p.Offset))
	last := 0
	for _, s := range accepted {
		b.WriteString(template[last:s.at])
		b.WriteString(s.clause)
		last = s.at + len(s.token)
	}
	b.WriteString(template[last:])
	return b.String()
}

func overlaps(accepted []substitution, c substitution) bool {
	end := c.at + len(c.token)
	for _, a := range accepted {
		if c.at < a.at+len(a.token) && a.at < end {
			return true
		}
	}
	return false
}

// Template returns the statement the clauses are substituted into: a
// SELECT over req.Table with the four placeholders, or the raw query as-is.
func Template(req Request) string {
	if req.Table != "" {
		return "SELECT * FROM " + req.Table + " " + tableTemplate
	}
	return req.RawQuery
}

// Build returns the final statement for req.
func Build(req Request) string {
	return Parts(req).Expand(Template(req))
}
