package transcode

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/buger/jsonparser"
)

var (
	// ErrMissingSchema is returned when a result page has no schema.fields array.
	ErrMissingSchema = errors.New("result page has no schema fields")
	// ErrMalformedPage is returned when a result page is not valid JSON.
	ErrMalformedPage = errors.New("result page is not valid JSON")
)

// Page is one decoded result page: classified rows plus their schema.
type Page struct {
	Rows   []Cell
	Schema Schema
}

// DecodePage classifies every row of a raw result page. A page without a
// rows member has zero rows.
func DecodePage(data []byte) (*Page, error) {
	if !json.Valid(data) {
		return nil, ErrMalformedPage
	}

	raw, dt, _, err := jsonparser.Get(data, "schema", "fields")
	if err != nil || dt != jsonparser.Array {
		return nil, ErrMissingSchema
	}
	var fields []Field
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}

	page := &Page{Schema: Schema{Fields: fields}, Rows: []Cell{}}

	rows, dt, _, err := jsonparser.Get(data, "rows")
	if err != nil || dt != jsonparser.Array {
		return page, nil
	}
	page.Rows = elements(rows)
	return page, nil
}
