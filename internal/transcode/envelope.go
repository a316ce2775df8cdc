package transcode

import (
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"bqgate/internal/numparse"
)

// NextPageTokenKey is the envelope key carrying the next page counter.
const NextPageTokenKey = "next_page_token"

// Envelope is the response document: converted rows under the entity name,
// followed by the next page token.
type Envelope struct {
	Entity        string
	Rows          []any
	NextPageToken float64
}

// NextPageToken returns the counter for the page after pageToken: 2 when no
// token was given, otherwise the token's integer value plus one. The result
// is NaN when the token has no leading digits.
func NextPageToken(pageToken string) float64 {
	if pageToken == "" {
		return 2
	}
	return numparse.ParseInt(pageToken) + 1
}

// ConvertPage converts every row of page and wraps the result for entity.
// A row that yields no value is emitted as null.
func ConvertPage(page *Page, entity, pageToken string) (*Envelope, error) {
	rows := make([]any, 0, len(page.Rows))
	for i, row := range page.Rows {
		v, ok, err := Convert(row, page.Schema.Fields)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if !ok {
			v = nil
		}
		rows = append(rows, v)
	}
	return &Envelope{
		Entity:        entity,
		Rows:          rows,
		NextPageToken: NextPageToken(pageToken),
	}, nil
}

// MarshalJSON writes the entity key first and next_page_token second. A
// non-finite token is written as null. Strings are not HTML-escaped; call it
// directly rather than through json.Marshal, which re-escapes the output.
func (e *Envelope) MarshalJSON() ([]byte, error) {
	doc := orderedmap.New[string, any]()
	doc.Set(e.Entity, e.Rows)
	doc.Set(NextPageTokenKey, tokenJSON(e.NextPageToken))
	return Marshal(doc)
}

func tokenJSON(f float64) json.RawMessage {
	if !numparse.IsFinite(f) {
		return json.RawMessage("null")
	}
	return json.RawMessage(numparse.Format(f))
}
