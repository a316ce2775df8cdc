package transcode

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func convertJSON(t *testing.T, page, entity, token string) string {
	t.Helper()
	p, err := DecodePage([]byte(page))
	require.NoError(t, err)
	env, err := ConvertPage(p, entity, token)
	require.NoError(t, err)
	out, err := env.MarshalJSON()
	require.NoError(t, err)
	return string(out)
}

// ── Conversion ──

func TestScalarPassesThrough(t *testing.T) {
	page := `{
		"schema": {"fields": [{"name": "x", "type": "INTEGER", "mode": "NULLABLE"}]},
		"rows": [{"f": [{"v": "42"}]}]
	}`
	assert.Equal(t, `{"items":[{"x":"42"}],"next_page_token":2}`, convertJSON(t, page, "items", ""))
}

func TestRepeatedRecord(t *testing.T) {
	page := `{
		"schema": {"fields": [
			{"name": "id", "type": "STRING"},
			{"name": "lines", "type": "RECORD", "mode": "REPEATED", "fields": [
				{"name": "sku", "type": "STRING"},
				{"name": "qty", "type": "INTEGER"}
			]}
		]},
		"rows": [{"f": [
			{"v": "o-1"},
			{"v": [
				{"v": {"f": [{"v": "A"}, {"v": "2"}]}},
				{"v": {"f": [{"v": "B"}, {"v": "5"}]}}
			]}
		]}]
	}`
	want := `{"orders":[{"id":"o-1","lines":[{"sku":"A","qty":"2"},{"sku":"B","qty":"5"}]}],"next_page_token":2}`
	assert.Equal(t, want, convertJSON(t, page, "orders", ""))
}

func TestNonRepeatedRecordIsDropped(t *testing.T) {
	page := `{
		"schema": {"fields": [
			{"name": "id", "type": "STRING"},
			{"name": "address", "type": "RECORD", "mode": "NULLABLE", "fields": [{"name": "city", "type": "STRING"}]},
			{"name": "meta", "type": "RECORD", "fields": [{"name": "k", "type": "STRING"}]},
			{"name": "name", "type": "STRING"}
		]},
		"rows": [
			{"f": [{"v": "1"}, {"v": {"f": [{"v": "Lisbon"}]}}, {"v": {"f": [{"v": "x"}]}}, {"v": "Ana"}]},
			{"f": [{"v": "2"}, {"v": null}, {"v": null}, {"v": "Rui"}]}
		]
	}`
	want := `{"people":[{"id":"1","name":"Ana"},{"id":"2","name":"Rui"}],"next_page_token":2}`
	assert.Equal(t, want, convertJSON(t, page, "people", ""))
}

func TestNullAndAbsentValues(t *testing.T) {
	page := `{
		"schema": {"fields": [
			{"name": "a", "type": "STRING"},
			{"name": "b", "type": "STRING"},
			{"name": "c", "type": "BOOLEAN"}
		]},
		"rows": [{"f": [{"v": null}, {}, {"v": true}]}]
	}`
	assert.Equal(t, `{"t":[{"a":null,"c":true}],"next_page_token":2}`, convertJSON(t, page, "t", ""))
}

func TestRepeatedScalarKeepsWireValue(t *testing.T) {
	// only RECORD fields are converted; a repeated STRING keeps its raw v
	page := `{
		"schema": {"fields": [{"name": "tags", "type": "STRING", "mode": "REPEATED"}]},
		"rows": [{"f": [{"v": [{"v": "a"}, {"v": "b"}]}]}]
	}`
	assert.Equal(t, `{"t":[{"tags":[{"v":"a"},{"v":"b"}]}],"next_page_token":2}`, convertJSON(t, page, "t", ""))
}

func TestRepeatedRecordFlattensNestedSequences(t *testing.T) {
	fields := []Field{{Name: "n", Type: TypeString}}
	page := `{
		"schema": {"fields": [{"name": "n", "type": "STRING"}]},
		"rows": [{"v": [
			{"v": [{"f": [{"v": "1"}]}, {"f": [{"v": "2"}]}]},
			{"f": [{"v": "3"}]},
			"junk"
		]}]
	}`
	p, err := DecodePage([]byte(page))
	require.NoError(t, err)
	require.Len(t, p.Rows, 1)

	v, ok, err := Convert(p.Rows[0], fields)
	require.NoError(t, err)
	require.True(t, ok)
	out, err := Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `[{"n":"1"},{"n":"2"},{"n":"3"},null]`, string(out))
}

func TestRowWithoutCellsBecomesNull(t *testing.T) {
	page := `{
		"schema": {"fields": [{"name": "x", "type": "STRING"}]},
		"rows": [{"f": [{"v": "1"}]}, {"v": "loose"}, "text", {"f": []}]
	}`
	assert.Equal(t, `{"t":[{"x":"1"},null,null,{}],"next_page_token":2}`, convertJSON(t, page, "t", ""))
}

func TestFalsyFieldListFallsBackToValue(t *testing.T) {
	// an empty "f" string is not a field list; the cell is read through "v"
	page := `{
		"schema": {"fields": [{"name": "x", "type": "STRING"}]},
		"rows": [{"f": "", "v": {"f": [{"v": "inner"}]}}]
	}`
	assert.Equal(t, `{"t":[{"x":"inner"}],"next_page_token":2}`, convertJSON(t, page, "t", ""))
}

func TestSchemaMismatch(t *testing.T) {
	page := `{
		"schema": {"fields": [{"name": "x", "type": "STRING"}]},
		"rows": [{"f": [{"v": "1"}, {"v": "2"}]}]
	}`
	p, err := DecodePage([]byte(page))
	require.NoError(t, err)

	_, err = ConvertPage(p, "t", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaMismatch))
}

func TestNestedSchemaMismatch(t *testing.T) {
	page := `{
		"schema": {"fields": [{"name": "r", "type": "RECORD", "mode": "REPEATED", "fields": []}]},
		"rows": [{"f": [{"v": [{"v": {"f": [{"v": "1"}]}}]}]}]
	}`
	p, err := DecodePage([]byte(page))
	require.NoError(t, err)

	_, err = ConvertPage(p, "t", "")
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestShortRowIsAccepted(t *testing.T) {
	page := `{
		"schema": {"fields": [{"name": "x", "type": "STRING"}, {"name": "y", "type": "STRING"}]},
		"rows": [{"f": [{"v": "1"}]}]
	}`
	assert.Equal(t, `{"t":[{"x":"1"}],"next_page_token":2}`, convertJSON(t, page, "t", ""))
}

// ── Page decoding ──

func TestDecodePageWithoutRows(t *testing.T) {
	page := `{"schema": {"fields": [{"name": "x", "type": "STRING"}]}, "jobComplete": true}`
	assert.Equal(t, `{"t":[],"next_page_token":2}`, convertJSON(t, page, "t", ""))
}

func TestDecodePageErrors(t *testing.T) {
	_, err := DecodePage([]byte(`{"rows": []}`))
	assert.ErrorIs(t, err, ErrMissingSchema)

	_, err = DecodePage([]byte(`{"schema": {"fields": null}}`))
	assert.ErrorIs(t, err, ErrMissingSchema)

	_, err = DecodePage([]byte(`{"schema": `))
	assert.ErrorIs(t, err, ErrMalformedPage)
}

func TestDecodeClassification(t *testing.T) {
	page := `{
		"schema": {"fields": []},
		"rows": [{"f": [{"v": "s"}, {"v": [{"v": "a"}]}, {"v": {"f": []}}, {"v": 0}, 7]}]
	}`
	p, err := DecodePage([]byte(page))
	require.NoError(t, err)
	require.Len(t, p.Rows, 1)

	row, ok := p.Rows[0].(*FieldWrapper)
	require.True(t, ok)
	require.Len(t, row.Cells, 5)

	s, ok := row.Cells[0].(*SingleValue)
	require.True(t, ok)
	assert.Equal(t, `"s"`, string(s.Value()))
	assert.Nil(t, s.Inner)

	r, ok := row.Cells[1].(*RepeatedValue)
	require.True(t, ok)
	assert.Len(t, r.Items, 1)

	nested, ok := row.Cells[2].(*SingleValue)
	require.True(t, ok)
	assert.IsType(t, &FieldWrapper{}, nested.Inner)

	zero, ok := row.Cells[3].(*SingleValue)
	require.True(t, ok)
	assert.Equal(t, "0", string(zero.Value()))
	assert.Nil(t, zero.Inner)

	assert.Nil(t, row.Cells[4])
}

func TestWrapBuildsCells(t *testing.T) {
	fields := []Field{
		{Name: "name", Type: TypeString},
		{Name: "age", Type: TypeInteger},
		{Name: "gone", Type: TypeString},
	}
	row := Row(Wrap(json.RawMessage(`"Ana"`)), Wrap(json.RawMessage(`null`)), Wrap(nil))

	v, ok, err := Convert(row, fields)
	require.NoError(t, err)
	require.True(t, ok)
	out, err := Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Ana","age":null}`, string(out))
}

// ── Envelope ──

func TestNextPageToken(t *testing.T) {
	schema := `{"schema": {"fields": []}, "rows": []}`
	assert.Equal(t, `{"e":[],"next_page_token":2}`, convertJSON(t, schema, "e", ""))
	assert.Equal(t, `{"e":[],"next_page_token":2}`, convertJSON(t, schema, "e", "1"))
	assert.Equal(t, `{"e":[],"next_page_token":8}`, convertJSON(t, schema, "e", "7"))
	assert.Equal(t, `{"e":[],"next_page_token":4}`, convertJSON(t, schema, "e", "3rd"))
	assert.Equal(t, `{"e":[],"next_page_token":null}`, convertJSON(t, schema, "e", "next"))
}

func TestEnvelopeKeyOrder(t *testing.T) {
	env := &Envelope{Entity: "zeta", Rows: []any{}, NextPageToken: 3}
	out, err := env.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":[],"next_page_token":3}`, string(out))
}

func TestEnvelopeEntityCollidesWithTokenKey(t *testing.T) {
	env := &Envelope{Entity: NextPageTokenKey, Rows: []any{}, NextPageToken: 2}
	out, err := env.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"next_page_token":2}`, string(out))
}

func TestIdempotent(t *testing.T) {
	page := `{
		"schema": {"fields": [
			{"name": "b", "type": "STRING"},
			{"name": "a", "type": "RECORD", "mode": "REPEATED", "fields": [{"name": "z", "type": "STRING"}, {"name": "y", "type": "FLOAT"}]}
		]},
		"rows": [{"f": [{"v": "x"}, {"v": [{"v": {"f": [{"v": "1"}, {"v": "2.5"}]}}]}]}]
	}`
	first := convertJSON(t, page, "rows", "5")
	second := convertJSON(t, page, "rows", "5")
	assert.Equal(t, first, second)
	assert.Equal(t, `{"rows":[{"b":"x","a":[{"z":"1","y":"2.5"}]}],"next_page_token":6}`, first)
}

func TestWireStringsAreNotHTMLEscaped(t *testing.T) {
	page := `{
		"schema": {"fields": [
			{"name": "expr", "type": "STRING"},
			{"name": "tags", "type": "STRING", "mode": "REPEATED"}
		]},
		"rows": [{"f": [{"v": "a<b && c>d"}, {"v": [{"v": "<x>"}]}]}]
	}`
	assert.Equal(t,
		`{"q<1>":[{"expr":"a<b && c>d","tags":[{"v":"<x>"}]}],"next_page_token":2}`,
		convertJSON(t, page, "q<1>", ""))
}

func TestEncodeValue(t *testing.T) {
	for _, tc := range []struct {
		in   any
		want string
	}{
		{"R&D <team>", `"R&D <team>"`},
		{nil, `null`},
		{true, `true`},
		{map[string]any{"k": "<v>"}, `{"k":"<v>"}`},
	} {
		raw, err := EncodeValue(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, string(raw))
	}
}
