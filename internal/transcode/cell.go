package transcode

import (
	"encoding/json"
	"strconv"

	"github.com/buger/jsonparser"
)

// Cell is one classified node of a result row. The concrete type is one of
// *FieldWrapper, *RepeatedValue or *SingleValue; a nil Cell stands for wire
// data that is not a cell at all (a bare string, null, a number).
type Cell interface {
	// Value returns the raw "v" payload, or nil when the cell has none.
	Value() json.RawMessage
	cell()
}

// FieldWrapper is a {"f": [...]} cell: one sub-cell per schema field.
type FieldWrapper struct {
	Cells []Cell
	v     json.RawMessage
}

// RepeatedValue is a {"v": [...]} cell holding repeated instances.
type RepeatedValue struct {
	Items []Cell
	v     json.RawMessage
}

// SingleValue is a {"v": x} cell for any other x. Inner is the classified x
// when x is itself a truthy JSON object, nil otherwise.
type SingleValue struct {
	Inner Cell
	v     json.RawMessage
}

func (c *FieldWrapper) Value() json.RawMessage  { return c.v }
func (c *RepeatedValue) Value() json.RawMessage { return c.v }
func (c *SingleValue) Value() json.RawMessage   { return c.v }

func (*FieldWrapper) cell()  {}
func (*RepeatedValue) cell() {}
func (*SingleValue) cell()   {}

// Row builds a field-wrapper cell from already classified sub-cells.
func Row(cells ...Cell) *FieldWrapper {
	return &FieldWrapper{Cells: cells}
}

// Wrap classifies raw as if it had arrived as {"v": raw}. Producers that do
// not start from wire JSON (SQL drivers, typed API clients) use it to build
// cells. A nil raw gives a cell with no value.
func Wrap(raw json.RawMessage) Cell {
	if raw == nil {
		return &SingleValue{}
	}
	_, vt, _, err := jsonparser.Get(raw)
	if err != nil {
		vt = jsonparser.Unknown
	}
	return valueCell(raw, vt)
}

// classify turns one decoded JSON value into a cell.
func classify(data []byte, dt jsonparser.ValueType) Cell {
	if dt != jsonparser.Object {
		return nil
	}
	v, vt := member(data, "v")
	if f, ft := member(data, "f"); truthy(f, ft) {
		w := &FieldWrapper{v: v}
		if ft == jsonparser.Array {
			w.Cells = elements(f)
		}
		return w
	}
	return valueCell(v, vt)
}

func valueCell(v []byte, vt jsonparser.ValueType) Cell {
	switch {
	case vt == jsonparser.Array:
		return &RepeatedValue{Items: elements(v), v: v}
	case truthy(v, vt):
		return &SingleValue{Inner: classify(v, vt), v: v}
	default:
		return &SingleValue{v: v}
	}
}

func elements(arr []byte) []Cell {
	cells := []Cell{}
	_, _ = jsonparser.ArrayEach(arr, func(value []byte, dt jsonparser.ValueType, _ int, err error) {
		if err != nil {
			return
		}
		cells = append(cells, classify(value, dt))
	})
	return cells
}

// member returns the raw JSON of key in the object data, quotes included for
// strings, and its type. Missing keys report jsonparser.NotExist.
func member(data []byte, key string) (json.RawMessage, jsonparser.ValueType) {
	value, dt, _, err := jsonparser.Get(data, key)
	if err != nil {
		return nil, jsonparser.NotExist
	}
	if dt == jsonparser.String {
		raw := make([]byte, 0, len(value)+2)
		raw = append(raw, '"')
		raw = append(raw, value...)
		raw = append(raw, '"')
		return raw, dt
	}
	return value, dt
}

// truthy reports whether a raw JSON value would count as true in a boolean
// context: non-empty strings, non-zero numbers, true, and every object or
// array.
func truthy(raw []byte, dt jsonparser.ValueType) bool {
	switch dt {
	case jsonparser.String:
		return len(raw) > 2
	case jsonparser.Number:
		f, err := strconv.ParseFloat(string(raw), 64)
		return err != nil || f != 0
	case jsonparser.Boolean:
		return string(raw) == "true"
	case jsonparser.Object, jsonparser.Array:
		return true
	}
	return false
}
