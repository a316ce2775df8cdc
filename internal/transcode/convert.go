package transcode

import (
	"errors"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ErrSchemaMismatch is returned when a row has more cells than its schema
// level has fields.
var ErrSchemaMismatch = errors.New("row does not match schema")

// Object is a converted record: keys in schema order.
type Object = orderedmap.OrderedMap[string, any]

// Convert turns cell into a JSON-serialisable value using fields for
// positional lookup. The result is an *Object for field wrappers, a []any for
// repeated values, or whatever the inner cell yields for single values. ok is
// false when the cell produces no value at all.
//
// Non-RECORD fields keep their raw wire value. A RECORD field is only
// converted when it is REPEATED; a non-repeated RECORD is left out of the
// result.
func Convert(cell Cell, fields []Field) (value any, ok bool, err error) {
	switch c := cell.(type) {
	case *FieldWrapper:
		return convertFields(c, fields)
	case *RepeatedValue:
		return convertRepeated(c, fields)
	case *SingleValue:
		if c.Inner == nil {
			return nil, false, nil
		}
		return Convert(c.Inner, fields)
	}
	return nil, false, nil
}

func convertFields(c *FieldWrapper, fields []Field) (any, bool, error) {
	if len(c.Cells) > len(fields) {
		return nil, false, fmt.Errorf("%w: %d cells for %d fields", ErrSchemaMismatch, len(c.Cells), len(fields))
	}

	obj := orderedmap.New[string, any]()
	for i, sub := range c.Cells {
		field := fields[i]
		switch {
		case !field.IsRecord():
			if sub == nil || sub.Value() == nil {
				continue
			}
			obj.Set(field.Name, sub.Value())
		case field.IsRepeated():
			v, ok, err := Convert(sub, field.Fields)
			if err != nil {
				return nil, false, fmt.Errorf("%s: %w", field.Name, err)
			}
			if ok {
				obj.Set(field.Name, v)
			}
		default:
			// non-repeated RECORD: dropped
		}
	}
	return obj, true, nil
}

func convertRepeated(c *RepeatedValue, fields []Field) (any, bool, error) {
	out := make([]any, 0, len(c.Items))
	for i, item := range c.Items {
		v, ok, err := Convert(item, fields)
		if err != nil {
			return nil, false, fmt.Errorf("[%d]: %w", i, err)
		}
		switch {
		case !ok:
			out = append(out, nil)
		default:
			if nested, isSeq := v.([]any); isSeq {
				out = append(out, nested...)
				continue
			}
			out = append(out, v)
		}
	}
	return out, true, nil
}
