package transcode

import (
	"bytes"
	"encoding/json"
)

// Marshal encodes a converted value without HTML escaping, so "<", ">" and
// "&" inside wire strings are written as-is. Objects keep their key order
// and raw wire values are copied compacted.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := appendJSON(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeValue encodes a scalar produced outside the wire format (a scanned
// SQL column, a typed API value) for use with Wrap.
func EncodeValue(v any) (json.RawMessage, error) {
	return Marshal(v)
}

func appendJSON(buf *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case nil:
		buf.WriteString("null")
	case json.RawMessage:
		if x == nil {
			buf.WriteString("null")
			return nil
		}
		return json.Compact(buf, x)
	case *Object:
		if x == nil {
			buf.WriteString("null")
			return nil
		}
		buf.WriteByte('{')
		for pair := x.Oldest(); pair != nil; pair = pair.Next() {
			if pair != x.Oldest() {
				buf.WriteByte(',')
			}
			if err := appendJSON(buf, pair.Key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := appendJSON(buf, pair.Value); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, item := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := appendJSON(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		enc := json.NewEncoder(buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(x); err != nil {
			return err
		}
		// Encode terminates every value with a newline
		buf.Truncate(buf.Len() - 1)
	}
	return nil
}
