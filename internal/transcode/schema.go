// Package transcode converts schema-annotated result pages from the tabular
// query service wire format ({"f": [...]} rows of {"v": ...} cells) into plain
// nested JSON documents keyed by entity name.
package transcode

// FieldType is the declared type of a schema field. Only RECORD changes how a
// value is converted; every other type passes its wire text through.
type FieldType string

const (
	TypeString     FieldType = "STRING"
	TypeBytes      FieldType = "BYTES"
	TypeInteger    FieldType = "INTEGER"
	TypeInt64      FieldType = "INT64"
	TypeFloat      FieldType = "FLOAT"
	TypeFloat64    FieldType = "FLOAT64"
	TypeNumeric    FieldType = "NUMERIC"
	TypeBigNumeric FieldType = "BIGNUMERIC"
	TypeBoolean    FieldType = "BOOLEAN"
	TypeBool       FieldType = "BOOL"
	TypeTimestamp  FieldType = "TIMESTAMP"
	TypeDate       FieldType = "DATE"
	TypeTime       FieldType = "TIME"
	TypeDatetime   FieldType = "DATETIME"
	TypeGeography  FieldType = "GEOGRAPHY"
	TypeJSON       FieldType = "JSON"
	TypeRecord     FieldType = "RECORD"
	TypeStruct     FieldType = "STRUCT"
)

// FieldMode is the cardinality of a schema field.
type FieldMode string

const (
	ModeNullable FieldMode = "NULLABLE"
	ModeRequired FieldMode = "REQUIRED"
	ModeRepeated FieldMode = "REPEATED"
)

// Field describes one column. Fields are matched to row cells by position.
type Field struct {
	Name   string    `json:"name"`
	Type   FieldType `json:"type"`
	Mode   FieldMode `json:"mode,omitempty"`
	Fields []Field   `json:"fields,omitempty"`
}

// IsRecord reports whether the field holds a nested structure on the wire.
// The service reports struct columns as RECORD; STRUCT is not treated as one.
func (f Field) IsRecord() bool {
	return f.Type == TypeRecord
}

// IsRepeated reports whether the field holds zero or more values.
func (f Field) IsRepeated() bool {
	return f.Mode == ModeRepeated
}

// Schema is the field list of a result page.
type Schema struct {
	Fields []Field `json:"fields"`
}
