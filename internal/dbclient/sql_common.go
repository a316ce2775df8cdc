package dbclient

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bqgate/internal/transcode"
)

// sqlConnector is the shared implementation for MySQL, Postgres, and SQLite.
// Result rows are re-encoded into the {f, v} wire shape so the gateway
// treats every backend alike.
type sqlConnector struct {
	driverName string
	db         *sql.DB
}

// newSQLConnector creates a generic SQL connector.
func newSQLConnector(driverName, dsn string) (*sqlConnector, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)

	return &sqlConnector{driverName: driverName, db: db}, nil
}

func (c *sqlConnector) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return c.db.PingContext(ctx)
}

func (c *sqlConnector) Run(ctx context.Context, query string) (*transcode.Page, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	fields := make([]transcode.Field, len(types))
	for i, ct := range types {
		fields[i] = transcode.Field{
			Name: ct.Name(),
			Type: wireType(ct.DatabaseTypeName()),
			Mode: transcode.ModeNullable,
		}
	}

	page := &transcode.Page{Schema: transcode.Schema{Fields: fields}, Rows: []transcode.Cell{}}
	for rows.Next() {
		values := make([]any, len(types))
		ptrs := make([]any, len(types))
		for j := range values {
			ptrs[j] = &values[j]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		cells := make([]transcode.Cell, len(values))
		for j, v := range values {
			raw, err := transcode.EncodeValue(formatValue(v))
			if err != nil {
				return nil, fmt.Errorf("encode %s: %w", fields[j].Name, err)
			}
			cells[j] = transcode.Wrap(raw)
		}
		page.Rows = append(page.Rows, transcode.Row(cells...))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return page, nil
}

func (c *sqlConnector) Close() error {
	return c.db.Close()
}

// formatValue renders a database value the way the query service does on
// the wire: a string, or nil for NULL.
func formatValue(v any) any {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case []byte:
		return string(val)
	case string:
		return val
	case time.Time:
		return val.Format(time.RFC3339)
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

// wireType maps a driver column type name onto the query service's field
// types. Unknown and empty names map to STRING.
func wireType(dbType string) transcode.FieldType {
	t := strings.ToUpper(dbType)
	switch {
	case strings.Contains(t, "INT"):
		return transcode.TypeInteger
	case strings.Contains(t, "BOOL"):
		return transcode.TypeBoolean
	case strings.Contains(t, "FLOAT"), strings.Contains(t, "DOUBLE"), strings.Contains(t, "REAL"):
		return transcode.TypeFloat
	case strings.Contains(t, "NUMERIC"), strings.Contains(t, "DECIMAL"):
		return transcode.TypeNumeric
	case strings.Contains(t, "TIMESTAMP"), strings.Contains(t, "DATETIME"):
		return transcode.TypeTimestamp
	case t == "DATE":
		return transcode.TypeDate
	case t == "TIME":
		return transcode.TypeTime
	case strings.Contains(t, "BLOB"), strings.Contains(t, "BYTEA"), strings.Contains(t, "BINARY"):
		return transcode.TypeBytes
	default:
		return transcode.TypeString
	}
}
