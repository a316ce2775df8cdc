package dbclient

import (
	"context"
	"fmt"

	"bqgate/internal/domain"
	"bqgate/internal/transcode"
)

// Connector runs built statements against a query backend. Every backend
// answers with a result page in the {f, v} wire shape.
type Connector interface {
	// TestConnection verifies connectivity.
	TestConnection(ctx context.Context) error

	// Run executes query and returns its first result page.
	Run(ctx context.Context, query string) (*transcode.Page, error)

	// Close releases the underlying client.
	Close() error
}

// NewConnector creates a Connector for the given backend.
// The password must be provided separately (from SecretStore).
func NewConnector(ctx context.Context, b *domain.Backend, password string) (Connector, error) {
	switch b.Driver {
	case domain.BackendDriverBigQuery:
		return newBigQueryConnector(ctx, b)
	case domain.BackendDriverSQLite:
		return newSQLiteConnector(b)
	case domain.BackendDriverMySQL:
		return newSQLConnector("mysql", buildMySQLDSN(b, password))
	case domain.BackendDriverPostgres:
		return newSQLConnector("postgres", buildPostgresDSN(b, password))
	default:
		return nil, fmt.Errorf("unsupported driver: %s", b.Driver)
	}
}
