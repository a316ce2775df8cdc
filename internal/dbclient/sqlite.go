package dbclient

import (
	"bqgate/internal/domain"

	_ "modernc.org/sqlite"
)

// newSQLiteConnector creates a connector for a local SQLite file.
// Opens in WAL mode with busy timeout for concurrent access.
func newSQLiteConnector(b *domain.Backend) (*sqlConnector, error) {
	dsn := b.Host + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	return newSQLConnector("sqlite", dsn)
}
