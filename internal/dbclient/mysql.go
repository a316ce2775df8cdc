package dbclient

import (
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql"

	"bqgate/internal/domain"
)

// buildMySQLDSN constructs a MySQL DSN from a Backend.
func buildMySQLDSN(b *domain.Backend, password string) string {
	port := b.Port
	if port == 0 {
		port = 3306
	}
	cfg := mysql.NewConfig()
	cfg.User = b.Username
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(b.Host, strconv.Itoa(port))
	cfg.DBName = b.Database
	// DATETIME columns scan as time.Time so they render as RFC 3339
	cfg.ParseTime = true
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	if b.SSLMode == "require" {
		cfg.TLSConfig = "true"
	}
	return cfg.FormatDSN()
}
