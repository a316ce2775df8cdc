package dbclient

import (
	"net"
	"net/url"
	"strconv"

	_ "github.com/lib/pq"

	"bqgate/internal/domain"
)

// buildPostgresDSN constructs a postgres:// URL from a Backend. Credentials
// are URL-escaped, so passwords may contain any character.
func buildPostgresDSN(b *domain.Backend, password string) string {
	port := b.Port
	if port == 0 {
		port = 5432
	}
	sslMode := b.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(b.Username, password),
		Host:     net.JoinHostPort(b.Host, strconv.Itoa(port)),
		Path:     "/" + b.Database,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	return u.String()
}
