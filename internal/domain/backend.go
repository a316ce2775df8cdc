package domain

import "time"

// BackendDriver represents the engine a gateway query runs on.
type BackendDriver string

const (
	BackendDriverBigQuery BackendDriver = "bigquery"
	BackendDriverPostgres BackendDriver = "postgres"
	BackendDriverMySQL    BackendDriver = "mysql"
	BackendDriverSQLite   BackendDriver = "sqlite"
)

// Backend holds the settings for the query backend behind the gateway.
// The password for SQL backends is stored separately in the SecretStore.
type Backend struct {
	Name   string        `json:"name" mapstructure:"name"`
	Driver BackendDriver `json:"driver" mapstructure:"driver"`

	// bigquery
	Project         string        `json:"project" mapstructure:"project"`
	Location        string        `json:"location" mapstructure:"location"`
	CredentialsFile string        `json:"credentialsFile" mapstructure:"credentials_file"`
	Endpoint        string        `json:"endpoint" mapstructure:"endpoint"` // API base URL override (emulators, tests)
	MaxResults      int64         `json:"maxResults" mapstructure:"max_results"`
	Timeout         time.Duration `json:"timeout" mapstructure:"timeout"`

	// postgres, mysql, sqlite
	Host     string `json:"host" mapstructure:"host"` // hostname or file path (sqlite)
	Port     int    `json:"port" mapstructure:"port"` // 0 for sqlite
	Database string `json:"database" mapstructure:"database"`
	Username string `json:"username" mapstructure:"username"`
	SSLMode  string `json:"sslMode" mapstructure:"ssl_mode"`
}

// SecretKey is the SecretStore key holding the backend password.
func (b *Backend) SecretKey() string {
	return "db:" + b.Name
}
