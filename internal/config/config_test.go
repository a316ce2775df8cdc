package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bqgate/internal/domain"
)

const sampleYAML = `
listen: ":9090"
log:
  level: debug
  format: console
backend:
  name: warehouse
  driver: bigquery
  project: acme-analytics
  location: EU
  timeout: 45s
entities:
  Orders: "table::shop.orders"
  recent: "query::SELECT * FROM shop.orders %filter% %pageSize%"
strict_entities: true
cache:
  path: /var/lib/bqgate/cache.db
  ttl: 2m
snapshots:
  - name: nightly
    entity: orders
    page_size: "500"
    output: /exports/orders.json
    trigger: cron
    schedule: "0 2 * * *"
`

func memFile(t *testing.T, name, content string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	return fs
}

func noDotEnv(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_File(t *testing.T) {
	cfg, err := Load(Options{
		File:   "/etc/bqgate/bqgate.yaml",
		Fs:     memFile(t, "/etc/bqgate/bqgate.yaml", sampleYAML),
		DotEnv: noDotEnv(t),
	})
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, LogConfig{Level: "debug", Format: "console"}, cfg.Log)

	assert.Equal(t, "warehouse", cfg.Backend.Name)
	assert.Equal(t, domain.BackendDriverBigQuery, cfg.Backend.Driver)
	assert.Equal(t, "acme-analytics", cfg.Backend.Project)
	assert.Equal(t, 45*time.Second, cfg.Backend.Timeout)
	assert.EqualValues(t, 1000, cfg.Backend.MaxResults)

	// map keys are lower-cased by the loader
	assert.Equal(t, "table::shop.orders", cfg.Entities["orders"])
	assert.Contains(t, cfg.Entities["recent"], "%filter%")
	assert.True(t, cfg.StrictEntities)

	assert.True(t, cfg.Cache.Enabled())
	assert.Equal(t, 2*time.Minute, cfg.Cache.TTL)

	require.Len(t, cfg.Snapshots, 1)
	job := cfg.Snapshots[0]
	assert.Equal(t, "nightly", job.Name)
	assert.Equal(t, "500", job.PageSize)
	assert.Equal(t, domain.SnapshotTriggerCron, job.Trigger)
	assert.Equal(t, "0 2 * * *", job.Schedule)
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(Options{Fs: afero.NewMemMapFs(), DotEnv: noDotEnv(t)})
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "default", cfg.Backend.Name)
	assert.Equal(t, domain.BackendDriverBigQuery, cfg.Backend.Driver)
	assert.Equal(t, 30*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "env", cfg.Secrets.Provider)
	assert.False(t, cfg.Cache.Enabled())
	assert.Empty(t, cfg.Snapshots)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BQGATE_LISTEN", "127.0.0.1:7000")
	t.Setenv("BQGATE_BACKEND_PROJECT", "from-env")
	t.Setenv("BQGATE_BACKEND_MAX_RESULTS", "50")

	cfg, err := Load(Options{
		File:   "/bqgate.yaml",
		Fs:     memFile(t, "/bqgate.yaml", sampleYAML),
		DotEnv: noDotEnv(t),
	})
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7000", cfg.Listen)
	assert.Equal(t, "from-env", cfg.Backend.Project)
	assert.EqualValues(t, 50, cfg.Backend.MaxResults)
}

func TestLoad_DotEnv(t *testing.T) {
	dotenv := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("BQGATE_BACKEND_LOCATION=US\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("BQGATE_BACKEND_LOCATION") })

	cfg, err := Load(Options{
		File:   "/bqgate.yaml",
		Fs:     memFile(t, "/bqgate.yaml", sampleYAML),
		DotEnv: dotenv,
	})
	require.NoError(t, err)
	assert.Equal(t, "US", cfg.Backend.Location)
}

func TestLoad_DottedEntityNames(t *testing.T) {
	const yaml = `
entities:
  sales.q1: "table::ds.sales"
  sales.q2: "query::SELECT * FROM ds.sales WHERE quarter = 2 %pageSize%"
`
	t.Setenv("BQGATE_BACKEND_PROJECT", "from-env")

	cfg, err := Load(Options{
		File:   "/bqgate.yaml",
		Fs:     memFile(t, "/bqgate.yaml", yaml),
		DotEnv: noDotEnv(t),
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"sales.q1": "table::ds.sales",
		"sales.q2": "query::SELECT * FROM ds.sales WHERE quarter = 2 %pageSize%",
	}, cfg.Entities)
	assert.Equal(t, "from-env", cfg.Backend.Project)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	_, err := Load(Options{File: "/nope.yaml", Fs: afero.NewMemMapFs(), DotEnv: noDotEnv(t)})
	assert.ErrorContains(t, err, "read config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(Options{
		File:   "/bqgate.yaml",
		Fs:     memFile(t, "/bqgate.yaml", "listen: [unclosed"),
		DotEnv: noDotEnv(t),
	})
	assert.Error(t, err)
}

// ─── Validate ───────────────────────────────────────────────

func TestValidate(t *testing.T) {
	cfg := &Config{
		Listen:  ":8080",
		Backend: domain.Backend{Driver: "oracle"},
		Snapshots: []domain.SnapshotJob{
			{Name: "a", Entity: "orders", Output: "/tmp/a.json", Trigger: domain.SnapshotTriggerCron},
			{Name: "a", Entity: "orders", Output: "/tmp/b.json", Trigger: domain.SnapshotTriggerWatch},
			{Entity: "", Trigger: "hourly"},
		},
	}
	err := cfg.Validate()
	require.Error(t, err)

	msg := err.Error()
	for _, want := range []string{
		`backend.driver: unsupported "oracle"`,
		"snapshots[0]: cron trigger needs a schedule",
		`snapshots[1]: duplicate name "a"`,
		"snapshots[1]: file_watch trigger needs watch_path",
		"snapshots[2]: name is required",
		"snapshots[2]: entity is required",
		"snapshots[2]: output is required",
		`snapshots[2]: unknown trigger "hourly"`,
	} {
		assert.Contains(t, msg, want)
	}

	ok := &Config{Listen: ":1", Backend: domain.Backend{Driver: domain.BackendDriverSQLite}}
	assert.NoError(t, ok.Validate())
}
