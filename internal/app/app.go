// Package app wires configuration, storage and services into a running
// bqgate instance.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"bqgate/internal/config"
	"bqgate/internal/domain"
	"bqgate/internal/gateway"
	mcpserver "bqgate/internal/mcp"
	"bqgate/internal/secret"
	"bqgate/internal/service"
	"bqgate/internal/storage"
)

// Version is reported by the CLI and the MCP server.
var Version = "dev"

const (
	cachePurgeSchedule = "@every 10m"
	// ShutdownTimeout bounds how long Shutdown waits for running snapshots.
	ShutdownTimeout = 30 * time.Second
)

// App owns every long-lived component.
type App struct {
	cfg *config.Config
	log *zap.Logger

	db      *storage.DB
	secrets secret.SecretStore
	cache   *storage.ResponseCacheStore
	purger  *cron.Cron

	Gateway   *service.GatewayService
	Snapshots *service.SnapshotService
}

// DefaultStatePath is where the state database lives when cache.path is unset.
func DefaultStatePath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".local", "share", "bqgate", "bqgate.db")
}

// New opens storage and builds the services. Nothing runs until Startup.
func New(cfg *config.Config, log *zap.Logger, fs afero.Fs) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{cfg: cfg, log: log}

	secrets, err := secret.New(cfg.Secrets.Provider)
	if err != nil {
		return nil, err
	}
	a.secrets = secrets

	dbPath := cfg.Cache.Path
	if dbPath == "" {
		dbPath = DefaultStatePath()
	}
	db, err := storage.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}
	a.db = db

	// A nil *ResponseCacheStore must not reach the service as a non-nil
	// interface.
	var cache domain.ResponseCache
	if cfg.Cache.Enabled() {
		a.cache = storage.NewResponseCacheStore(db)
		cache = a.cache
	}

	a.Gateway = service.NewGatewayService(service.GatewayConfig{
		Backend:        cfg.Backend,
		Entities:       cfg.Entities,
		StrictEntities: cfg.StrictEntities,
		CacheTTL:       cfg.Cache.TTL,
	}, secrets, cache, log.Named("gateway"))

	a.Snapshots = service.NewSnapshotService(
		cfg.Snapshots,
		a.Gateway,
		storage.NewSnapshotStore(db),
		fs,
		service.LogEmitter{Log: log.Named("events")},
		log.Named("snapshot"),
	)
	return a, nil
}

// Startup arms snapshot triggers and the cache purge schedule.
func (a *App) Startup(ctx context.Context) error {
	var errs []error
	if err := a.Snapshots.RestartWatchers(ctx); err != nil {
		errs = append(errs, fmt.Errorf("snapshot triggers: %w", err))
	}
	if a.cache != nil {
		a.purger = cron.New()
		if _, err := a.purger.AddFunc(cachePurgeSchedule, a.purgeCache); err != nil {
			errs = append(errs, fmt.Errorf("cache purge: %w", err))
		}
		a.purger.Start()
		a.purgeCache()
	}
	return errors.Join(errs...)
}

func (a *App) purgeCache() {
	n, err := a.cache.PurgeExpired()
	if err != nil {
		a.log.Warn("cache purge failed", zap.Error(err))
		return
	}
	if n > 0 {
		a.log.Info("cache purged", zap.Int64("entries", n))
	}
}

// Shutdown stops triggers, waits for running snapshots and closes
// connections.
func (a *App) Shutdown(ctx context.Context) {
	if a.purger != nil {
		<-a.purger.Stop().Done()
	}
	if a.Snapshots != nil {
		a.Snapshots.Stop()
		a.Snapshots.WaitRunning(ctx)
	}
	if a.Gateway != nil {
		a.Gateway.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// ServeHTTP runs the HTTP gateway until ctx is cancelled.
func (a *App) ServeHTTP(ctx context.Context) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	srv := gateway.New(a.Gateway, a.log.Named("http"), reg)
	return srv.ListenAndServe(ctx, a.cfg.Listen)
}

// ServeMCP runs the MCP server on stdin/stdout until the client disconnects.
func (a *App) ServeMCP() error {
	srv := mcpserver.New(mcpserver.Deps{
		Gateway:   a.Gateway,
		Snapshots: a.Snapshots,
		Log:       a.log.Named("mcp"),
		Version:   Version,
	})
	return srv.ServeStdio()
}
