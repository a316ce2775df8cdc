package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"bqgate/internal/dbclient"
	"bqgate/internal/domain"
	"bqgate/internal/query"
	"bqgate/internal/secret"
	"bqgate/internal/transcode"
)

// ─────────────────────────────────────────────────────────────
// Gateway Service: entity requests in, envelopes out
// ─────────────────────────────────────────────────────────────

var (
	// ErrUnknownEntity is returned for entities the gateway refuses to serve.
	ErrUnknownEntity = errors.New("unknown entity")
	// ErrBackend wraps failures reported by the query backend.
	ErrBackend = errors.New("backend query failed")
)

// GatewayConfig describes what the gateway serves.
type GatewayConfig struct {
	Backend domain.Backend
	// Entities maps entity names to "table::<name>", "query::<sql>" or a bare
	// table name.
	Entities map[string]string
	// StrictEntities rejects entities missing from Entities instead of using
	// the name as a table.
	StrictEntities bool
	// CacheTTL enables the response cache when positive.
	CacheTTL time.Duration
}

// FetchResult is one served entity page.
type FetchResult struct {
	Entity     string          `json:"entity"`
	// Key is the configured entity key that served the request, empty when
	// the entity was used as a bare table name.
	Key        string          `json:"key,omitempty"`
	Query      string          `json:"query"`
	Body       json.RawMessage `json:"body"`
	Rows       int             `json:"rows"`
	Cached     bool            `json:"cached"`
	DurationMs int             `json:"durationMs"`
}

// ConnectorFactory opens a connector for a backend.
type ConnectorFactory func(ctx context.Context, b *domain.Backend, password string) (dbclient.Connector, error)

// GatewayService resolves entities, builds queries, runs them on the backend
// and converts the result pages. The connector is created lazily and reused.
type GatewayService struct {
	cfg          GatewayConfig
	secrets      secret.SecretStore
	cache        domain.ResponseCache
	log          *zap.Logger
	newConnector ConnectorFactory
	now          func() time.Time

	mu        sync.Mutex
	connector dbclient.Connector
}

// NewGatewayService creates a GatewayService. cache may be nil.
func NewGatewayService(
	cfg GatewayConfig,
	secrets secret.SecretStore,
	cache domain.ResponseCache,
	log *zap.Logger,
) *GatewayService {
	if log == nil {
		log = zap.NewNop()
	}
	return &GatewayService{
		cfg:          cfg,
		secrets:      secrets,
		cache:        cache,
		log:          log,
		newConnector: dbclient.NewConnector,
		now:          time.Now,
	}
}

// SetConnectorFactory replaces how connectors are opened. Any open connector
// is closed first.
func (s *GatewayService) SetConnectorFactory(f ConnectorFactory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeConnector()
	s.newConnector = f
}

// Entities returns the configured entity names, sorted.
func (s *GatewayService) Entities() []string {
	names := lo.Keys(s.cfg.Entities)
	sort.Strings(names)
	return names
}

// BuildQuery returns the statement Fetch would run, without running it.
func (s *GatewayService) BuildQuery(entity string, p query.Params) (string, error) {
	target, _, err := s.target(entity)
	if err != nil {
		return "", err
	}
	return query.Build(target.Request(p)), nil
}

// Fetch serves one page of entity.
func (s *GatewayService) Fetch(ctx context.Context, entity string, p query.Params) (*FetchResult, error) {
	target, mapped, err := s.target(entity)
	if err != nil {
		return nil, err
	}
	sql := query.Build(target.Request(p))
	key := s.cacheKey(entity, sql, p.PageToken)

	if hit := s.cached(key); hit != nil {
		return &FetchResult{
			Entity:     entity,
			Key:        mapped,
			Query:      hit.Query,
			Body:       json.RawMessage(hit.Body),
			Rows:       hit.Rows,
			Cached:     true,
			DurationMs: hit.DurationMs,
		}, nil
	}

	conn, err := s.getOrCreate(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackend, err)
	}

	start := s.now()
	page, err := conn.Run(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackend, err)
	}
	body, rows, err := envelope(page, entity, p.PageToken)
	if err != nil {
		return nil, err
	}

	res := &FetchResult{
		Entity:     entity,
		Key:        mapped,
		Query:      sql,
		Body:       body,
		Rows:       rows,
		DurationMs: int(s.now().Sub(start).Milliseconds()),
	}
	s.store(key, res)

	s.log.Debug("entity fetched",
		zap.String("entity", entity),
		zap.String("query", sql),
		zap.Int("rows", rows),
		zap.Int("duration_ms", res.DurationMs),
	)
	return res, nil
}

// ConvertPageJSON converts a raw result page into envelope JSON and reports
// the number of rows.
func ConvertPageJSON(raw []byte, entity, pageToken string) (json.RawMessage, int, error) {
	page, err := transcode.DecodePage(raw)
	if err != nil {
		return nil, 0, fmt.Errorf("decode page: %w", err)
	}
	return envelope(page, entity, pageToken)
}

func envelope(page *transcode.Page, entity, pageToken string) (json.RawMessage, int, error) {
	env, err := transcode.ConvertPage(page, entity, pageToken)
	if err != nil {
		return nil, 0, fmt.Errorf("convert %s: %w", entity, err)
	}
	body, err := env.MarshalJSON()
	if err != nil {
		return nil, 0, fmt.Errorf("encode %s: %w", entity, err)
	}
	return body, len(env.Rows), nil
}

// TestConnection verifies the backend is reachable.
func (s *GatewayService) TestConnection(ctx context.Context) error {
	conn, err := s.getOrCreate(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBackend, err)
	}
	if err := conn.TestConnection(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrBackend, err)
	}
	return nil
}

// target resolves entity against the configured mapping and returns the
// matching key, empty when entity is not configured. Configuration loaders
// lower-case map keys, so a lower-cased match is accepted too.
func (s *GatewayService) target(entity string) (query.Target, string, error) {
	key := entity
	if _, ok := s.cfg.Entities[key]; !ok {
		if lower := strings.ToLower(entity); lower != entity {
			if _, ok := s.cfg.Entities[lower]; ok {
				key = lower
			}
		}
	}
	_, configured := s.cfg.Entities[key]
	if !configured && s.cfg.StrictEntities {
		return query.Target{}, "", fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}

	target := query.Resolve(key, s.cfg.Entities)
	if target.IsZero() {
		return query.Target{}, "", fmt.Errorf("%w: %s has no table or query", ErrUnknownEntity, entity)
	}
	if !configured {
		key = ""
	}
	return target, key, nil
}

// ── Response cache ─────────────────────────────────────────

func (s *GatewayService) cacheKey(entity, sql, pageToken string) string {
	h := sha256.New()
	for _, part := range []string{s.cfg.Backend.Name, entity, sql, pageToken} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (s *GatewayService) cached(key string) *domain.CachedResponse {
	if s.cache == nil || s.cfg.CacheTTL <= 0 {
		return nil
	}
	hit, err := s.cache.Get(key)
	if err != nil {
		s.log.Warn("response cache lookup failed", zap.Error(err))
		return nil
	}
	return hit
}

func (s *GatewayService) store(key string, res *FetchResult) {
	if s.cache == nil || s.cfg.CacheTTL <= 0 {
		return
	}
	now := s.now()
	err := s.cache.Put(&domain.CachedResponse{
		CacheKey:   key,
		Entity:     res.Entity,
		Query:      res.Query,
		Body:       string(res.Body),
		Rows:       res.Rows,
		DurationMs: res.DurationMs,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.cfg.CacheTTL),
	})
	if err != nil {
		s.log.Warn("response cache store failed", zap.Error(err))
	}
}

// ── Connector Pool ─────────────────────────────────────────

func (s *GatewayService) getOrCreate(ctx context.Context) (dbclient.Connector, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connector != nil {
		return s.connector, nil
	}

	var password string
	if s.secrets != nil {
		pw, err := s.secrets.Get(s.cfg.Backend.SecretKey())
		if err != nil {
			s.log.Warn("secret lookup failed", zap.String("backend", s.cfg.Backend.Name), zap.Error(err))
		}
		password = string(pw)
	}

	conn, err := s.newConnector(ctx, &s.cfg.Backend, password)
	if err != nil {
		return nil, fmt.Errorf("open backend %s: %w", s.cfg.Backend.Name, err)
	}
	s.connector = conn
	s.log.Info("backend connector opened",
		zap.String("backend", s.cfg.Backend.Name),
		zap.String("driver", string(s.cfg.Backend.Driver)),
	)
	return conn, nil
}

// Close tears down the backend connector.
func (s *GatewayService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeConnector()
}

// closeConnector must be called with s.mu held.
func (s *GatewayService) closeConnector() {
	if s.connector != nil {
		_ = s.connector.Close()
		s.connector = nil
	}
}
