package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bqgate/internal/domain"
)

// ResponseCacheStore keeps converted envelopes keyed by request fingerprint.
type ResponseCacheStore struct {
	db  *DB
	now func() time.Time
}

// NewResponseCacheStore creates a new ResponseCacheStore.
func NewResponseCacheStore(db *DB) *ResponseCacheStore {
	return &ResponseCacheStore{db: db, now: time.Now}
}

// Put inserts or replaces the entry for r.CacheKey.
func (s *ResponseCacheStore) Put(r *domain.CachedResponse) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}

	_, err := s.db.conn.Exec(
		`INSERT INTO response_cache (id, cache_key, entity, query, body, rows, duration_ms, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET
		   id=excluded.id, entity=excluded.entity, query=excluded.query, body=excluded.body,
		   rows=excluded.rows, duration_ms=excluded.duration_ms, created_at=excluded.created_at,
		   expires_at=excluded.expires_at`,
		r.ID, r.CacheKey, r.Entity, r.Query, r.Body, r.Rows, r.DurationMs, r.CreatedAt, r.ExpiresAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("put cached response: %w", err)
	}
	return nil
}

// Get returns the live entry for cacheKey, or nil when there is none or it
// has expired.
func (s *ResponseCacheStore) Get(cacheKey string) (*domain.CachedResponse, error) {
	row := s.db.conn.QueryRow(
		`SELECT id, cache_key, entity, query, body, rows, duration_ms, created_at, expires_at
		 FROM response_cache WHERE cache_key = ? AND expires_at > ?`,
		cacheKey, s.now().UnixNano(),
	)

	r := &domain.CachedResponse{}
	var expires int64
	err := row.Scan(&r.ID, &r.CacheKey, &r.Entity, &r.Query, &r.Body, &r.Rows, &r.DurationMs, &r.CreatedAt, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cached response: %w", err)
	}
	r.ExpiresAt = time.Unix(0, expires)
	return r, nil
}

// PurgeExpired deletes expired entries and reports how many were removed.
func (s *ResponseCacheStore) PurgeExpired() (int64, error) {
	res, err := s.db.conn.Exec(`DELETE FROM response_cache WHERE expires_at <= ?`, s.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("purge cache: %w", err)
	}
	return res.RowsAffected()
}
