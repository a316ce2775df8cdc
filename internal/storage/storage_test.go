package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bqgate/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "bqgate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// ─── Migrations ─────────────────────────────────────────────

func TestNew_MigrationsAreRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "bqgate.db")
	db, err := New(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = New(path)
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, path, db.Path())
}

// ─── Response cache ─────────────────────────────────────────

func TestResponseCache_PutGet(t *testing.T) {
	store := NewResponseCacheStore(openTestDB(t))
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	err := store.Put(&domain.CachedResponse{
		CacheKey:  "k1",
		Entity:    "orders",
		Query:     "SELECT * FROM orders    ",
		Body:      `{"orders":[],"next_page_token":2}`,
		ExpiresAt: now.Add(time.Minute),
	})
	require.NoError(t, err)

	got, err := store.Get("k1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "orders", got.Entity)
	assert.Equal(t, `{"orders":[],"next_page_token":2}`, got.Body)
	assert.True(t, got.ExpiresAt.Equal(now.Add(time.Minute)))

	missing, err := store.Get("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestResponseCache_Upsert(t *testing.T) {
	store := NewResponseCacheStore(openTestDB(t))
	exp := time.Now().Add(time.Hour)

	require.NoError(t, store.Put(&domain.CachedResponse{CacheKey: "k", Entity: "a", Body: "1", ExpiresAt: exp}))
	require.NoError(t, store.Put(&domain.CachedResponse{CacheKey: "k", Entity: "a", Body: "2", ExpiresAt: exp}))

	got, err := store.Get("k")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "2", got.Body)
}

func TestResponseCache_Expiry(t *testing.T) {
	store := NewResponseCacheStore(openTestDB(t))
	now := time.Now()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Put(&domain.CachedResponse{CacheKey: "old", Entity: "a", Body: "{}", ExpiresAt: now.Add(-time.Second)}))
	require.NoError(t, store.Put(&domain.CachedResponse{CacheKey: "new", Entity: "a", Body: "{}", ExpiresAt: now.Add(time.Hour)}))

	got, err := store.Get("old")
	require.NoError(t, err)
	assert.Nil(t, got)

	n, err := store.PurgeExpired()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err = store.Get("new")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

// ─── Snapshot runs ──────────────────────────────────────────

func TestSnapshotStore_RunLifecycle(t *testing.T) {
	store := NewSnapshotStore(openTestDB(t))

	last, err := store.LastRun("daily")
	require.NoError(t, err)
	assert.Nil(t, last)

	start := time.Now().Add(-time.Minute)
	first := &domain.SnapshotRun{JobName: "daily", Status: "running", StartedAt: start}
	require.NoError(t, store.CreateRun(first))
	require.NotEmpty(t, first.ID)

	done := start.Add(2 * time.Second)
	first.Status = "success"
	first.Rows = 3
	first.Query = "SELECT * FROM t    "
	first.OutputPath = "out/daily.json"
	first.FinishedAt = &done
	first.DurationMs = 2000
	require.NoError(t, store.UpdateRun(first))

	second := &domain.SnapshotRun{JobName: "daily", Status: "error", Error: "boom", StartedAt: start.Add(time.Second)}
	require.NoError(t, store.CreateRun(second))
	require.NoError(t, store.CreateRun(&domain.SnapshotRun{JobName: "other", Status: "success", StartedAt: start}))

	runs, err := store.ListRuns("daily", 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Nil(t, runs[0].FinishedAt)
	assert.Equal(t, "success", runs[1].Status)
	assert.Equal(t, 3, runs[1].Rows)
	assert.Equal(t, "SELECT * FROM t    ", runs[1].Query)
	require.NotNil(t, runs[1].FinishedAt)

	last, err = store.LastRun("daily")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "boom", last.Error)
}
