package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-portal/observability"
)

func newTestSQLiteCache(t *testing.T) *SQLiteCache {
	t.Helper()
	cache, err := NewSQLiteCache(filepath.Join(t.TempDir(), "cache.db"), observability.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestSQLiteCache_SetGetDelete(t *testing.T) {
	cache := newTestSQLiteCache(t)
	ctx := context.Background()

	_, ok := cache.Get(ctx, "missing")
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "credit:score:u1", "742", time.Hour))
	val, ok := cache.Get(ctx, "credit:score:u1")
	require.True(t, ok)
	assert.Equal(t, "742", val)

	require.NoError(t, cache.Set(ctx, "credit:score:u1", "801", 0))
	val, ok = cache.Get(ctx, "credit:score:u1")
	require.True(t, ok)
	assert.Equal(t, "801", val)

	require.NoError(t, cache.Delete(ctx, "credit:score:u1"))
	_, ok = cache.Get(ctx, "credit:score:u1")
	assert.False(t, ok)
}

func TestSQLiteCache_ExpiryAndPurge(t *testing.T) {
	cache := newTestSQLiteCache(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "short", "a", time.Minute))
	require.NoError(t, cache.Set(ctx, "shorter", "b", time.Second))
	require.NoError(t, cache.Set(ctx, "forever", "c", 0))

	now = now.Add(2 * time.Second)
	_, ok := cache.Get(ctx, "shorter")
	assert.False(t, ok)

	now = now.Add(time.Hour)
	purged, err := cache.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	val, ok := cache.Get(ctx, "forever")
	assert.True(t, ok)
	assert.Equal(t, "c", val)
}

func TestSQLiteCache_ReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	first, err := NewSQLiteCache(path, observability.Discard())
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "session:revoked:abc", "u1", time.Hour))
	require.NoError(t, first.Close())

	second, err := NewSQLiteCache(path, observability.Discard())
	require.NoError(t, err)
	defer second.Close()

	val, ok := second.Get(ctx, "session:revoked:abc")
	assert.True(t, ok)
	assert.Equal(t, "u1", val)
}
