package progress_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rizom-ai/brains-sub000/internal/progress"
)

func TestMemoryStore_PutThenGet(t *testing.T) {
	store := progress.NewMemoryStore(time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "job-1", progress.JobTrackingEntry{Info: "caller-info"}))

	entry, ok, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "caller-info", entry.Info)
}

func TestMemoryStore_HasReportsUnknownKey(t *testing.T) {
	store := progress.NewMemoryStore(time.Hour)
	has, err := store.Has(context.Background(), "never-tracked")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestMemoryStore_ExpiresAfterTTL(t *testing.T) {
	store := progress.NewMemoryStore(20 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "job-1", progress.JobTrackingEntry{Info: "caller-info"}))
	time.Sleep(40 * time.Millisecond)

	has, err := store.Has(ctx, "job-1")
	require.NoError(t, err)
	assert.False(t, has, "entries older than the TTL must no longer be considered tracked")
}

func TestMemoryStore_PutSweepsExpiredEntries(t *testing.T) {
	store := progress.NewMemoryStore(20 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "old", progress.JobTrackingEntry{Info: "stale"}))
	time.Sleep(40 * time.Millisecond)
	require.NoError(t, store.Put(ctx, "new", progress.JobTrackingEntry{Info: "fresh"}))

	_, ok, err := store.Get(ctx, "old")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = store.Get(ctx, "new")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStore_Delete(t *testing.T) {
	store := progress.NewMemoryStore(time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "job-1", progress.JobTrackingEntry{Info: "caller-info"}))
	require.NoError(t, store.Delete(ctx, "job-1"))

	has, err := store.Has(ctx, "job-1")
	require.NoError(t, err)
	assert.False(t, has)
}
