package retention

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proxima-sim/proxima/pkg/store"
)

func putLog(t *testing.T, s store.Store, id string, step int) {
	t.Helper()
	require.NoError(t, s.Put(context.Background(), store.CollectionLogs, id, map[string]any{"id": id, "t": step}))
}

func putSnapshot(t *testing.T, s store.Store, id string, step int) {
	t.Helper()
	require.NoError(t, s.Put(context.Background(), store.CollectionSnapshots, id, map[string]any{"id": id, "t": step}))
}

func TestPruneOldLogsDeletesOnlyPastRetentionWindow(t *testing.T) {
	s := store.NewMemory()
	putLog(t, s, "log-0", 0)
	putLog(t, s, "log-50", 50)
	putLog(t, s, "log-99", 99)

	svc := NewService(Config{LogRetentionSteps: 50}, s, func() int { return 100 })
	svc.runAll(context.Background())

	docs, err := s.List(context.Background(), store.CollectionLogs)
	require.NoError(t, err)
	assert.Len(t, docs, 2, "only the log older than the retention window should be pruned")

	_, err = s.Get(context.Background(), store.CollectionLogs, "log-0")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPruneSupersededSnapshotsKeepsNewestN(t *testing.T) {
	s := store.NewMemory()
	putSnapshot(t, s, "snap-1", 100)
	putSnapshot(t, s, "snap-2", 200)
	putSnapshot(t, s, "snap-3", 300)

	svc := NewService(Config{SnapshotKeepCount: 2}, s, func() int { return 300 })
	svc.runAll(context.Background())

	docs, err := s.List(context.Background(), store.CollectionSnapshots)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	_, err = s.Get(context.Background(), store.CollectionSnapshots, "snap-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPruneSupersededSnapshotsNeverEmptiesTheCollection(t *testing.T) {
	s := store.NewMemory()
	putSnapshot(t, s, "snap-only", 42)

	svc := NewService(Config{SnapshotKeepCount: 0}, s, func() int { return 42 })
	svc.runAll(context.Background())

	docs, err := s.List(context.Background(), store.CollectionSnapshots)
	require.NoError(t, err)
	assert.Len(t, docs, 1, "the last known good snapshot must never be pruned away")
}
