package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetReturnsErrNotFoundForMissingDoc(t *testing.T) {
	m := NewMemory()
	_, err := m.Get(context.Background(), CollectionGoals, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryPutGetRoundTrips(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Put(ctx, CollectionGoals, "goal-1", map[string]any{"weight": 1.5}))

	doc, err := m.Get(ctx, CollectionGoals, "goal-1")
	require.NoError(t, err)
	assert.Equal(t, 1.5, doc["weight"])
}

func TestMemoryGetReturnsACopyNotTheStoredReference(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Put(ctx, CollectionGoals, "goal-1", map[string]any{"weight": 1.0}))

	doc, err := m.Get(ctx, CollectionGoals, "goal-1")
	require.NoError(t, err)
	doc["weight"] = 999.0

	again, err := m.Get(ctx, CollectionGoals, "goal-1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, again["weight"], "mutating a returned doc must not affect the store")
}

func TestLoadFixturesSeedsMultipleCollections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.yaml")
	yamlContent := `
- collection: goals
  documents:
    goal-dust:
      metric_id: dust_coverage
      weight: 1.0
- collection: environments
  documents:
    env-base:
      distance_km: 384400
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	m := NewMemory()
	require.NoError(t, LoadFixtures(context.Background(), m, path))

	goal, err := m.Get(context.Background(), "goals", "goal-dust")
	require.NoError(t, err)
	assert.Equal(t, "dust_coverage", goal["metric_id"])

	env, err := m.Get(context.Background(), "environments", "env-base")
	require.NoError(t, err)
	assert.Equal(t, 384400, env["distance_km"])
}
