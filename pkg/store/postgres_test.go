package store

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// skipUnlessIntegration enforces the gate documented for the
// Postgres-backed Store: exercised with a real database only when built
// with -tags=integration or when PROXIMA_TEST_DB names a reachable
// connection string, mirroring the teacher's CI/local dual-mode
// (test/database/client.go) without needing a second, schema-isolated
// database per test, since NewPostgres's own golang-migrate migrations
// are idempotent and every document here carries a unique id.
func skipUnlessIntegration(t *testing.T) {
	t.Helper()
	if integrationTagSet {
		return
	}
	if os.Getenv("PROXIMA_TEST_DB") == "" {
		t.Skip("set PROXIMA_TEST_DB or build with -tags=integration to exercise the Postgres-backed store")
	}
}

var (
	sharedContainerOnce sync.Once
	sharedContainerURI  string
	sharedContainerErr  error
)

// testPostgresURI returns a connection string: PROXIMA_TEST_DB if set,
// otherwise a testcontainers-managed Postgres started once and shared by
// every test in this package.
func testPostgresURI(t *testing.T) string {
	t.Helper()
	if uri := os.Getenv("PROXIMA_TEST_DB"); uri != "" {
		return uri
	}

	sharedContainerOnce.Do(func() {
		ctx := context.Background()
		container, err := postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("proxima_test"),
			postgres.WithUsername("proxima"),
			postgres.WithPassword("proxima"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		if err != nil {
			sharedContainerErr = err
			return
		}
		sharedContainerURI, sharedContainerErr = container.ConnectionString(ctx, "sslmode=disable")
	})
	require.NoError(t, sharedContainerErr, "failed to start shared postgres testcontainer")
	return sharedContainerURI
}

func newTestPostgres(t *testing.T) *Postgres {
	t.Helper()
	skipUnlessIntegration(t)

	s, err := NewPostgres(context.Background(), Config{URI: testPostgresURI(t)})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPostgresPutGetDeleteRoundTrip(t *testing.T) {
	s := newTestPostgres(t)
	ctx := context.Background()

	doc := map[string]any{"id": "exp-postgres-roundtrip", "seed": float64(42)}
	require.NoError(t, s.Put(ctx, CollectionExperiments, "exp-postgres-roundtrip", doc))
	t.Cleanup(func() { _ = s.Delete(ctx, CollectionExperiments, "exp-postgres-roundtrip") })

	got, err := s.Get(ctx, CollectionExperiments, "exp-postgres-roundtrip")
	require.NoError(t, err)
	require.Equal(t, "exp-postgres-roundtrip", got["id"])
	require.Equal(t, float64(42), got["seed"])

	require.NoError(t, s.Delete(ctx, CollectionExperiments, "exp-postgres-roundtrip"))
	_, err = s.Get(ctx, CollectionExperiments, "exp-postgres-roundtrip")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresPutOverwritesAnExistingDocument(t *testing.T) {
	s := newTestPostgres(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, CollectionGoals, "goal-overwrite", map[string]any{"id": "goal-overwrite", "weight": 1.0}))
	t.Cleanup(func() { _ = s.Delete(ctx, CollectionGoals, "goal-overwrite") })
	require.NoError(t, s.Put(ctx, CollectionGoals, "goal-overwrite", map[string]any{"id": "goal-overwrite", "weight": 2.0}))

	got, err := s.Get(ctx, CollectionGoals, "goal-overwrite")
	require.NoError(t, err)
	require.Equal(t, 2.0, got["weight"])
}

func TestPostgresListReturnsEveryDocumentInACollection(t *testing.T) {
	s := newTestPostgres(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, CollectionPolicies, "policy-list-a", map[string]any{"id": "policy-list-a"}))
	require.NoError(t, s.Put(ctx, CollectionPolicies, "policy-list-b", map[string]any{"id": "policy-list-b"}))
	t.Cleanup(func() {
		_ = s.Delete(ctx, CollectionPolicies, "policy-list-a")
		_ = s.Delete(ctx, CollectionPolicies, "policy-list-b")
	})

	docs, err := s.List(ctx, CollectionPolicies)
	require.NoError(t, err)

	ids := make(map[string]bool, len(docs))
	for _, d := range docs {
		ids[d["id"].(string)] = true
	}
	require.True(t, ids["policy-list-a"])
	require.True(t, ids["policy-list-b"])
}

func TestPostgresWriteStepLogUpsertsByExperimentAndStep(t *testing.T) {
	s := newTestPostgres(t)
	ctx := context.Background()

	require.NoError(t, s.WriteStepLog(ctx, "exp-steplog", 0, map[string]any{"t": 0.0, "dropped_count": 0.0}))
	require.NoError(t, s.WriteStepLog(ctx, "exp-steplog", 0, map[string]any{"t": 0.0, "dropped_count": 3.0}))
}

func TestPostgresMigrationsAreIdempotentAcrossConnections(t *testing.T) {
	skipUnlessIntegration(t)
	uri := testPostgresURI(t)

	first, err := NewPostgres(context.Background(), Config{URI: uri})
	require.NoError(t, err)
	defer first.Close()

	second, err := NewPostgres(context.Background(), Config{URI: uri})
	require.NoError(t, err)
	defer second.Close()
}
