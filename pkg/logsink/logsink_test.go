package logsink

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proxima-sim/proxima/pkg/kernel"
	"github.com/proxima-sim/proxima/pkg/store"
)

func TestCSVWritesHeaderOnceAndAppendsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.csv")

	c1, err := NewCSV(path)
	require.NoError(t, err)
	require.NoError(t, c1.Write(kernel.StepLog{T: 0, Metrics: map[string]float64{"dust_coverage": 0.1}}))
	require.NoError(t, c1.Close())

	c2, err := NewCSV(path)
	require.NoError(t, err)
	require.NoError(t, c2.Write(kernel.StepLog{T: 1}))
	require.NoError(t, c2.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	assert.Equal(t, "t,metrics,scores,effects_count,errors_count,dropped_count", lines[0])
	assert.Len(t, lines, 3) // header + 2 rows
}

func TestRemoteUploadsStepLogToLogsCollection(t *testing.T) {
	s := store.NewMemory()
	r := NewRemote(s, "exp-1", 4)
	require.NoError(t, r.Write(kernel.StepLog{T: 5, Metrics: map[string]float64{"science_output": 12}}))
	require.NoError(t, r.Close())

	docs, err := s.List(context.Background(), store.CollectionLogs)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "exp-1", docs[0]["experiment_id"])
	assert.Equal(t, int64(0), r.Dropped())
}

func TestMultiWritesToAllSinksEvenWhenOneFails(t *testing.T) {
	ok := &countingSink{}
	failing := &failingSink{}
	m := &Multi{Sinks: []Sink{ok, failing}}

	err := m.Write(kernel.StepLog{T: 1})
	assert.Error(t, err)
	assert.Equal(t, 1, ok.writes)
	require.NoError(t, m.Close())
}

type countingSink struct{ writes int }

func (c *countingSink) Write(kernel.StepLog) error { c.writes++; return nil }
func (c *countingSink) Close() error               { return nil }

type failingSink struct{}

func (failingSink) Write(kernel.StepLog) error { return assert.AnError }
func (failingSink) Close() error               { return nil }
