// Package logsink implements spec.md §6's simulation log sink: every step
// the kernel produces, a Sink persists it durably (CSV for local
// inspection, a remote document-store upload for the dashboard/CLI to
// read back). The remote sink never blocks the step loop — writes queue
// internally and retry with exponential backoff via
// github.com/cenkalti/backoff/v4 (SPEC_FULL.md §7).
package logsink

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/proxima-sim/proxima/pkg/kernel"
	"github.com/proxima-sim/proxima/pkg/kernelerr"
	"github.com/proxima-sim/proxima/pkg/store"
)

// Sink persists one step's log. Write must not block the caller for longer
// than the local portion of the write (any remote upload happens on a
// background goroutine).
type Sink interface {
	Write(log kernel.StepLog) error
	Close() error
}

// Multi fans a step log out to every configured sink; a failing sink is
// logged and does not prevent delivery to the others.
type Multi struct {
	Sinks []Sink
}

func (m *Multi) Write(log kernel.StepLog) error {
	var firstErr error
	for _, s := range m.Sinks {
		if err := s.Write(log); err != nil {
			slog.Error("logsink: sink write failed", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (m *Multi) Close() error {
	var firstErr error
	for _, s := range m.Sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// CSV is a flat, append-only CSV sink: one row per step, columns t,
// metrics (JSON-encoded), scores (JSON-encoded), effects_count,
// errors_count, dropped_count.
// Metrics are kept as a single JSON cell rather than one column per metric
// id because the active metric set can grow mid-run (a command can inject
// a metric no prior step ever contributed to).
type CSV struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSV opens (or creates) path for appending and writes the header if
// the file is new.
func NewCSV(path string) (*CSV, error) {
	info, statErr := os.Stat(path)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open csv log %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	c := &CSV{file: f, writer: w}
	if statErr != nil || info.Size() == 0 {
		if err := w.Write([]string{"t", "metrics", "scores", "effects_count", "errors_count", "dropped_count"}); err != nil {
			f.Close()
			return nil, err
		}
		w.Flush()
	}
	return c, nil
}

func (c *CSV) Write(log kernel.StepLog) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	metricsJSON, err := json.Marshal(log.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	scoresJSON, err := json.Marshal(log.Scores)
	if err != nil {
		return fmt.Errorf("marshal scores: %w", err)
	}
	row := []string{
		strconv.Itoa(log.T),
		string(metricsJSON),
		string(scoresJSON),
		strconv.Itoa(len(log.Effects)),
		strconv.Itoa(len(log.Errors)),
		strconv.Itoa(log.DroppedCount),
	}
	if err := c.writer.Write(row); err != nil {
		return fmt.Errorf("write csv row: %w", err)
	}
	c.writer.Flush()
	return c.writer.Error()
}

func (c *CSV) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writer.Flush()
	return c.file.Close()
}

// Remote uploads each step's log to a document store's logs collection,
// asynchronously. A failed upload is retried with exponential backoff on a
// background goroutine; the step loop is never blocked waiting for a
// remote write. Uploads that exhaust MaxElapsedTime are dropped and
// counted in Dropped(), surfaced on GET /health as log_dropped.
type Remote struct {
	store        store.Store
	experimentID string

	queue chan kernel.StepLog
	done  chan struct{}

	dropped atomic.Int64
}

// NewRemote starts the background upload worker, buffering up to
// queueDepth pending step logs before Write begins blocking (applying
// backpressure rather than unbounded memory growth if the store is down
// for a sustained period).
func NewRemote(s store.Store, experimentID string, queueDepth int) *Remote {
	r := &Remote{
		store:        s,
		experimentID: experimentID,
		queue:        make(chan kernel.StepLog, queueDepth),
		done:         make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *Remote) Write(log kernel.StepLog) error {
	select {
	case r.queue <- log:
		return nil
	case <-r.done:
		return fmt.Errorf("logsink: remote sink closed")
	}
}

func (r *Remote) Close() error {
	close(r.queue)
	<-r.done
	return nil
}

// Dropped reports how many step logs were permanently dropped after
// exhausting their upload retry budget.
func (r *Remote) Dropped() int64 { return r.dropped.Load() }

func (r *Remote) run() {
	defer close(r.done)
	for log := range r.queue {
		r.uploadWithRetry(log)
	}
}

func (r *Remote) uploadWithRetry(log kernel.StepLog) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = time.Minute

	op := func() error {
		id := fmt.Sprintf("%s-%d-%s", r.experimentID, log.T, uuid.NewString())
		doc := map[string]any{
			"id":            id,
			"experiment_id": r.experimentID,
			"t":             log.T,
			"metrics":       log.Metrics,
			"scores":        log.Scores,
			"dropped_count": log.DroppedCount,
			"errors":        log.Errors,
		}
		if err := r.store.Put(context.Background(), store.CollectionLogs, id, doc); err != nil {
			return &kernelerr.StoreUnavailableError{Sink: "logsink.remote", Err: err}
		}
		return nil
	}

	if err := backoff.Retry(op, b); err != nil {
		slog.Error("logsink: remote upload dropped after exhausting retry budget",
			"t", log.T, "experiment_id", r.experimentID, "error", err)
		r.dropped.Add(1)
	}
}
