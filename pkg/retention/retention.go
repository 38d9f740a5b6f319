// Package retention periodically prunes old step logs and superseded
// snapshots from the document store, the way pkg/cleanup's teacher
// service prunes old sessions and events: a ticking background loop,
// idempotent and safe to run from multiple processes, that a read-write
// run starts alongside the kernel.
//
// Logs are pruned by simulation step age, not wall-clock age: a log row
// older than LogRetentionSteps behind the current step is dropped.
// Snapshots are pruned by count, always keeping the most recent
// SnapshotKeepCount, and the sweep keeps at least one snapshot
// regardless of configuration (SPEC_FULL.md §8's Last Known Good
// guarantee for resume-after-crash) — a snapshot document is never
// deleted if doing so would leave the collection empty.
package retention

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/proxima-sim/proxima/pkg/store"
)

// Config controls how aggressively the sweeper prunes.
type Config struct {
	LogRetentionSteps int
	SnapshotKeepCount int
	Interval          time.Duration
}

// Service runs the sweep loop. CurrentStep reports the kernel's current
// step so log age can be computed; it is read fresh on every sweep so a
// paused kernel simply stops aging out new logs.
type Service struct {
	config      Config
	store       store.Store
	currentStep func() int

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new retention service. currentStep must return the
// kernel's current step T.
func NewService(cfg Config, s store.Store, currentStep func() int) *Service {
	return &Service{config: cfg, store: s, currentStep: currentStep}
}

// Start launches the background sweep loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Retention service started",
		"log_retention_steps", s.config.LogRetentionSteps,
		"snapshot_keep_count", s.config.SnapshotKeepCount,
		"interval", s.config.Interval)
}

// Stop signals the sweep loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("Retention service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.runAll(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

func (s *Service) runAll(ctx context.Context) {
	s.pruneOldLogs(ctx)
	s.pruneSupersededSnapshots(ctx)
}

func (s *Service) pruneOldLogs(ctx context.Context) {
	if s.config.LogRetentionSteps <= 0 {
		return
	}
	docs, err := s.store.List(ctx, store.CollectionLogs)
	if err != nil {
		slog.Error("Retention: list logs failed", "error", err)
		return
	}
	cutoff := s.currentStep() - s.config.LogRetentionSteps
	count := 0
	for _, doc := range docs {
		t, ok := stepOf(doc)
		if !ok || t >= cutoff {
			continue
		}
		id, ok := doc["id"].(string)
		if !ok {
			continue
		}
		if err := s.store.Delete(ctx, store.CollectionLogs, id); err != nil {
			slog.Error("Retention: delete log failed", "id", id, "error", err)
			continue
		}
		count++
	}
	if count > 0 {
		slog.Info("Retention: pruned old step logs", "count", count, "cutoff_step", cutoff)
	}
}

func (s *Service) pruneSupersededSnapshots(ctx context.Context) {
	keep := s.config.SnapshotKeepCount
	if keep <= 0 {
		keep = 1
	}
	docs, err := s.store.List(ctx, store.CollectionSnapshots)
	if err != nil {
		slog.Error("Retention: list snapshots failed", "error", err)
		return
	}
	if len(docs) <= keep {
		return
	}

	sort.Slice(docs, func(i, j int) bool {
		ti, _ := stepOf(docs[i])
		tj, _ := stepOf(docs[j])
		return ti > tj // newest first
	})

	count := 0
	for _, doc := range docs[keep:] {
		id, ok := doc["id"].(string)
		if !ok {
			continue
		}
		if err := s.store.Delete(ctx, store.CollectionSnapshots, id); err != nil {
			slog.Error("Retention: delete snapshot failed", "id", id, "error", err)
			continue
		}
		count++
	}
	if count > 0 {
		slog.Info("Retention: pruned superseded snapshots", "count", count, "kept", keep)
	}
}

// stepOf extracts the "t" field a log or snapshot document was stored
// with. Documents lacking it (or with a non-numeric value) are never
// eligible for age-based pruning.
func stepOf(doc map[string]any) (int, bool) {
	switch v := doc["t"].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
