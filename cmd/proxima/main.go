// Proxima is the lunar-base simulation kernel's CLI runner: it resolves
// an experiment's configuration from the document store, runs the World
// Orchestrator's step loop, drains commands and persists snapshots every
// few steps, and serves the read/control HTTP surface alongside it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/proxima-sim/proxima/pkg/api"
	"github.com/proxima-sim/proxima/pkg/command"
	"github.com/proxima-sim/proxima/pkg/config"
	"github.com/proxima-sim/proxima/pkg/kernel"
	"github.com/proxima-sim/proxima/pkg/kernelerr"
	"github.com/proxima-sim/proxima/pkg/logsink"
	"github.com/proxima-sim/proxima/pkg/retention"
	"github.com/proxima-sim/proxima/pkg/store"
	"github.com/proxima-sim/proxima/pkg/version"
)

// Exit codes, per spec.md §6's CLI surface.
const (
	exitOK               = 0
	exitConfigError      = 2
	exitStrictOverdraft  = 3
	exitStoreUnreachable = 4
)

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 || args[0] != "run" {
		fmt.Fprintln(os.Stderr, "usage: proxima run --experiment-id <id> [--steps N] [--seed S] [--read-only]")
		return exitConfigError
	}

	if err := godotenv.Load(); err != nil {
		slog.Debug("proxima: no .env file loaded", "error", err)
	}

	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	experimentID := fs.String("experiment-id", getEnv("EXPERIMENT_ID", ""), "experiment id to resolve and run")
	steps := fs.Int("steps", 0, "number of steps to run before exiting (0 = run until stopped)")
	seed := fs.Int64("seed", 0, "run seed, overriding the experiment's configured seed (0 = use configured seed)")
	readOnly := fs.Bool("read-only", getEnvBool("READ_ONLY", false), "seed an in-memory store from fixtures and never write logs, snapshots or drain commands back")
	if err := fs.Parse(args[1:]); err != nil {
		return exitConfigError
	}
	if *experimentID == "" {
		slog.Error("proxima: --experiment-id (or EXPERIMENT_ID) is required")
		return exitConfigError
	}

	slog.Info("starting proxima", "version", version.Full(), "experiment_id", *experimentID, "read_only", *readOnly)

	ctx := context.Background()

	s, err := openStore(ctx, *readOnly)
	if err != nil {
		slog.Error("proxima: document store unreachable", "error", err)
		return exitStoreUnreachable
	}
	defer s.Close()

	rw, err := config.NewBuilder(s).Resolve(ctx, *experimentID)
	if err != nil {
		slog.Error("proxima: failed to resolve experiment configuration", "error", err)
		return exitConfigError
	}

	runSeed := *seed
	if runSeed == 0 {
		runSeed = rw.Experiment.Seed
	}

	k, err := kernel.New(rw, runSeed)
	if err != nil {
		slog.Error("proxima: failed to build kernel", "error", err)
		return exitConfigError
	}

	sink, remote := buildLogSink(s, *experimentID, *readOnly)
	defer func() {
		if err := sink.Close(); err != nil {
			slog.Warn("proxima: log sink close failed", "error", err)
		}
	}()

	var dropped func() int64
	if remote != nil {
		dropped = remote.Dropped
	}

	if !*readOnly {
		retentionSvc := retention.NewService(retention.Config{
			LogRetentionSteps: getEnvInt("LOG_RETENTION_STEPS", 100_000),
			SnapshotKeepCount: getEnvInt("SNAPSHOT_KEEP_COUNT", 3),
			Interval:          time.Duration(getEnvInt("RETENTION_INTERVAL_S", 300)) * time.Second,
		}, s, func() int { return k.T })
		retentionCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		retentionSvc.Start(retentionCtx)
		defer retentionSvc.Stop()
	}

	startHTTPServer(k, s, dropped)

	return runLoop(ctx, k, s, sink, *steps, *readOnly)
}

// openStore connects to Postgres, or returns an in-memory store seeded
// from FIXTURE_PATH's YAML fixtures when readOnly is set.
func openStore(ctx context.Context, readOnly bool) (store.Store, error) {
	if readOnly {
		m := store.NewMemory()
		if path := getEnv("FIXTURE_PATH", ""); path != "" {
			if err := store.LoadFixtures(ctx, m, path); err != nil {
				return nil, fmt.Errorf("load fixtures: %w", err)
			}
		}
		return m, nil
	}

	dbURI := getEnv("DB_URI", "")
	if dbURI == "" {
		return nil, fmt.Errorf("DB_URI is required outside --read-only")
	}
	return store.NewPostgres(ctx, store.Config{URI: dbURI})
}

func buildLogSink(s store.Store, experimentID string, readOnly bool) (logsink.Sink, *logsink.Remote) {
	multi := &logsink.Multi{}
	if csvPath := getEnv("LOG_CSV_PATH", ""); csvPath != "" {
		csv, err := logsink.NewCSV(csvPath)
		if err != nil {
			slog.Warn("proxima: csv log sink disabled", "error", err)
		} else {
			multi.Sinks = append(multi.Sinks, csv)
		}
	}
	var remote *logsink.Remote
	if !readOnly {
		remote = logsink.NewRemote(s, experimentID, getEnvInt("LOG_QUEUE_DEPTH", 64))
		multi.Sinks = append(multi.Sinks, remote)
	}
	return multi, remote
}

func startHTTPServer(k *kernel.Kernel, s store.Store, dropped func() int64) {
	gin.SetMode(getEnv("GIN_MODE", gin.ReleaseMode))
	router := gin.Default()
	api.NewServer(k, s, dropped).Register(router)

	port := getEnv("HTTP_PORT", "8080")
	go func() {
		if err := router.Run(":" + port); err != nil {
			slog.Error("proxima: http server stopped", "error", err)
		}
	}()
	slog.Info("proxima: http server listening", "port", port)
}

// runLoop steps the kernel, draining commands and persisting a snapshot
// every updateCycles steps (per UPDATE_CYCLES), pacing itself by
// UPDATE_RATE_MS when set. A read-only run never drains commands or
// writes snapshots, since its store is a disposable fixture seed.
func runLoop(ctx context.Context, k *kernel.Kernel, s store.Store, sink logsink.Sink, maxSteps int, readOnly bool) int {
	updateRateMS := getEnvInt("UPDATE_RATE_MS", 0)
	updateCycles := getEnvInt("UPDATE_CYCLES", 1)
	if updateCycles <= 0 {
		updateCycles = 1
	}

	sinceMaintenance := 0
	for i := 0; maxSteps == 0 || i < maxSteps; i++ {
		log := k.Step()
		if err := sink.Write(log); err != nil {
			slog.Warn("proxima: log sink write failed", "t", log.T, "error", err)
		}
		if log.StrictOverdraft {
			slog.Error("proxima: strict-mode commit overdraft, stopping run", "t", log.T)
			return exitStrictOverdraft
		}

		if !readOnly {
			sinceMaintenance++
			if sinceMaintenance >= updateCycles {
				sinceMaintenance = 0
				if _, err := command.Drain(ctx, s, k); err != nil {
					slog.Warn("proxima: command drain failed", "error", err)
				}
				if err := persistSnapshot(ctx, s, k); err != nil {
					slog.Warn("proxima: snapshot persist failed", "error", err)
				}
			}
		}

		if updateRateMS > 0 {
			time.Sleep(time.Duration(updateRateMS) * time.Millisecond)
		}
	}

	slog.Info("proxima: run complete", "t", k.T)
	return exitOK
}

func persistSnapshot(ctx context.Context, s store.Store, k *kernel.Kernel) error {
	snap := k.Dump()
	raw, err := snap.Marshal()
	if err != nil {
		return err
	}
	id := fmt.Sprintf("%s-%d", snap.ExperimentID, snap.T)
	doc := map[string]any{"id": id, "experiment_id": snap.ExperimentID, "t": snap.T, "snapshot": string(raw)}
	if err := s.Put(ctx, store.CollectionSnapshots, id, doc); err != nil {
		return &kernelerr.StoreUnavailableError{Sink: "snapshot", Err: err}
	}
	return nil
}
