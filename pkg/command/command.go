// Package command implements the command-collection drain: the kernel's
// only inbound channel for external control (pause/resume, set_goal,
// set_policy, inject_event, set_param — spec.md §6), applied between
// steps so the step loop never observes a command mid-step.
package command

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/proxima-sim/proxima/pkg/kernel"
	"github.com/proxima-sim/proxima/pkg/kernelerr"
	"github.com/proxima-sim/proxima/pkg/store"
)

// Kind enumerates the command collection's closed set of operations.
type Kind string

const (
	KindPause       Kind = "pause"
	KindResume      Kind = "resume"
	KindSetGoal     Kind = "set_goal"
	KindSetPolicy   Kind = "set_policy"
	KindInjectEvent Kind = "inject_event"
	KindSetParam    Kind = "set_param"
)

// Command is one document in the commands collection.
type Command struct {
	ID       string          `json:"id"`
	Kind     Kind            `json:"kind"`
	Payload  json.RawMessage `json:"payload"`
	QueuedAt time.Time       `json:"queued_at"`
	Applied  bool            `json:"applied"`
}

type setPolicyPayload struct {
	PolicyID string `json:"policy_id"`
	Enabled  bool   `json:"enabled"`
}

// setGoalPayload names a registered goal and any of its target/bounds/
// weight fields to overwrite; omitted fields are left unchanged.
type setGoalPayload struct {
	GoalID string   `json:"goal_id"`
	Target *float64 `json:"target"`
	Lo     *float64 `json:"lo"`
	Hi     *float64 `json:"hi"`
	Weight *float64 `json:"weight"`
}

// injectEventPayload covers both set_param and inject_event: each names a
// sector/metric pair and a value to attribute to it for the next step's
// evaluation — the same operation the kernel exposes as
// InjectMetricContribution, regardless of which command kind triggered it.
type injectEventPayload struct {
	SectorID string  `json:"sector_id"`
	MetricID string  `json:"metric_id"`
	Value    float64 `json:"value"`
}

// Drain fetches every undelivered command from the store, applies them in
// queued_at order against k (and, for set_policy, against the registered
// policy by id), marks each applied, and returns the count applied. A
// malformed command is logged and skipped rather than aborting the drain —
// one bad command document must never stall every other control input.
func Drain(ctx context.Context, s store.Store, k *kernel.Kernel) (int, error) {
	docs, err := s.List(ctx, store.CollectionCommands)
	if err != nil {
		return 0, &kernelerr.StoreUnavailableError{Sink: "commands", Err: err}
	}

	var cmds []Command
	for _, doc := range docs {
		raw, err := json.Marshal(doc)
		if err != nil {
			slog.Warn("command: malformed document skipped", "error", err)
			continue
		}
		var c Command
		if err := json.Unmarshal(raw, &c); err != nil {
			slog.Warn("command: malformed document skipped", "error", err)
			continue
		}
		if c.Applied {
			continue
		}
		cmds = append(cmds, c)
	}

	sort.Slice(cmds, func(i, j int) bool { return cmds[i].QueuedAt.Before(cmds[j].QueuedAt) })

	applied := 0
	for _, c := range cmds {
		if err := apply(k, c); err != nil {
			slog.Error("command: apply failed, skipped", "id", c.ID, "kind", c.Kind, "error", err)
			continue
		}
		applied++
		if err := s.Put(ctx, store.CollectionCommands, c.ID, map[string]any{
			"id": c.ID, "kind": string(c.Kind), "payload": c.Payload, "queued_at": c.QueuedAt, "applied": true,
		}); err != nil {
			slog.Error("command: mark-applied write failed", "id", c.ID, "error", err)
		}
	}
	return applied, nil
}

func apply(k *kernel.Kernel, c Command) error {
	switch c.Kind {
	case KindPause:
		k.Pause()
		return nil
	case KindResume:
		k.Resume()
		return nil
	case KindSetPolicy:
		var p setPolicyPayload
		if err := json.Unmarshal(c.Payload, &p); err != nil {
			return fmt.Errorf("decode set_policy: %w", err)
		}
		pol, ok := k.Policies()[p.PolicyID]
		if !ok {
			return fmt.Errorf("set_policy: unknown policy %q", p.PolicyID)
		}
		pol.SetEnabled(p.Enabled)
		return nil
	case KindSetParam, KindInjectEvent:
		var p injectEventPayload
		if err := json.Unmarshal(c.Payload, &p); err != nil {
			return fmt.Errorf("decode %s: %w", c.Kind, err)
		}
		k.InjectMetricContribution(p.SectorID, p.MetricID, p.Value)
		return nil
	case KindSetGoal:
		var p setGoalPayload
		if err := json.Unmarshal(c.Payload, &p); err != nil {
			return fmt.Errorf("decode set_goal: %w", err)
		}
		return k.SetGoal(p.GoalID, p.Target, p.Lo, p.Hi, p.Weight)
	default:
		return fmt.Errorf("unknown command kind %q", c.Kind)
	}
}
