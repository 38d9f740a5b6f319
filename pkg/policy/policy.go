// Package policy implements the Policy Engine: a registry of policies
// sharing a uniform contract, applied in insertion order each step, that
// steer sector throttles and target rates in response to the previous
// step's evaluation.
package policy

import (
	"log/slog"

	"github.com/proxima-sim/proxima/pkg/model"
)

// Effect is one mutation a policy's Apply wants applied to a sector.
type Effect struct {
	PolicyID   string
	SectorID   string
	Kind       string // "set_throttle_factor", "set_target_rate", "request_build"
	Value      float64
	ModuleType string
	Qty        int
}

// World is the narrow surface policies may read: sector mutators, keyed by
// sector id, and a construction-request sink for request_build effects.
// Policies never read stocks directly.
type World struct {
	Sectors      map[string]Mutator
	RequestBuild func(moduleType string, qty int)
}

// Mutator is the subset of a sector a policy may call through.
type Mutator interface {
	SetThrottleFactor(f float64)
	SetTargetRate(r float64)
}

// Policy is the uniform contract every built-in and configured policy
// implements.
type Policy interface {
	ID() string
	Enabled() bool
	SetEnabled(bool)
	Apply(world World, evalResult model.EvaluationResult) []Effect
}

// Engine runs every enabled policy in insertion order and aggregates their
// effects, applying each through the target sector's mutator.
type Engine struct {
	policies []Policy
}

// New constructs an empty Engine.
func New() *Engine { return &Engine{} }

// Register appends a policy to the end of the insertion order.
func (e *Engine) Register(p Policy) { e.policies = append(e.policies, p) }

// Step applies every enabled policy's effects, in registration order, and
// returns the full aggregated effect list for the step log.
func (e *Engine) Step(world World, evalResult model.EvaluationResult) []Effect {
	var all []Effect
	for _, p := range e.policies {
		if !p.Enabled() {
			continue
		}
		effects := p.Apply(world, evalResult)
		for _, eff := range effects {
			applyEffect(world, eff)
		}
		all = append(all, effects...)
	}
	return all
}

func applyEffect(world World, eff Effect) {
	switch eff.Kind {
	case "set_throttle_factor":
		if m, ok := world.Sectors[eff.SectorID]; ok {
			m.SetThrottleFactor(eff.Value)
		} else {
			slog.Warn("policy effect targets unknown sector", "sector", eff.SectorID, "kind", eff.Kind)
		}
	case "set_target_rate":
		if m, ok := world.Sectors[eff.SectorID]; ok {
			m.SetTargetRate(eff.Value)
		} else {
			slog.Warn("policy effect targets unknown sector", "sector", eff.SectorID, "kind", eff.Kind)
		}
	case "request_build":
		if world.RequestBuild != nil {
			world.RequestBuild(eff.ModuleType, eff.Qty)
		}
	}
}
