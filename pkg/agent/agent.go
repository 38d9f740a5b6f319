// Package agent implements the per-agent state machines that make up a
// sector's workforce: ISRU extractors, PrintingRobots, AssemblyRobots,
// Rockets, FuelGenerators and ScienceRovers. Every agent type follows the
// same shape — an embedded Base carrying identity/mode/health, a Step
// method advancing exactly one simulated step, and zero or more StockFlow
// entries returned for the caller to record against the ledger.
package agent

import (
	"math"

	"github.com/proxima-sim/proxima/pkg/model"
)

// RNG is the minimal surface Agents need from the kernel's step-seeded
// PRNG. Satisfied directly by *rand.Rand.
type RNG interface {
	Float64() float64
}

// Base carries the identity, mode and health shared by every agent type.
// Concrete agents embed it and call Tick once per Step.
type Base struct {
	model.AgentState
}

// NewBase constructs a Base in IDLE mode with zero age.
func NewBase(id, agentType, sectorID string, lifetimeCap int) Base {
	return Base{
		AgentState: model.AgentState{
			ID:       id,
			Type:     agentType,
			SectorID: sectorID,
			Mode:     model.ModeIdle,
			Health:   model.Health{LifetimeCap: lifetimeCap},
		},
	}
}

// Tick ages the agent by one step and retires it in place once its
// lifetime cap is reached. Every concrete Step method calls this first.
func (b *Base) Tick() {
	if b.Mode == model.ModeRetired {
		return
	}
	b.Health.AgeSteps++
	if b.Health.Expired() {
		b.Mode = model.ModeRetired
	}
}

// Retired reports whether the agent has aged out and should be skipped.
func (b *Base) Retired() bool { return b.Mode == model.ModeRetired }

// Fault transitions the agent into FAULT, bumping its fault counter. The
// agent stays unavailable until a maintenance policy calls Reset.
func (b *Base) Fault() {
	b.Mode = model.ModeFault
	b.Health.FaultCount++
	b.FaultUsed = true
}

// Reset clears a FAULT back to IDLE, as applied by a maintenance policy.
func (b *Base) Reset() {
	if b.Mode == model.ModeFault {
		b.Mode = model.ModeIdle
		b.FaultUsed = false
	}
}

// Faulted reports whether the agent is currently unavailable due to fault.
func (b *Base) Faulted() bool { return b.Mode == model.ModeFault }

// triangular samples the triangular distribution with the given min, mode
// and max using inverse-CDF sampling, as used by the ISRU He3 yield model.
func triangular(rng RNG, min, mode, max float64) float64 {
	if max <= min {
		return min
	}
	u := rng.Float64()
	f := (mode - min) / (max - min)
	if u < f {
		return min + math.Sqrt(u*(max-min)*(mode-min))
	}
	return max - math.Sqrt((1-u)*(max-min)*(max-mode))
}
