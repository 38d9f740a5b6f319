package sector

import (
	"github.com/proxima-sim/proxima/pkg/agent"
)

// Science allocates power across its rover fleet, applies the throttle
// factor, aggregates step_science_generated, and grows its fleet whenever
// a Science_Rover_EQ module completes.
type Science struct {
	ID             string
	Fleet          []*agent.ScienceRover
	ThrottleFactor float64
	TargetRate     float64

	PerRoverPowerKWh float64
}

// NewScience constructs an empty Science sector.
func NewScience(id string, perRoverPowerKWh float64) *Science {
	return &Science{ID: id, PerRoverPowerKWh: perRoverPowerKWh}
}

func (s *Science) SetThrottleFactor(f float64) { s.ThrottleFactor = f }
func (s *Science) SetTargetRate(r float64)     { s.TargetRate = r }

// OnModuleCompleted handles a module_completed(Science_Rover_EQ) event by
// growing the fleet with a fresh idle rover matching the template spec.
func (s *Science) OnModuleCompleted(moduleType string, newRover func() *agent.ScienceRover) {
	if moduleType != "Science_Rover_EQ" {
		return
	}
	s.Fleet = append(s.Fleet, newRover())
}

// PowerDemand sums the power every non-retired rover would need this step.
func (s *Science) PowerDemand() float64 {
	active := 0
	for _, r := range s.Fleet {
		if !r.Retired() {
			active++
		}
	}
	return float64(active) * s.PerRoverPowerKWh
}

// Step allocates power evenly across the rover fleet (the Energy Sector has
// already granted ctx.PowerAllocated for the whole sector), steps every
// rover, and returns step_science_generated as the sole contribution.
//
// When TargetRate is set (the science-growth policy's forecast output,
// via set_target_rate), only as many rovers as needed to reach it are
// asked to operate; the rest charge instead of drawing power toward
// output nobody forecasted a need for. TargetRate <= 0 (no policy has
// run yet, or it's disabled) operates every non-retired rover.
func (s *Science) Step(ctx StepContext) map[string]float64 {
	total := 0.0
	active := 0
	for _, r := range s.Fleet {
		if !r.Retired() {
			active++
		}
	}
	perRover := 0.0
	if active > 0 {
		perRover = ctx.PowerAllocated / float64(active)
	}

	needed := active
	if s.TargetRate > 0 {
		needed = 0
		forecast := 0.0
		for _, r := range s.Fleet {
			if r.Retired() || forecast >= s.TargetRate {
				continue
			}
			forecast += r.ScienceGeneration
			needed++
		}
	}

	operating := 0
	for i, r := range s.Fleet {
		if r.Retired() {
			continue
		}
		skip := agent.ThrottleSkip(i, len(s.Fleet), s.ThrottleFactor, ctx.T)
		wantOperate := operating < needed
		if wantOperate {
			operating++
		}
		total += r.Step(skip, wantOperate, perRover)
	}

	return map[string]float64{"step_science_generated": total}
}
