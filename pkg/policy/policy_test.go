package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proxima-sim/proxima/pkg/model"
)

type fakeMutator struct {
	throttle float64
	target   float64
}

func (f *fakeMutator) SetThrottleFactor(v float64) { f.throttle = v }
func (f *fakeMutator) SetTargetRate(v float64)     { f.target = v }

func TestDustThrottleBoundaryBehaviors(t *testing.T) {
	p := NewDustCoverageThrottle("dust_coverage", 10, []string{"science"})

	atStart := p.Apply(World{}, evalAt(7)) // D_start = 10*0.7 = 7
	assert.Equal(t, 0.0, atStart[0].Value)

	atTarget := p.Apply(World{}, evalAt(10))
	assert.Equal(t, 0.8, atTarget[0].Value)

	mid := p.Apply(World{}, evalAt(8.5)) // halfway between 7 and 10
	assert.InDelta(t, 0.4, mid[0].Value, 1e-9)
}

func TestDustThrottleResetsWhenBackInSafeBand(t *testing.T) {
	p := NewDustCoverageThrottle("dust_coverage", 10, []string{"science"})
	science := &fakeMutator{}
	world := World{Sectors: map[string]Mutator{"science": science}}

	engine := New()
	engine.Register(p)
	engine.Step(world, evalAt(10))
	assert.Equal(t, 0.8, science.throttle)

	engine.Step(world, evalAt(5))
	assert.Equal(t, 0.0, science.throttle)
}

func TestDustThrottleIsIdempotentForAStableReading(t *testing.T) {
	p := NewDustCoverageThrottle("dust_coverage", 10, []string{"science"})
	first := p.Apply(World{}, evalAt(9))
	second := p.Apply(World{}, evalAt(9))
	assert.Equal(t, first[0].Value, second[0].Value)
}

func effectOfKind(effects []Effect, kind string) (Effect, bool) {
	for _, e := range effects {
		if e.Kind == kind {
			return e, true
		}
	}
	return Effect{}, false
}

func TestScienceGrowthOrdersWhenForecastShortfallIsPositive(t *testing.T) {
	p := NewScienceGrowth("step_science_generated", 10, 6, 0.1, 5, func() int { return 0 })

	effects := p.Apply(World{}, model.EvaluationResult{MonthTick: 0})
	require.Len(t, effects, 2)

	target, ok := effectOfKind(effects, "set_target_rate")
	require.True(t, ok)
	assert.Equal(t, "science", target.SectorID)
	assert.Greater(t, target.Value, 0.0)

	build, ok := effectOfKind(effects, "request_build")
	require.True(t, ok)
	assert.Equal(t, "Science_Rover_EQ", build.ModuleType)
	assert.Greater(t, build.Qty, 0)
	assert.Len(t, p.Pipeline, 1)
}

func TestScienceGrowthSetsTargetRateThroughTheEngine(t *testing.T) {
	p := NewScienceGrowth("step_science_generated", 10, 6, 0.1, 5, func() int { return 0 })
	engine := New()
	engine.Register(p)
	science := &fakeMutator{}

	engine.Step(World{Sectors: map[string]Mutator{"science": science}}, model.EvaluationResult{MonthTick: 0})

	assert.Greater(t, science.target, 0.0)
}

func TestScienceGrowthDoesNotDoubleOrderWhileInFlight(t *testing.T) {
	active := 0
	p := NewScienceGrowth("step_science_generated", 10, 6, 0.1, 5, func() int { return active })

	first := p.Apply(World{}, model.EvaluationResult{MonthTick: 0})
	build, ok := effectOfKind(first, "request_build")
	require.True(t, ok)
	qty := build.Qty

	// Second call before the order arrives: the pipeline entry already
	// covers the forecast, so no further build should be requested, but
	// the target rate is still reported every step.
	second := p.Apply(World{}, model.EvaluationResult{MonthTick: 0})
	_, hasBuild := effectOfKind(second, "request_build")
	assert.False(t, hasBuild)
	_, hasTarget := effectOfKind(second, "set_target_rate")
	assert.True(t, hasTarget)

	p.ObserveArrival("Science_Rover_EQ")
	assert.Empty(t, p.Pipeline)
	active = qty
}

func evalAt(dust float64) model.EvaluationResult {
	return model.EvaluationResult{Metrics: map[string]float64{"dust_coverage": dust}}
}
