package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proxima-sim/proxima/pkg/model"
)

// constRNG always returns the same Float64 value — deterministic for
// throttle and yield tests that don't care about distribution shape.
type constRNG float64

func (c constRNG) Float64() float64 { return float64(c) }

func TestBaseRetiresAtLifetimeCap(t *testing.T) {
	b := NewBase("a1", "ISRU", "manufacturing", 3)
	for i := 0; i < 3; i++ {
		assert.False(t, b.Retired())
		b.Tick()
	}
	assert.True(t, b.Retired())
	b.Tick() // retired agents must not age further or panic
	assert.True(t, b.Retired())
}

func TestISRUSkipsWhenThrottled(t *testing.T) {
	isru := NewISRU("i1", "manufacturing", 10000, map[ISRUMode]ISRUModeConfig{
		ModeIceExtraction: {PowerKWh: 5, Outputs: map[string]float64{"ice": 2}},
	})

	flows := isru.Step(constRNG(0.5), ModeIceExtraction, true, 10)
	assert.Nil(t, flows)
	assert.Equal(t, model.ModeThrottled, isru.Mode)
}

func TestISRUProducesWhenPowered(t *testing.T) {
	isru := NewISRU("i1", "manufacturing", 10000, map[ISRUMode]ISRUModeConfig{
		ModeIceExtraction: {PowerKWh: 5, Outputs: map[string]float64{"ice": 2}},
	})

	flows := isru.Step(constRNG(0), ModeIceExtraction, false, 10)
	require.Len(t, flows, 1)
	assert.Equal(t, "ice", flows[0].ResourceID)
	assert.Equal(t, 2.0, flows[0].Delta)
	assert.Equal(t, model.ModeActive, isru.Mode)
}

func TestISRUIdlesWithoutEnoughPower(t *testing.T) {
	isru := NewISRU("i1", "manufacturing", 10000, map[ISRUMode]ISRUModeConfig{
		ModeIceExtraction: {PowerKWh: 5, Outputs: map[string]float64{"ice": 2}},
	})

	flows := isru.Step(constRNG(0), ModeIceExtraction, false, 1)
	assert.Nil(t, flows)
	assert.Equal(t, model.ModeIdle, isru.Mode)
}

func TestPrintingRobotCompletesAfterProcessingTime(t *testing.T) {
	r := NewPrintingRobot("p1", "construction", 10000, 3, 1.0, 2.0)
	require.True(t, r.StartTask())
	assert.False(t, r.Idle())

	flows := r.Step(true, 2.0)
	assert.Len(t, flows, 1, "regolith debit only, not yet complete")

	flows = r.Step(true, 2.0)
	assert.Len(t, flows, 1)

	flows = r.Step(true, 2.0)
	require.Len(t, flows, 2, "regolith debit plus one-shell credit on completion")
	assert.Equal(t, "shells", flows[1].ResourceID)
	assert.Equal(t, 1.0, flows[1].Delta)
	assert.True(t, r.Idle())
}

func TestPrintingRobotStallsWithoutRegolith(t *testing.T) {
	r := NewPrintingRobot("p1", "construction", 10000, 2, 1.0, 2.0)
	require.True(t, r.StartTask())

	flows := r.Step(false, 2.0)
	assert.Nil(t, flows)
	assert.False(t, r.Idle(), "a stalled step must not advance or abandon the task")
}

func TestRocketRoundTripTiming(t *testing.T) {
	// S6: distance 384,400 km with cruise speed implying a 10-step
	// outbound; loading 24 steps; inbound duration equals outbound.
	r := NewRocket("r1", "transportation", 10000, 384400, 38440, 24)
	require.Equal(t, 10, r.OutboundSteps())

	require.True(t, r.Launch(model.OriginEarth, model.OriginMoon,
		map[string]float64{"Science_Rover_EQ": 2}, map[string]float64{}))

	var arrivedMoonAt, departedAt, arrivedEarthAt, idleAt int
	for step := 1; step <= 44; step++ {
		delivery, ok := r.Step()
		if ok && delivery.Destination == model.OriginMoon {
			arrivedMoonAt = step
		}
		if ok && delivery.Destination == model.OriginEarth {
			arrivedEarthAt = step
		}
		if step == 34 && r.SubMode == RocketInbound {
			departedAt = step
		}
		if r.Available() && idleAt == 0 && step >= arrivedMoonAt && arrivedMoonAt > 0 {
			idleAt = step
		}
	}

	assert.Equal(t, 10, arrivedMoonAt)
	assert.Equal(t, 34, departedAt)
	assert.Equal(t, 44, arrivedEarthAt)
	assert.True(t, r.Available())
	assert.Equal(t, 44, idleAt)
}

func TestScienceRoverChargesBelowThreshold(t *testing.T) {
	rv := NewScienceRover("sr1", "science", 10000, 5, 3, 10, 4, 2)
	rv.Battery = 1 // below MinBatteryToOp

	science := rv.Step(false, true, 3)
	assert.Equal(t, 0.0, science)
	assert.Equal(t, 3.0, rv.Battery)
	assert.Equal(t, "CHARGING", rv.SubMode)
}

func TestScienceRoverOperatesAboveThreshold(t *testing.T) {
	rv := NewScienceRover("sr1", "science", 10000, 5, 3, 10, 8, 2)

	science := rv.Step(false, true, 3)
	assert.Equal(t, 5.0, science)
	assert.Equal(t, "OPERATING", rv.SubMode)
}

func TestAssemblyRobotCompletesAndReleasesForNextTask(t *testing.T) {
	ar := NewAssemblyRobot("ar1", "construction", 10000, 2)
	flows := ar.StartTask("hab_module", "WS-PG-004", "comp_life_support")
	require.Len(t, flows, 2)

	done, ok := ar.Step()
	assert.False(t, ok)
	assert.Nil(t, done)

	done, ok = ar.Step()
	require.True(t, ok)
	assert.Equal(t, "hab_module", done.ModuleType)
	assert.Equal(t, "WS-PG-004", done.Requester)
	assert.True(t, ar.Idle())
}

func TestFuelGeneratorConvertsHe3ToPropellant(t *testing.T) {
	fg := NewFuelGenerator("fg1", "transportation", 10000, 0.01, 0.9, 5)

	flows := fg.Step(2)
	require.Len(t, flows, 2)
	assert.Equal(t, "he3", flows[0].ResourceID)
	assert.Equal(t, 2.0, flows[0].Delta)
	assert.Equal(t, "rocket_fuel", flows[1].ResourceID)
	assert.InDelta(t, 2*0.01*1e6*0.9/5, flows[1].Delta, 1e-9)
}
