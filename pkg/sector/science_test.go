package sector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proxima-sim/proxima/pkg/agent"
)

func TestScienceGeneratesOutputWhenBatteryAndPowerSuffice(t *testing.T) {
	s := NewScience("science", 2)
	s.Fleet = []*agent.ScienceRover{
		agent.NewScienceRover("rover-1", "science", 43800, 10, 2, 5, 3, 4),
	}

	out := s.Step(StepContext{T: 0, PowerAllocated: 2})

	assert.Equal(t, 10.0, out["step_science_generated"])
}

func TestScienceChargesInsteadOfOperatingBelowMinBattery(t *testing.T) {
	s := NewScience("science", 2)
	rover := agent.NewScienceRover("rover-1", "science", 43800, 10, 2, 5, 3, 4)
	rover.Battery = 1 // below MinBatteryToOp of 3
	s.Fleet = []*agent.ScienceRover{rover}

	out := s.Step(StepContext{T: 0, PowerAllocated: 2})

	assert.Equal(t, 0.0, out["step_science_generated"])
	assert.Equal(t, 5.0, rover.Battery) // charged by ChargeRateKWh, capped at BatteryCapacity
}

func TestScienceSkipsThrottledRoversForPartOfTheFleet(t *testing.T) {
	s := NewScience("science", 2)
	s.ThrottleFactor = 1.0 // every rover throttled this step
	s.Fleet = []*agent.ScienceRover{
		agent.NewScienceRover("rover-1", "science", 43800, 10, 2, 5, 3, 4),
		agent.NewScienceRover("rover-2", "science", 43800, 10, 2, 5, 3, 4),
	}

	out := s.Step(StepContext{T: 0, PowerAllocated: 4})

	assert.Equal(t, 0.0, out["step_science_generated"])
}

func TestScienceTargetRateCapsOperatingRoverCount(t *testing.T) {
	s := NewScience("science", 2)
	s.TargetRate = 10 // only one rover's worth of output is forecast
	s.Fleet = []*agent.ScienceRover{
		agent.NewScienceRover("rover-1", "science", 43800, 10, 2, 5, 3, 4),
		agent.NewScienceRover("rover-2", "science", 43800, 10, 2, 5, 3, 4),
	}

	out := s.Step(StepContext{T: 0, PowerAllocated: 4})

	assert.Equal(t, 10.0, out["step_science_generated"], "only the first rover needed to operate should run")
	assert.Equal(t, 5.0, s.Fleet[1].Battery, "the uncapped-for rover should charge instead of operating")
}

func TestScienceOnModuleCompletedGrowsFleetOnlyForScienceRoverModule(t *testing.T) {
	s := NewScience("science", 2)

	s.OnModuleCompleted("hab_module", func() *agent.ScienceRover {
		t.Fatal("hab_module must not grow the science fleet")
		return nil
	})
	require.Empty(t, s.Fleet)

	s.OnModuleCompleted("Science_Rover_EQ", func() *agent.ScienceRover {
		return agent.NewScienceRover("rover-new", "science", 43800, 10, 2, 5, 3, 4)
	})
	require.Len(t, s.Fleet, 1)
}

func TestSciencePowerDemandCountsOnlyNonRetiredRovers(t *testing.T) {
	s := NewScience("science", 2)
	s.Fleet = []*agent.ScienceRover{
		agent.NewScienceRover("rover-1", "science", 43800, 10, 2, 5, 3, 4),
		agent.NewScienceRover("rover-2", "science", 43800, 10, 2, 5, 3, 4),
	}

	assert.Equal(t, 4.0, s.PowerDemand())
}
