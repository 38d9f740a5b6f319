package agent

import "github.com/proxima-sim/proxima/pkg/model"

// ScienceRover either operates — consuming power to produce science units —
// or charges its local battery from the grid, and must meet a minimum
// battery threshold before it can operate.
type ScienceRover struct {
	Base

	ScienceGeneration float64 // science units produced per step while operating
	OperatingPowerKWh float64
	BatteryCapacity   float64
	MinBatteryToOp    float64
	ChargeRateKWh     float64

	Battery float64
}

// NewScienceRover constructs an idle ScienceRover with a full battery.
func NewScienceRover(id, sectorID string, lifetimeCap int, scienceGeneration, operatingPowerKWh, batteryCapacity, minBatteryToOp, chargeRateKWh float64) *ScienceRover {
	return &ScienceRover{
		Base:              NewBase(id, "ScienceRover", sectorID, lifetimeCap),
		ScienceGeneration: scienceGeneration,
		OperatingPowerKWh: operatingPowerKWh,
		BatteryCapacity:   batteryCapacity,
		MinBatteryToOp:    minBatteryToOp,
		ChargeRateKWh:     chargeRateKWh,
		Battery:           batteryCapacity,
	}
}

// Step runs one step. wantOperate is the sector's intent for this rover
// (true to try to operate, false to charge); the rover falls back to
// charging regardless of intent if its battery is below MinBatteryToOp.
// skip is true when the sector's deterministic fleet-wide throttle window
// lands on this rover's slot this step (see ThrottleSkip).
// Returns the science units generated this step (0 while charging).
func (r *ScienceRover) Step(skip bool, wantOperate bool, powerAllocated float64) float64 {
	r.Tick()
	if r.Retired() || r.Faulted() {
		return 0
	}

	if wantOperate && skip {
		wantOperate = false
		r.Mode = model.ModeThrottled
	}

	if wantOperate && r.Battery >= r.MinBatteryToOp && powerAllocated >= r.OperatingPowerKWh {
		r.Mode = model.ModeActive
		r.SubMode = "OPERATING"
		return r.ScienceGeneration
	}

	r.Mode = model.ModeActive
	r.SubMode = "CHARGING"
	r.Battery += r.ChargeRateKWh
	if r.Battery > r.BatteryCapacity {
		r.Battery = r.BatteryCapacity
	}
	return 0
}
