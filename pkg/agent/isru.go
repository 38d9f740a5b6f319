package agent

import "github.com/proxima-sim/proxima/pkg/model"

// ISRUMode is one of the five extraction/processing modes an ISRU agent
// can be assigned to for a step.
type ISRUMode string

const (
	ModeIceExtraction      ISRUMode = "ICE_EXTRACTION"
	ModeRegolithExtraction ISRUMode = "REGOLITH_EXTRACTION"
	ModeHe3Extraction      ISRUMode = "HE3_EXTRACTION"
	ModeElectrolysis       ISRUMode = "ELECTROLYSIS"
	ModeMetal              ISRUMode = "METAL"
)

// ISRUModeConfig parameterizes one mode's power draw and stock effects.
// Inputs/Outputs give the per-step resource_id -> quantity at full
// operation; HE3_EXTRACTION ignores Outputs and uses the stochastic yield
// fields instead.
type ISRUModeConfig struct {
	PowerKWh float64
	Inputs   map[string]float64
	Outputs  map[string]float64

	ThroughputTons float64
	MinPPB         float64
	ModePPB        float64
	MaxPPB         float64
	Efficiency     float64
}

// ISRU is an in-situ resource utilization agent: each step the Manufacturing
// Sector's DRR scheduler assigns it (or not) to a mode.
type ISRU struct {
	Base
	Modes map[ISRUMode]ISRUModeConfig
}

// NewISRU constructs an idle ISRU agent with the given per-mode configs.
func NewISRU(id, sectorID string, lifetimeCap int, modes map[ISRUMode]ISRUModeConfig) *ISRU {
	return &ISRU{Base: NewBase(id, "ISRU", sectorID, lifetimeCap), Modes: modes}
}

// Step runs one step. runMode is the mode the scheduler assigned this step,
// or "" if the agent was not selected (the agent goes/stays IDLE). skip is
// true when the sector's deterministic fleet-wide throttle window lands on
// this agent's slot this step (see ThrottleSkip); powerAllocated is the kWh
// the Energy Sector granted this agent's sector for this mode's demand.
// Returns the resource flows produced (and consumed) this step, empty if
// the agent did not operate.
func (a *ISRU) Step(rng RNG, runMode ISRUMode, skip bool, powerAllocated float64) []model.StockFlow {
	a.Tick()
	if a.Retired() || a.Faulted() {
		return nil
	}
	if runMode == "" {
		a.Mode = model.ModeIdle
		a.SubMode = ""
		return nil
	}
	if skip {
		a.Mode = model.ModeThrottled
		a.SubMode = string(runMode)
		return nil
	}
	cfg, ok := a.Modes[runMode]
	if !ok || powerAllocated < cfg.PowerKWh {
		a.Mode = model.ModeIdle
		a.SubMode = ""
		return nil
	}

	a.Mode = model.ModeActive
	a.SubMode = string(runMode)

	var flows []model.StockFlow
	for resourceID, qty := range cfg.Inputs {
		flows = append(flows, model.StockFlow{Source: a.SectorID, Dest: model.ExternalParty, ResourceID: resourceID, Delta: qty})
	}

	if runMode == ModeHe3Extraction {
		yieldPPB := triangular(rng, cfg.MinPPB, cfg.ModePPB, cfg.MaxPPB)
		output := cfg.ThroughputTons * 1000 * yieldPPB * 1e-9 * cfg.Efficiency
		flows = append(flows, model.StockFlow{Source: model.ExternalParty, Dest: a.SectorID, ResourceID: "he3", Delta: output})
		return flows
	}
	for resourceID, qty := range cfg.Outputs {
		flows = append(flows, model.StockFlow{Source: model.ExternalParty, Dest: a.SectorID, ResourceID: resourceID, Delta: qty})
	}
	return flows
}
