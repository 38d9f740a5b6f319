package agent

import "github.com/proxima-sim/proxima/pkg/model"

// AssemblyRobot consumes one shell and one unit of a specialized equipment
// type to assemble a module over a fixed duration.
type AssemblyRobot struct {
	Base
	AssemblyTimeSteps int

	stepsRemaining  int
	moduleType      string
	requester       string
	equipmentTypeID string
}

// NewAssemblyRobot constructs an idle AssemblyRobot.
func NewAssemblyRobot(id, sectorID string, lifetimeCap, assemblyTimeSteps int) *AssemblyRobot {
	return &AssemblyRobot{
		Base:              NewBase(id, "AssemblyRobot", sectorID, lifetimeCap),
		AssemblyTimeSteps: assemblyTimeSteps,
	}
}

// Idle reports whether the robot can be assigned a new module this step.
func (a *AssemblyRobot) Idle() bool { return a.Mode == model.ModeIdle }

// StartTask reserves one shell and one unit of equipmentTypeID and begins
// assembling moduleType for requester. The caller is responsible for
// checking shell/equipment availability before calling StartTask; this
// returns the two consumption flows to record against the ledger.
func (a *AssemblyRobot) StartTask(moduleType, requester, equipmentTypeID string) []model.StockFlow {
	if !a.Idle() {
		return nil
	}
	a.Mode = model.ModeActive
	a.stepsRemaining = a.AssemblyTimeSteps
	a.moduleType = moduleType
	a.requester = requester
	a.equipmentTypeID = equipmentTypeID
	return []model.StockFlow{
		{Source: a.SectorID, Dest: model.ExternalParty, ResourceID: "shells", Delta: 1},
		{Source: a.SectorID, Dest: model.ExternalParty, ResourceID: equipmentTypeID, Delta: 1},
	}
}

// CompletedModule is returned by Step on the step a module finishes.
type CompletedModule struct {
	ModuleType string
	Requester  string
}

// Step advances an in-progress assembly by one step. On completion it
// returns the module to publish as module_completed and resets to IDLE.
func (a *AssemblyRobot) Step() (*CompletedModule, bool) {
	a.Tick()
	if a.Retired() || a.Faulted() || a.Mode != model.ModeActive {
		return nil, false
	}
	a.stepsRemaining--
	if a.stepsRemaining > 0 {
		return nil, false
	}
	done := &CompletedModule{ModuleType: a.moduleType, Requester: a.requester}
	a.Mode = model.ModeIdle
	a.moduleType, a.requester, a.equipmentTypeID = "", "", ""
	return done, true
}
