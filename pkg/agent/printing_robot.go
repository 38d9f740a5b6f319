package agent

import "github.com/proxima-sim/proxima/pkg/model"

// PrintingRobot turns regolith and power into shells over a fixed task
// duration, one shell per completed task.
type PrintingRobot struct {
	Base
	ProcessingTimeSteps int
	RegolithPerStep     float64
	PowerPerStep        float64

	stepsRemaining int
}

// NewPrintingRobot constructs an idle PrintingRobot.
func NewPrintingRobot(id, sectorID string, lifetimeCap, processingTimeSteps int, regolithPerStep, powerPerStep float64) *PrintingRobot {
	return &PrintingRobot{
		Base:                NewBase(id, "PrintingRobot", sectorID, lifetimeCap),
		ProcessingTimeSteps: processingTimeSteps,
		RegolithPerStep:     regolithPerStep,
		PowerPerStep:        powerPerStep,
	}
}

// Idle reports whether the robot can be assigned a new print task this step.
func (p *PrintingRobot) Idle() bool { return p.Mode == model.ModeIdle }

// StartTask begins a print task if the robot is idle. Returns false if it
// is already busy, retired, or faulted.
func (p *PrintingRobot) StartTask() bool {
	if !p.Idle() {
		return false
	}
	p.Mode = model.ModeActive
	p.stepsRemaining = p.ProcessingTimeSteps
	return true
}

// Step advances an in-progress task by one step if regolith and power are
// both available; a step without either of those simply stalls (the
// robot's timer does not advance) rather than failing the task. Returns
// the flows this step produced: a regolith debit while active every step,
// plus a one-shell credit on the step the task completes.
func (p *PrintingRobot) Step(regolithAvailable bool, powerAllocated float64) []model.StockFlow {
	p.Tick()
	if p.Retired() || p.Faulted() || p.Mode != model.ModeActive {
		return nil
	}
	if !regolithAvailable || powerAllocated < p.PowerPerStep {
		return nil
	}

	flows := []model.StockFlow{
		{Source: p.SectorID, Dest: model.ExternalParty, ResourceID: "regolith", Delta: p.RegolithPerStep},
	}
	p.stepsRemaining--
	if p.stepsRemaining <= 0 {
		p.Mode = model.ModeIdle
		flows = append(flows, model.StockFlow{Source: model.ExternalParty, Dest: p.SectorID, ResourceID: "shells", Delta: 1})
	}
	return flows
}
