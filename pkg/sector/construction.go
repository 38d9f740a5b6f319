package sector

import (
	"github.com/proxima-sim/proxima/pkg/agent"
	"github.com/proxima-sim/proxima/pkg/eventbus"
	"github.com/proxima-sim/proxima/pkg/model"
)

// ModuleSpec configures the shells and equipment a given module_type needs
// to advance from QUEUED to IN_PROGRESS.
type ModuleSpec struct {
	ShellsNeeded    int
	EquipmentTypeID string
}

// Construction runs the two-stage make-to-stock/make-to-order pipeline:
// PrintingRobots keep a shell buffer topped up; AssemblyRobots turn queued
// ConstructionRequests into completed modules once shells and equipment
// are both on hand.
type Construction struct {
	noopMutator
	ID                   string
	ShellStorageCapacity int

	Printers    []*agent.PrintingRobot
	Assemblers  []*agent.AssemblyRobot
	ModuleSpecs map[string]ModuleSpec

	Requests []*model.ConstructionRequest
}

// NewConstruction constructs an empty Construction sector.
func NewConstruction(id string, shellStorageCapacity int, moduleSpecs map[string]ModuleSpec) *Construction {
	return &Construction{ID: id, ShellStorageCapacity: shellStorageCapacity, ModuleSpecs: moduleSpecs}
}

// Enqueue adds a new QUEUED ConstructionRequest.
func (c *Construction) Enqueue(req *model.ConstructionRequest) {
	req.Status = model.ConstructionQueued
	c.Requests = append(c.Requests, req)
}

// Step runs shell production, advances QUEUED requests that now have both
// shells and equipment, and steps in-progress assembly tasks.
func (c *Construction) Step(ctx StepContext) map[string]float64 {
	metrics := make(map[string]float64)
	stock := ctx.Stock(c.ID)

	c.runShellProduction(ctx, stock, metrics)
	c.advanceQueuedRequests(ctx, stock, metrics)
	c.stepAssemblers(ctx, metrics)

	return metrics
}

// PowerDemand sums the per-step power draw of every printer that is (or is
// about to be) active, since each active printer draws its full
// PowerPerStep every step it runs regardless of the sector's allocation.
func (c *Construction) PowerDemand(stock model.Stock) float64 {
	demand := 0.0
	for _, p := range c.Printers {
		if p.Idle() && stock["shells"] >= float64(c.ShellStorageCapacity) {
			continue
		}
		demand += p.PowerPerStep
	}
	return demand
}

func (c *Construction) runShellProduction(ctx StepContext, stock model.Stock, metrics map[string]float64) {
	regolithAvailable := stock["regolith"] > 0
	for _, p := range c.Printers {
		if p.Idle() && stock["shells"] < float64(c.ShellStorageCapacity) {
			p.StartTask()
		}
		for _, f := range p.Step(regolithAvailable, ctx.PowerAllocated) {
			ctx.Ledger.Record("printer-"+p.ID, f)
			metrics["shells_produced"] += flowCredit(f, "shells")
		}
	}
}

func (c *Construction) advanceQueuedRequests(ctx StepContext, stock model.Stock, metrics map[string]float64) {
	for _, req := range c.Requests {
		if req.Status != model.ConstructionQueued {
			continue
		}
		spec := c.ModuleSpecs[req.ModuleType]
		haveShells := stock["shells"] >= float64(req.ShellsNeeded)
		haveEquipment := spec.EquipmentTypeID == "" || stock[spec.EquipmentTypeID] >= float64(req.EquipmentNeeded)

		if haveShells && haveEquipment {
			if !c.assign(ctx, req, spec) {
				continue // no idle assembler yet; retry next step
			}
			metrics["construction_started"]++
			continue
		}

		if !req.EquipmentRequested {
			ctx.Bus.Publish(eventbus.TopicEquipmentRequest, c.ID, req, ctx.T)
			req.EquipmentRequested = true
		}
	}
}

func (c *Construction) assign(ctx StepContext, req *model.ConstructionRequest, spec ModuleSpec) bool {
	for _, a := range c.Assemblers {
		if !a.Idle() {
			continue
		}
		for _, f := range a.StartTask(req.ModuleType, req.Requester, spec.EquipmentTypeID) {
			ctx.Ledger.Record("assembler-"+a.ID, f)
		}
		req.Status = model.ConstructionInProgress
		req.AssignedRobotID = a.ID
		return true
	}
	return false
}

func (c *Construction) stepAssemblers(ctx StepContext, metrics map[string]float64) {
	for _, a := range c.Assemblers {
		done, ok := a.Step()
		if !ok {
			continue
		}
		for _, req := range c.Requests {
			if req.AssignedRobotID == a.ID && req.Status == model.ConstructionInProgress {
				req.Status = model.ConstructionCompleted
			}
		}
		ctx.Bus.Publish(eventbus.TopicModuleCompleted, c.ID, done, ctx.T)
		metrics["modules_completed"]++
	}
}

func flowCredit(f model.StockFlow, resourceID string) float64 {
	if f.ResourceID == resourceID && f.Dest != model.ExternalParty {
		return f.Delta
	}
	return 0
}
