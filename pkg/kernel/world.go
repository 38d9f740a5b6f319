// Package kernel implements the World Orchestrator (spec.md §4.7): the
// single-goroutine, deterministic step loop that wires the Event Bus,
// Stock Flow Ledger, Evaluation Engine, Policy Engine and all six sectors
// together and advances them one step at a time.
package kernel

import (
	"fmt"
	"log/slog"

	"github.com/proxima-sim/proxima/pkg/agent"
	"github.com/proxima-sim/proxima/pkg/config"
	"github.com/proxima-sim/proxima/pkg/eval"
	"github.com/proxima-sim/proxima/pkg/eventbus"
	"github.com/proxima-sim/proxima/pkg/kernelerr"
	"github.com/proxima-sim/proxima/pkg/ledger"
	"github.com/proxima-sim/proxima/pkg/model"
	"github.com/proxima-sim/proxima/pkg/policy"
	"github.com/proxima-sim/proxima/pkg/sector"
)

// resourceRequestBatchQty is the fixed quantity Manufacturing transfers in
// response to another sector's resource_request — a single restock batch,
// since spec.md leaves the exact quantity per request unspecified.
const resourceRequestBatchQty = 50.0

// StepLog is the append-only record emitted once per step (spec.md §6's
// simulation log), consumed by pkg/logsink.
type StepLog struct {
	T            int                        `json:"t"`
	Metrics      map[string]float64         `json:"metrics"`
	Scores       map[string]model.GoalScore `json:"scores"`
	Effects      []policy.Effect            `json:"effects"`
	Errors       []string                   `json:"errors,omitempty"`
	DroppedCount int                        `json:"dropped_count,omitempty"`
	// StrictOverdraft is set when this step's ledger commit aborted under
	// Strict mode (spec.md §6's CLI exit code 3 condition); the commit's
	// already-applied prior groups stayed applied, but the run should stop.
	StrictOverdraft bool `json:"strict_overdraft,omitempty"`
}

// Kernel is the World Orchestrator: it owns the sectors, bus, ledger,
// evaluation and policy engines for one experiment run and advances them
// one step at a time via Step.
type Kernel struct {
	ExperimentID  string
	RunSeed       int64
	OverdraftMode ledger.OverdraftMode

	T int

	sectors *sectorSet
	stocks  map[string]model.Stock

	bus          *eventbus.Bus
	ledger       *ledger.Ledger
	evalEng      *eval.Engine
	policyEng    *policy.Engine
	policiesByID map[string]policy.Policy

	// priorContributions holds the metric contributions gathered during
	// step t-1, which the Evaluation Engine scores at the start of step t
	// (spec.md §4.7: "the effects observed by policies in step t reflect
	// step t-1's metrics").
	priorContributions map[string]map[string]float64

	environment config.EnvironmentConfig

	constructionSeq int
	growthSeq       int

	lastLog StepLog
	paused  bool
}

// New assembles a Kernel from a resolved world and run seed. Sectors,
// agents, goals and policies are built once; the bus is wired so
// cross-sector events (equipment_request, transport_request,
// payload_delivered, resource_request, module_completed) reach the right
// handler at the start of the next step.
func New(rw *config.ResolvedWorld, runSeed int64) (*Kernel, error) {
	sectors, err := buildSectors(rw)
	if err != nil {
		return nil, err
	}

	metrics := make(map[string]*model.PerformanceMetric)
	for _, g := range rw.Goals {
		if _, ok := metrics[g.MetricID]; !ok {
			metrics[g.MetricID] = &model.PerformanceMetric{ID: g.MetricID}
		}
	}
	// Sector-authored metrics not tied to any goal (e.g. dust_coverage may
	// arrive only via command injection) still need a slot to aggregate
	// into; they are added lazily via ensureMetric, by Step for every metric a
	// sector contributed to and by InjectMetricContribution.

	k := &Kernel{
		ExperimentID:       rw.Experiment.ID,
		RunSeed:            runSeed,
		OverdraftMode:      ledger.Strict,
		sectors:            sectors,
		stocks:             make(map[string]model.Stock),
		bus:                eventbus.New(),
		ledger:             ledger.New(),
		evalEng:            eval.New(metrics, rw.Goals),
		policyEng:          policy.New(),
		priorContributions: make(map[string]map[string]float64),
		environment:        rw.Environment,
	}

	k.bus.OnDeliveryError(func(e *kernelerr.EventDeliveryError) {
		k.lastLog.Errors = append(k.lastLog.Errors, e.Error())
	})

	k.policiesByID = make(map[string]policy.Policy, len(rw.Policies))
	for _, pc := range rw.Policies {
		p, err := buildPolicy(pc, k.sectors)
		if err != nil {
			return nil, err
		}
		k.policyEng.Register(p)
		k.policiesByID[p.ID()] = p
	}

	k.wireBus()
	return k, nil
}

// wireBus subscribes every cross-sector handler the Event Bus routes
// between sectors (spec.md §4.4's per-sector event table).
func (k *Kernel) wireBus() {
	k.bus.Subscribe(eventbus.TopicEquipmentRequest, "equipment", func(e eventbus.Event) error {
		req, ok := e.Payload.(*model.ConstructionRequest)
		if !ok {
			return fmt.Errorf("equipment_request: unexpected payload type %T", e.Payload)
		}
		spec := k.sectors.ModuleSpecs[req.ModuleType]
		if spec.EquipmentTypeID == "" {
			return nil
		}
		k.sectors.Equipment.OnEquipmentRequest(sector.StepContext{T: e.PublishedAt}, spec.EquipmentTypeID, req.Requester, float64(req.EquipmentNeeded))
		return nil
	})

	k.bus.Subscribe(eventbus.TopicTransportRequest, "transportation", func(e eventbus.Event) error {
		req, ok := e.Payload.(model.TransportRequest)
		if !ok {
			return fmt.Errorf("transport_request: unexpected payload type %T", e.Payload)
		}
		k.sectors.Transportation.Enqueue(sector.StepContext{T: e.PublishedAt}, req)
		return nil
	})

	k.bus.Subscribe(eventbus.TopicPayloadDelivered, "equipment", func(e eventbus.Event) error {
		delivery, ok := e.Payload.(*agent.Delivery)
		if !ok {
			return nil // not an equipment-bound delivery (e.g. returning empty cargo)
		}
		if delivery.Destination != model.OriginMoon {
			return nil
		}
		for typeID, qty := range delivery.Payload {
			k.sectors.Equipment.OnPayloadDelivered(typeID, qty)
		}
		return nil
	})

	k.bus.Subscribe(eventbus.TopicModuleCompleted, "science", func(e eventbus.Event) error {
		done, ok := e.Payload.(*agent.CompletedModule)
		if !ok {
			return nil
		}
		if done.ModuleType != "Science_Rover_EQ" || k.sectors.ScienceRoverTemplate == nil {
			return nil
		}
		k.growthSeq++
		factory, err := newScienceRoverFactory(*k.sectors.ScienceRoverTemplate, fmt.Sprintf("%d", k.growthSeq))
		if err != nil {
			return err
		}
		k.sectors.Science.OnModuleCompleted(done.ModuleType, factory)
		if sg, ok := k.policiesByID["PLCY-SCIENCE-GROWTH"].(*policy.ScienceGrowth); ok {
			sg.ObserveArrival(done.ModuleType)
		}
		return nil
	})

	k.bus.Subscribe(eventbus.TopicResourceRequest, "manufacturing", func(e eventbus.Event) error {
		payload, ok := e.Payload.(map[string]any)
		if !ok {
			return nil
		}
		resourceID, _ := payload["resource_id"].(string)
		if resourceID == "" || e.Producer == k.sectors.Manufacturing.ID {
			return nil
		}
		k.sectors.Manufacturing.OnResourceRequest(sector.StepContext{T: e.PublishedAt}, e.Producer, resourceID, resourceRequestBatchQty)
		return nil
	})
}

func buildPolicy(pc config.PolicyConfig, sectors *sectorSet) (policy.Policy, error) {
	switch pc.Type {
	case "dust_throttle":
		var p dustThrottleParams
		if err := decodeInto(applyPolicyDefaults(pc.Type, pc.Params), &p); err != nil {
			return nil, &kernelerr.ConfigError{Collection: "policies", ID: pc.ID, Err: err}
		}
		return newDustThrottlePolicy(pc, p), nil
	case "science_growth":
		var p scienceGrowthParams
		if err := decodeInto(applyPolicyDefaults(pc.Type, pc.Params), &p); err != nil {
			return nil, &kernelerr.ConfigError{Collection: "policies", ID: pc.ID, Err: err}
		}
		return newScienceGrowthPolicy(pc, p, sectors), nil
	default:
		return nil, &kernelerr.ConfigError{Collection: "policies", ID: pc.ID, Err: fmt.Errorf("unknown policy type %q", pc.Type)}
	}
}

// LastLog returns the most recently produced step log.
func (k *Kernel) LastLog() StepLog { return k.lastLog }

// Policies returns the registered policies keyed by id, for pkg/command's
// set_policy handling.
func (k *Kernel) Policies() map[string]policy.Policy { return k.policiesByID }

// Pause suspends Step from advancing (spec.md §6's command collection
// pause/resume kind). Step becomes a no-op while paused.
func (k *Kernel) Pause()       { k.paused = true }
func (k *Kernel) Resume()      { k.paused = false }
func (k *Kernel) Paused() bool { return k.paused }

// InjectMetricContribution lets pkg/command's set_param/inject_event
// handling attribute an externally-observed contribution (e.g. dust
// coverage accrued from an environment process with no modeled sector) to
// a metric for the NEXT step's evaluation.
func (k *Kernel) InjectMetricContribution(sectorID, metricID string, value float64) {
	k.ensureMetric(metricID)
	if k.priorContributions[metricID] == nil {
		k.priorContributions[metricID] = make(map[string]float64)
	}
	k.priorContributions[metricID][sectorID] = value
}

func (k *Kernel) ensureMetric(metricID string) {
	if _, ok := k.evalEng.Metrics[metricID]; !ok {
		k.evalEng.Metrics[metricID] = &model.PerformanceMetric{ID: metricID}
	}
}

// SetGoal mutates a registered goal's target/bounds/weight in place
// (spec.md §6's set_goal command kind), read fresh by the Evaluation
// Engine starting with the next step. A nil pointer leaves that field
// unchanged. Returns a ConfigError if goalID is not registered.
func (k *Kernel) SetGoal(goalID string, target, lo, hi, weight *float64) error {
	if !k.evalEng.SetGoal(goalID, target, lo, hi, weight) {
		return &kernelerr.ConfigError{Collection: "goals", ID: goalID, Err: fmt.Errorf("unknown goal")}
	}
	return nil
}

// RequestBuild enqueues a new ConstructionRequest for moduleType x qty,
// invoked by policy.Effect{Kind:"request_build"} (the ScienceGrowth
// policy's fleet-expansion path).
func (k *Kernel) RequestBuild(moduleType string, qty int) {
	spec := k.sectors.ModuleSpecs[moduleType]
	for i := 0; i < qty; i++ {
		k.constructionSeq++
		k.sectors.Construction.Enqueue(&model.ConstructionRequest{
			ID:              fmt.Sprintf("build-%s-%d", moduleType, k.constructionSeq),
			ModuleType:      moduleType,
			Requester:       k.sectors.Science.ID,
			ShellsNeeded:    spec.ShellsNeeded,
			EquipmentNeeded: 1,
			QueuedAtStep:    k.T,
		})
	}
}

// Step advances the simulation by exactly one step, following the fixed
// pipeline of spec.md §4.7: deliver events, evaluate against the prior
// step's contributions, apply policies, compute the combined sector
// priority vector, allocate power, step every sector (gathering this
// step's contributions), commit the ledger, aggregate metrics, and log.
func (k *Kernel) Step() StepLog {
	k.lastLog = StepLog{T: k.T}
	if k.paused {
		return k.lastLog
	}

	k.bus.Swap()
	k.bus.Deliver()

	monthTick := MonthTick(k.T)
	evalResult := k.evalEng.Evaluate(k.T, k.priorContributions, monthTick)

	world := policy.World{
		Sectors: map[string]policy.Mutator{
			"energy":         k.sectors.Energy,
			"manufacturing":  k.sectors.Manufacturing,
			"construction":   k.sectors.Construction,
			"equipment":      k.sectors.Equipment,
			"transportation": k.sectors.Transportation,
			"science":        k.sectors.Science,
		},
		RequestBuild: k.RequestBuild,
	}
	effects := k.policyEng.Step(world, evalResult)
	k.lastLog.Effects = effects

	priority := k.sectorPriorityVector(evalResult)

	rng := NewStepRNG(k.RunSeed, k.T)

	modeConfigs := k.sectors.ManufacturingModeConfigs
	manufacturingDemand := k.sectors.Manufacturing.PowerDemand(modeConfigs)
	constructionDemand := k.sectors.Construction.PowerDemand(k.stockOf(k.sectors.Construction.ID))
	scienceDemand := k.sectors.Science.PowerDemand()

	demand := map[string]float64{
		"manufacturing": manufacturingDemand,
		"construction":  constructionDemand,
		"science":       scienceDemand,
	}
	k.sectors.Energy.SetGeneration(k.environment.SolarInputKWh)
	allocation := k.sectors.Energy.Allocate(demand, priority)

	contributions := make(map[string]map[string]float64)
	addContribution := func(metricID, sectorID string, v float64) {
		if contributions[metricID] == nil {
			contributions[metricID] = make(map[string]float64)
		}
		contributions[metricID][sectorID] += v
	}

	for metricID, v := range k.sectors.Energy.MetricContributions() {
		addContribution(metricID, k.sectors.Energy.ID, v)
	}

	stocks := k.stocks
	ledg := k.ledger

	// The DRR scheduler runs exactly one ISRU agent per step, so every
	// configured mode is offered the sector's full allocation; available()
	// still gates on an idle agent existing before a mode can be selected.
	perMode := make(map[agent.ISRUMode]float64, len(modeConfigs))
	for mode := range modeConfigs {
		perMode[mode] = allocation["manufacturing"]
	}
	manufacturingCtx := sector.StepContext{T: k.T, RNG: rng, Ledger: ledg, Bus: k.bus, Stocks: stocks, PowerAllocated: allocation["manufacturing"]}
	for metricID, v := range k.sectors.Manufacturing.Step(manufacturingCtx, modeConfigs, perMode) {
		addContribution(metricID, k.sectors.Manufacturing.ID, v)
	}

	constructionCtx := sector.StepContext{T: k.T, RNG: rng, Ledger: ledg, Bus: k.bus, Stocks: stocks, PowerAllocated: allocation["construction"]}
	for metricID, v := range k.sectors.Construction.Step(constructionCtx) {
		addContribution(metricID, k.sectors.Construction.ID, v)
	}

	equipmentCtx := sector.StepContext{T: k.T, RNG: rng, Ledger: ledg, Bus: k.bus, Stocks: stocks}
	for metricID, v := range k.sectors.Equipment.Step(equipmentCtx) {
		addContribution(metricID, k.sectors.Equipment.ID, v)
	}

	he3Stock := k.stockOf(k.sectors.Transportation.ID)["he3"]
	he3PerGen := 0.0
	if n := len(k.sectors.Transportation.FuelGenerators); n > 0 {
		he3PerGen = he3Stock / float64(n)
	}
	transportationCtx := sector.StepContext{T: k.T, RNG: rng, Ledger: ledg, Bus: k.bus, Stocks: stocks}
	for metricID, v := range k.sectors.Transportation.Step(transportationCtx, he3PerGen) {
		addContribution(metricID, k.sectors.Transportation.ID, v)
	}

	scienceCtx := sector.StepContext{T: k.T, RNG: rng, Ledger: ledg, Bus: k.bus, Stocks: stocks, PowerAllocated: allocation["science"]}
	for metricID, v := range k.sectors.Science.Step(scienceCtx) {
		addContribution(metricID, k.sectors.Science.ID, v)
	}

	result, err := ledg.Commit(stocks, k.OverdraftMode)
	if err != nil {
		k.lastLog.Errors = append(k.lastLog.Errors, err.Error())
		k.lastLog.StrictOverdraft = true
		slog.Error("kernel: ledger commit failed", "t", k.T, "error", err)
	}
	k.lastLog.DroppedCount = len(result.Dropped)
	for _, d := range result.Dropped {
		k.lastLog.Errors = append(k.lastLog.Errors, d.Error())
	}

	for metricID := range contributions {
		k.ensureMetric(metricID)
	}
	k.priorContributions = contributions
	k.lastLog.Metrics = evalResult.Metrics
	k.lastLog.Scores = evalResult.Scores

	k.T++
	return k.lastLog
}

func (k *Kernel) stockOf(sectorID string) model.Stock {
	s, ok := k.stocks[sectorID]
	if !ok {
		s = make(model.Stock)
		k.stocks[sectorID] = s
	}
	return s
}

// sectorPriorityVector computes spec.md §4.7 step 4's "combined sector
// priority vector": for every active goal not yet fully met, each sector
// that contributed to that goal's metric last step is credited
// weight*(1-score), so sectors starving a goal the most get the largest
// share of contested power.
func (k *Kernel) sectorPriorityVector(evalResult model.EvaluationResult) map[string]float64 {
	priority := make(map[string]float64)
	for _, g := range k.evalEng.Goals {
		score := evalResult.Scores[g.ID]
		if score.Score >= 1 {
			continue
		}
		metric := k.evalEng.Metrics[g.MetricID]
		if metric == nil {
			continue
		}
		for sectorID, contribution := range metric.Contributions {
			if contribution == 0 {
				continue
			}
			priority[sectorID] += g.Weight * (1 - score.Score)
		}
	}
	return priority
}
