package sector

import (
	"log/slog"
	"sort"

	"github.com/proxima-sim/proxima/pkg/agent"
	"github.com/proxima-sim/proxima/pkg/eventbus"
	"github.com/proxima-sim/proxima/pkg/kernelerr"
	"github.com/proxima-sim/proxima/pkg/model"
)

// taskID names one DRR-scheduled task. Each maps 1:1 to an ISRUMode.
type taskID = agent.ISRUMode

// drrState is one task's Priority-as-Token Deficit Round Robin bookkeeping.
type drrState struct {
	priority float64
	bank     float64
}

// Manufacturing runs the ISRU fleet via the Priority-as-Token Deficit Round
// Robin scheduler: each step it tops up every available task's token bank
// by its priority, picks the task with the largest bank (ties broken by a
// rotating pointer), assigns an idle ISRU agent to it, and spends tau
// tokens from the winner's bank.
type Manufacturing struct {
	noopMutator
	ID    string
	Tau   float64 // spend-per-turn constant, default 1
	Fleet []*agent.ISRU

	ThrottleFactor float64

	tasks     map[taskID]*drrState
	order     []taskID // stable iteration order for the rotating pointer
	rotatePtr int

	resourceBacklog *backlog[model.StockFlow]
	he3Pending      bool
	waterPending    bool

	He3Threshold   float64
	WaterThreshold float64

	turnsByTask map[taskID]int // for fairness testing (S2)
}

// NewManufacturing constructs a Manufacturing sector with the given task
// priorities (one entry per ISRU mode in play).
func NewManufacturing(id string, tau float64, priorities map[taskID]float64, backlogMaxAge int) *Manufacturing {
	m := &Manufacturing{
		ID:              id,
		Tau:             tau,
		tasks:           make(map[taskID]*drrState, len(priorities)),
		resourceBacklog: newBacklog[model.StockFlow](backlogMaxAge),
		turnsByTask:     make(map[taskID]int),
	}
	for mode, p := range sortedModes(priorities) {
		m.tasks[mode] = &drrState{priority: p}
		m.order = append(m.order, mode)
	}
	return m
}

// sortedModes returns priorities iterated in a stable, deterministic order
// so the rotating pointer's tie-break is reproducible across runs.
func sortedModes(priorities map[taskID]float64) map[taskID]float64 {
	keys := make([]string, 0, len(priorities))
	for k := range priorities {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	out := make(map[taskID]float64, len(priorities))
	for _, k := range keys {
		out[taskID(k)] = priorities[taskID(k)]
	}
	return out
}

func (m *Manufacturing) SetThrottleFactor(f float64) { m.ThrottleFactor = f }

// available reports A_i(t): an idle agent exists and the power the caller
// (Step) supplies for the mode covers its draw. Input stocks are not
// checked, so a mode whose inputs are short can still be selected; its
// flows then overdraft at ledger commit.
func (m *Manufacturing) available(mode taskID, hasIdleAgent bool, powerForMode float64, cfg agent.ISRUModeConfig) bool {
	return hasIdleAgent && powerForMode >= cfg.PowerKWh
}

// fleetIndex finds a's stable position in the fleet, for ThrottleSkip.
func (m *Manufacturing) fleetIndex(a *agent.ISRU) int {
	for i, f := range m.Fleet {
		if f == a {
			return i
		}
	}
	return 0
}

// idleAgent returns an idle, non-retired, non-faulted ISRU agent, if any.
func (m *Manufacturing) idleAgent() *agent.ISRU {
	for _, a := range m.Fleet {
		if !a.Retired() && !a.Faulted() && a.Mode == model.ModeIdle {
			return a
		}
	}
	return nil
}

// Step runs one DRR cycle plus the fleet's extraction step, the proactive
// He3 resource request, and backlog aging. powerPerMode gives the power
// each task may draw this step; the kernel offers every mode the sector's
// whole StepContext.PowerAllocated, since one agent runs per step.
func (m *Manufacturing) Step(ctx StepContext, modeConfigs map[taskID]agent.ISRUModeConfig, powerPerMode map[taskID]float64) map[string]float64 {
	idle := m.idleAgent()

	// 1. Top-up.
	candidates := make([]taskID, 0, len(m.order))
	for _, id := range m.order {
		st := m.tasks[id]
		cfg := modeConfigs[id]
		isAvailable := idle != nil && m.available(id, idle != nil, powerPerMode[id], cfg) && st.priority > 0
		if isAvailable {
			st.bank += st.priority
		} else {
			st.bank = 0
		}
		if isAvailable && st.bank > 0 {
			candidates = append(candidates, id)
		}
	}

	// 2. Select: argmax bank, ties by rotating pointer.
	winner, ok := m.selectWinner(candidates)

	metrics := make(map[string]float64)
	if ok {
		// 3. Execute.
		skip := agent.ThrottleSkip(m.fleetIndex(idle), len(m.Fleet), m.ThrottleFactor, ctx.T)
		flows := idle.Step(ctx.RNG, winner, skip, powerPerMode[winner])
		m.turnsByTask[winner]++
		did := len(flows) > 0
		for _, f := range flows {
			ctx.Ledger.Record("isru-"+idle.ID, f)
			metrics["isru_"+f.ResourceID+"_flow"] += f.Delta
		}

		// 4. Spend.
		if did {
			m.tasks[winner].bank -= m.Tau
			if m.tasks[winner].bank < 0 {
				m.tasks[winner].bank = 0
			}
		}
	}

	// Step every other (non-winning) ISRU agent with no assigned mode so
	// age/retirement still advances for the whole fleet.
	for _, a := range m.Fleet {
		if idle != nil && a.ID == idle.ID && ok {
			continue
		}
		a.Step(ctx.RNG, "", false, 0)
	}

	m.drainResourceBacklog(ctx, metrics)
	m.requestHe3IfLow(ctx)

	for _, expiredID := range m.resourceBacklog.dropExpired(ctx.T) {
		err := &kernelerr.BacklogTimeoutError{Sector: m.ID, EntryID: expiredID, AgeSteps: m.resourceBacklog.maxAge}
		slog.Warn("manufacturing: resource request backlog timeout", "error", err)
		metrics["backlog_expired_count"]++
	}

	return metrics
}

// selectWinner picks the candidate with the highest bank, breaking ties
// with a strict round-robin pointer over the stable task order.
func (m *Manufacturing) selectWinner(candidates []taskID) (taskID, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	best := -1.0
	for _, id := range candidates {
		if m.tasks[id].bank > best {
			best = m.tasks[id].bank
		}
	}
	tied := make(map[taskID]bool)
	for _, id := range candidates {
		if m.tasks[id].bank == best {
			tied[id] = true
		}
	}
	if len(tied) == 1 {
		for id := range tied {
			return id, true
		}
	}
	for i := 0; i < len(m.order); i++ {
		idx := (m.rotatePtr + i) % len(m.order)
		id := m.order[idx]
		if tied[id] {
			m.rotatePtr = (idx + 1) % len(m.order)
			return id, true
		}
	}
	return "", false
}

// RequestResource queues a resource_request fulfilled LIFO against stock.
func (m *Manufacturing) RequestResource(ctx StepContext, requestID string, flow model.StockFlow) {
	m.resourceBacklog.push(requestID, flow, ctx.T)
}

func (m *Manufacturing) drainResourceBacklog(ctx StepContext, metrics map[string]float64) {
	stock := ctx.Stock(m.ID)
	for {
		flow, ok := m.resourceBacklog.popLIFO()
		if !ok {
			return
		}
		if stock[flow.ResourceID] < flow.Delta {
			m.resourceBacklog.push("resource-retry", flow, ctx.T)
			return
		}
		ctx.Ledger.Record("manufacturing-resource-"+flow.ResourceID, flow)
		ctx.Bus.Publish(eventbus.TopicResourceAllocated, m.ID, flow, ctx.T)
		metrics["resource_allocated_count"]++
	}
}

func (m *Manufacturing) requestHe3IfLow(ctx StepContext) {
	stock := ctx.Stock(m.ID)
	if m.He3Threshold > 0 {
		if stock["he3"] < m.He3Threshold && !m.he3Pending {
			ctx.Bus.Publish(eventbus.TopicResourceRequest, m.ID, map[string]any{"resource_id": "he3"}, ctx.T)
			m.he3Pending = true
		} else if stock["he3"] >= m.He3Threshold {
			m.he3Pending = false
		}
	}
	if m.WaterThreshold > 0 {
		if stock["water"] < m.WaterThreshold && !m.waterPending {
			ctx.Bus.Publish(eventbus.TopicResourceRequest, m.ID, map[string]any{"resource_id": "water"}, ctx.T)
			m.waterPending = true
		} else if stock["water"] >= m.WaterThreshold {
			m.waterPending = false
		}
	}
}

// OnResourceRequest handles an incoming resource_request from another sector
// by queueing a StockFlow transferring the requested quantity out of this
// sector's stock, fulfilled LIFO from the same backlog RequestResource uses.
func (m *Manufacturing) OnResourceRequest(ctx StepContext, requesterSectorID, resourceID string, qty float64) {
	m.resourceBacklog.push("incoming-"+requesterSectorID+"-"+resourceID, model.StockFlow{
		Source: m.ID, Dest: requesterSectorID, ResourceID: resourceID, Delta: qty,
	}, ctx.T)
}

// PowerDemand reports this step's power requirement: since the DRR
// scheduler runs exactly one ISRU agent per step, demand is the highest
// single-mode power draw among modes with an idle agent available and
// nonzero priority.
func (m *Manufacturing) PowerDemand(modeConfigs map[taskID]agent.ISRUModeConfig) float64 {
	if m.idleAgent() == nil {
		return 0
	}
	max := 0.0
	for id, st := range m.tasks {
		if st.priority <= 0 {
			continue
		}
		if cfg, ok := modeConfigs[id]; ok && cfg.PowerKWh > max {
			max = cfg.PowerKWh
		}
	}
	return max
}

// Turns reports, for testing the DRR long-run fairness property, how many
// times each task has won the scheduler.
func (m *Manufacturing) Turns() map[taskID]int { return m.turnsByTask }
