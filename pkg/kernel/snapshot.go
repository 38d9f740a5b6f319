package kernel

import (
	"encoding/json"

	"github.com/proxima-sim/proxima/pkg/ledger"
	"github.com/proxima-sim/proxima/pkg/model"
)

// Snapshot is the serializable projection of a Kernel's state: experiment
// id, run seed, step clock, pause flag, overdraft mode, every sector's
// stock, the evaluation engine's metrics, the prior step's metric
// contributions, and each agent's AgentState (mode, health).
//
// It does not capture sector-internal state: Manufacturing's DRR banks,
// rotation pointer and he3/water pending flags, the resource and equipment
// backlogs, construction requests, equipment inventory, the Energy battery,
// throttle factors, rocket payloads, policy pipelines, or events queued on
// the bus. Load leaves that state as the receiving Kernel already holds it,
// so a restored Kernel does not necessarily step identically to the one
// that was dumped.
type Snapshot struct {
	ExperimentID       string                             `json:"experiment_id"`
	RunSeed            int64                              `json:"run_seed"`
	T                  int                                `json:"t"`
	Paused             bool                               `json:"paused"`
	OverdraftMode      string                             `json:"overdraft_mode"`
	Stocks             map[string]model.Stock             `json:"stocks"`
	Metrics            map[string]model.PerformanceMetric `json:"metrics"`
	PriorContributions map[string]map[string]float64      `json:"prior_contributions"`
	Agents             SnapshotAgents                     `json:"agents"`
}

// SnapshotAgents captures every agent's Base (identity/mode/health) across
// the six fleets, keyed by agent id.
type SnapshotAgents struct {
	Manufacturing  map[string]model.AgentState `json:"manufacturing"`
	Construction   map[string]model.AgentState `json:"construction"`
	Transportation map[string]model.AgentState `json:"transportation"`
	Science        map[string]model.AgentState `json:"science"`
}

// Dump captures the current in-memory state as a Snapshot.
func (k *Kernel) Dump() Snapshot {
	snap := Snapshot{
		ExperimentID:       k.ExperimentID,
		RunSeed:            k.RunSeed,
		T:                  k.T,
		Paused:             k.paused,
		OverdraftMode:      string(k.OverdraftMode),
		Stocks:             make(map[string]model.Stock, len(k.stocks)),
		Metrics:            make(map[string]model.PerformanceMetric, len(k.evalEng.Metrics)),
		PriorContributions: k.priorContributions,
		Agents: SnapshotAgents{
			Manufacturing:  make(map[string]model.AgentState),
			Construction:   make(map[string]model.AgentState),
			Transportation: make(map[string]model.AgentState),
			Science:        make(map[string]model.AgentState),
		},
	}

	for sectorID, stock := range k.stocks {
		cp := make(model.Stock, len(stock))
		for k2, v := range stock {
			cp[k2] = v
		}
		snap.Stocks[sectorID] = cp
	}
	for id, m := range k.evalEng.Metrics {
		snap.Metrics[id] = *m
	}
	for _, a := range k.sectors.Manufacturing.Fleet {
		snap.Agents.Manufacturing[a.ID] = a.AgentState
	}
	for _, p := range k.sectors.Construction.Printers {
		snap.Agents.Construction[p.ID] = p.AgentState
	}
	for _, r := range k.sectors.Construction.Assemblers {
		snap.Agents.Construction[r.ID] = r.AgentState
	}
	for _, r := range k.sectors.Transportation.Fleet {
		snap.Agents.Transportation[r.ID] = r.AgentState
	}
	for _, g := range k.sectors.Transportation.FuelGenerators {
		snap.Agents.Transportation[g.ID] = g.AgentState
	}
	for _, r := range k.sectors.Science.Fleet {
		snap.Agents.Science[r.ID] = r.AgentState
	}

	return snap
}

// Load restores a Kernel's clock, stocks, metrics and agent lifecycle state
// from a Snapshot previously produced by Dump on a Kernel built from the
// SAME resolved world (same fleets, same ids) — Load never adds or removes
// agents, it only restores the mode/health/stock state of the ones already
// assembled by New.
func (k *Kernel) Load(snap Snapshot) {
	k.T = snap.T
	k.paused = snap.Paused
	k.OverdraftMode = ledger.OverdraftMode(snap.OverdraftMode)

	k.stocks = make(map[string]model.Stock, len(snap.Stocks))
	for sectorID, stock := range snap.Stocks {
		cp := make(model.Stock, len(stock))
		for k2, v := range stock {
			cp[k2] = v
		}
		k.stocks[sectorID] = cp
	}

	k.priorContributions = snap.PriorContributions

	for id, m := range snap.Metrics {
		mCopy := m
		k.evalEng.Metrics[id] = &mCopy
	}

	for _, a := range k.sectors.Manufacturing.Fleet {
		if s, ok := snap.Agents.Manufacturing[a.ID]; ok {
			a.AgentState = s
		}
	}
	for _, p := range k.sectors.Construction.Printers {
		if s, ok := snap.Agents.Construction[p.ID]; ok {
			p.AgentState = s
		}
	}
	for _, r := range k.sectors.Construction.Assemblers {
		if s, ok := snap.Agents.Construction[r.ID]; ok {
			r.AgentState = s
		}
	}
	for _, r := range k.sectors.Transportation.Fleet {
		if s, ok := snap.Agents.Transportation[r.ID]; ok {
			r.AgentState = s
		}
	}
	for _, g := range k.sectors.Transportation.FuelGenerators {
		if s, ok := snap.Agents.Transportation[g.ID]; ok {
			g.AgentState = s
		}
	}
	for _, r := range k.sectors.Science.Fleet {
		if s, ok := snap.Agents.Science[r.ID]; ok {
			r.AgentState = s
		}
	}
}

// Marshal/UnmarshalSnapshot encode and decode a snapshot as JSON; cmd/proxima
// stores the encoded form in the snapshots collection.
func (s Snapshot) Marshal() ([]byte, error) { return json.Marshal(s) }

func UnmarshalSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	err := json.Unmarshal(data, &s)
	return s, err
}
