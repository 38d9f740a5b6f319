// Package model defines the core data types of the Proxima simulation:
// stocks, flows, agents, sectors, requests, goals and metrics. These are
// plain structs shared across the kernel, sectors, agents, evaluation and
// policy packages — they hold no behavior beyond small invariant-preserving
// helpers.
package model

import "fmt"

// Stock is a sector's resource inventory, keyed by resource id
// (he3, water, regolith, rocket_fuel, shells, ...).
// Values never go negative; all mutation happens through the ledger.
type Stock map[string]float64

// Clone returns an independent copy of the stock map.
func (s Stock) Clone() Stock {
	out := make(Stock, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Get returns the current quantity of a resource, defaulting to zero.
func (s Stock) Get(resourceID string) float64 {
	return s[resourceID]
}

// BufferRange is a min/max inventory threshold pair.
type BufferRange struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// BufferTarget maps resource id to its min/max thresholds, driving
// deficiency-based task prioritization: deficiency = max(0, min - current).
type BufferTarget map[string]BufferRange

// Deficiency returns max(0, min - current) for the given resource.
func (b BufferTarget) Deficiency(resourceID string, current float64) float64 {
	r, ok := b[resourceID]
	if !ok {
		return 0
	}
	d := r.Min - current
	if d < 0 {
		return 0
	}
	return d
}

// StockFlow is an atomic resource-transfer record collected during a step
// and committed together at the step's commit phase. Delta > 0 adds to
// dest, subtracts from source. Source or Dest may be ExternalParty for
// pure production/consumption flows (only one side is debited/credited).
type StockFlow struct {
	Source     string  `json:"source"`
	Dest       string  `json:"dest"`
	ResourceID string  `json:"resource_id"`
	Delta      float64 `json:"delta"`
}

// ExternalParty marks one side of a StockFlow as outside the sector graph
// (pure production, e.g. ISRU extraction, or pure consumption, e.g. agent
// wear-and-tear disposal) — the flow only moves the other side's stock.
const ExternalParty = "ext"

func (f StockFlow) String() string {
	return fmt.Sprintf("%s->%s %s%+g", f.Source, f.Dest, f.ResourceID, f.Delta)
}
