package policy

import (
	"math"

	"github.com/proxima-sim/proxima/pkg/model"
)

// ScienceGrowth forecasts the rover fleet needed to keep pace with a
// doubling science-rate curve and orders new Science_Rover_EQ modules lead
// time L months ahead, tracking outstanding orders so it never double-buys
// while a shipment is in flight.
type ScienceGrowth struct {
	id      string
	enabled bool

	ScienceMetricID      string
	BaseRate             float64 // S0
	DoublingPeriodMonths float64 // default 6
	LeadTimeMonths       float64 // L
	SafetyMargin         float64 // beta
	PerRoverProductivity float64 // p_eff
	ModuleType           string  // "Science_Rover_EQ"

	ActiveRovers   func() int
	ExpectedLosses float64
	Pipeline       []model.PipelineOrder
}

// NewScienceGrowth constructs the policy with a 6-month doubling period.
func NewScienceGrowth(scienceMetricID string, baseRate, leadTimeMonths, safetyMargin, perRoverProductivity float64, activeRovers func() int) *ScienceGrowth {
	return &ScienceGrowth{
		id:                   "PLCY-SCIENCE-GROWTH",
		enabled:              true,
		ScienceMetricID:      scienceMetricID,
		BaseRate:             baseRate,
		DoublingPeriodMonths: 6,
		LeadTimeMonths:       leadTimeMonths,
		SafetyMargin:         safetyMargin,
		PerRoverProductivity: perRoverProductivity,
		ModuleType:           "Science_Rover_EQ",
		ActiveRovers:         activeRovers,
	}
}

func (p *ScienceGrowth) ID() string        { return p.id }
func (p *ScienceGrowth) Enabled() bool     { return p.enabled }
func (p *ScienceGrowth) SetEnabled(v bool) { p.enabled = v }

// Apply computes the forecast science-output target at t+L, pushes it to
// the Science sector via set_target_rate so it only operates as many
// rovers as the forecast actually calls for, and, if the active-plus-
// in-flight fleet falls short of covering it, requests a build and
// appends a pipeline entry so the forecast accounts for it on every
// subsequent call until its arrival is observed.
func (p *ScienceGrowth) Apply(world World, evalResult model.EvaluationResult) []Effect {
	horizon := evalResult.MonthTick + p.LeadTimeMonths
	sTarget := p.BaseRate * math.Pow(2, horizon/p.DoublingPeriodMonths)

	effects := []Effect{{PolicyID: p.id, SectorID: "science", Kind: "set_target_rate", Value: sTarget}}

	rReq := math.Ceil(sTarget / p.PerRoverProductivity)

	rActive := 0.0
	if p.ActiveRovers != nil {
		rActive = float64(p.ActiveRovers())
	}
	rFore := rActive - p.ExpectedLosses
	for _, order := range p.Pipeline {
		if float64(order.MonthOfArrival) <= horizon {
			rFore += float64(order.Qty)
		}
	}

	q := math.Ceil((1+p.SafetyMargin)*rReq) - rFore
	if q <= 0 {
		return effects
	}
	qty := int(q)

	p.Pipeline = append(p.Pipeline, model.PipelineOrder{MonthOfArrival: int(horizon), Qty: qty, EquipmentID: p.ModuleType})

	return append(effects, Effect{PolicyID: p.id, Kind: "request_build", ModuleType: p.ModuleType, Qty: qty})
}

// ObserveArrival removes the oldest pipeline entry for this module type.
// The kernel calls it when a module_completed event reports a finished
// module; payload_delivered events do not remove pipeline entries.
func (p *ScienceGrowth) ObserveArrival(moduleType string) {
	for i, order := range p.Pipeline {
		if order.EquipmentID == moduleType {
			p.Pipeline = append(p.Pipeline[:i], p.Pipeline[i+1:]...)
			return
		}
	}
}
