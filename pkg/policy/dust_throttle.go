package policy

import "github.com/proxima-sim/proxima/pkg/model"

// DustCoverageThrottle ramps a set of sectors' throttle factor up as dust
// coverage approaches its target, resetting to zero once dust drops back
// into the safe band below start_ratio * target.
type DustCoverageThrottle struct {
	id      string
	enabled bool

	DustMetricID string
	DustTarget   float64
	StartRatio   float64 // r_start, default 0.7
	MaxThrottle  float64 // theta_max, default 0.8
	Sectors      []string
}

// NewDustCoverageThrottle constructs the policy with the spec's defaults
// (r_start=0.7, theta_max=0.8) applied to science and manufacturing.
func NewDustCoverageThrottle(dustMetricID string, dustTarget float64, sectors []string) *DustCoverageThrottle {
	if len(sectors) == 0 {
		sectors = []string{"science", "manufacturing"}
	}
	return &DustCoverageThrottle{
		id:           "PLCY-DUST-THROTTLE",
		enabled:      true,
		DustMetricID: dustMetricID,
		DustTarget:   dustTarget,
		StartRatio:   0.7,
		MaxThrottle:  0.8,
		Sectors:      sectors,
	}
}

func (p *DustCoverageThrottle) ID() string        { return p.id }
func (p *DustCoverageThrottle) Enabled() bool     { return p.enabled }
func (p *DustCoverageThrottle) SetEnabled(v bool) { p.enabled = v }

// Apply computes theta from the current dust reading and emits a
// set_throttle_factor effect for every configured sector. The function is
// pure in D: feeding it the same current dust twice produces the same
// theta both times, and restoring dust below the safe band resets theta
// to zero on the very next evaluation.
func (p *DustCoverageThrottle) Apply(world World, evalResult model.EvaluationResult) []Effect {
	d := evalResult.Metrics[p.DustMetricID]
	dStart := p.DustTarget * p.StartRatio

	var theta float64
	switch {
	case d <= dStart:
		theta = 0
	case d >= p.DustTarget:
		theta = p.MaxThrottle
	default:
		theta = p.MaxThrottle * (d - dStart) / (p.DustTarget - dStart)
	}

	effects := make([]Effect, 0, len(p.Sectors))
	for _, sectorID := range p.Sectors {
		effects = append(effects, Effect{PolicyID: p.id, SectorID: sectorID, Kind: "set_throttle_factor", Value: theta})
	}
	return effects
}
