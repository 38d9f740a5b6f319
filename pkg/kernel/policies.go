package kernel

import (
	"github.com/proxima-sim/proxima/pkg/config"
	"github.com/proxima-sim/proxima/pkg/policy"
)

// dustThrottleParams is the decoded shape of a dust_throttle PolicyConfig's
// Params, falling back to config.GetBuiltinConfig().PolicyDefaults for any
// field a fixture leaves unset.
type dustThrottleParams struct {
	DustMetricID string   `json:"dust_metric_id"`
	DustTarget   float64  `json:"dust_target"`
	StartRatio   float64  `json:"start_ratio"`
	MaxThrottle  float64  `json:"max_throttle"`
	Sectors      []string `json:"sectors"`
}

// scienceGrowthParams is the decoded shape of a science_growth
// PolicyConfig's Params.
type scienceGrowthParams struct {
	ScienceMetricID      string  `json:"science_metric_id"`
	BaseRate             float64 `json:"base_rate"`
	LeadTimeMonths       float64 `json:"lead_time_months"`
	SafetyMargin         float64 `json:"safety_margin"`
	PerRoverProductivity float64 `json:"per_rover_productivity"`
}

// applyPolicyDefaults merges a policy's builtin defaults underneath its
// fixture-supplied params: any key the fixture omits is filled from
// defaults before decodeInto runs.
func applyPolicyDefaults(policyType string, params map[string]any) map[string]any {
	defaults := config.GetBuiltinConfig().PolicyDefaults[policyType]
	merged := make(map[string]any, len(defaults)+len(params))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v
	}
	return merged
}

// newDustThrottlePolicy builds the DustCoverageThrottle policy, honoring
// pc.Enabled (a fixture may register the policy disabled and flip it on
// later via a set_policy command).
func newDustThrottlePolicy(pc config.PolicyConfig, p dustThrottleParams) policy.Policy {
	dt := policy.NewDustCoverageThrottle(p.DustMetricID, p.DustTarget, p.Sectors)
	if p.StartRatio > 0 {
		dt.StartRatio = p.StartRatio
	}
	if p.MaxThrottle > 0 {
		dt.MaxThrottle = p.MaxThrottle
	}
	dt.SetEnabled(pc.Enabled)
	return dt
}

// newScienceGrowthPolicy builds the ScienceGrowth policy, wiring its
// ActiveRovers callback to count non-retired rovers in the live Science
// fleet so the forecast always reflects the current fleet size.
func newScienceGrowthPolicy(pc config.PolicyConfig, p scienceGrowthParams, sectors *sectorSet) policy.Policy {
	activeRovers := func() int {
		count := 0
		for _, r := range sectors.Science.Fleet {
			if !r.Retired() {
				count++
			}
		}
		return count
	}
	sg := policy.NewScienceGrowth(p.ScienceMetricID, p.BaseRate, p.LeadTimeMonths, p.SafetyMargin, p.PerRoverProductivity, activeRovers)
	sg.SetEnabled(pc.Enabled)
	return sg
}
