package model

import "math"

// Direction is the optimization sense of a goal's underlying metric.
type Direction string

const (
	DirectionMaximize Direction = "maximize"
	DirectionMinimize Direction = "minimize"
)

// GoalType selects which scoring rule the Evaluation Engine applies.
type GoalType string

const (
	GoalTarget     GoalType = "target"
	GoalBounds     GoalType = "bounds"
	GoalGrowthRate GoalType = "growth_rate"
)

// Goal is a parametric performance target evaluated every step.
type Goal struct {
	ID        string    `json:"id"`
	MetricID  string    `json:"metric_id"`
	Direction Direction `json:"direction"`
	Type      GoalType  `json:"goal_type"`

	// Used when Type == GoalTarget.
	Target float64 `json:"target,omitempty"`

	// Used when Type == GoalBounds.
	Lo float64 `json:"lo,omitempty"`
	Hi float64 `json:"hi,omitempty"`

	// Used when Type == GoalGrowthRate: target(t) = base * factor^(t/period).
	Base   float64 `json:"base,omitempty"`
	Factor float64 `json:"factor,omitempty"`
	Period float64 `json:"period,omitempty"`

	Weight  float64 `json:"weight"`
	Horizon int     `json:"horizon,omitempty"`
}

// GrowthTarget evaluates target(t) = base * factor^(t/period) for a
// growth_rate goal at month-tick t (see pkg/kernel/clock.go for the
// step-to-month mapping).
func (g Goal) GrowthTarget(t float64) float64 {
	if g.Period == 0 {
		return g.Base
	}
	return g.Base * math.Pow(g.Factor, t/g.Period)
}
