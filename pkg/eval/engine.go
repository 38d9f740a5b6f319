// Package eval implements the Evaluation Engine: it aggregates per-sector
// metric contributions into current values, scores every active goal
// against its target/bounds/growth_rate rule, and classifies each score
// into within/approaching/outside.
package eval

import (
	"math"

	"github.com/proxima-sim/proxima/pkg/model"
)

// Engine holds the metric and goal definitions active for a run.
type Engine struct {
	Metrics map[string]*model.PerformanceMetric
	Goals   []model.Goal
}

// New constructs an Engine over the given metric and goal definitions.
func New(metrics map[string]*model.PerformanceMetric, goals []model.Goal) *Engine {
	return &Engine{Metrics: metrics, Goals: goals}
}

// Evaluate re-aggregates every metric's current_value from contributions
// gathered this step, scores every goal, and returns the step's
// EvaluationResult. monthTick is the growth_rate goals' t (see
// pkg/kernel/clock.go for the step-to-month mapping).
func (e *Engine) Evaluate(t int, contributions map[string]map[string]float64, monthTick float64) model.EvaluationResult {
	result := model.EvaluationResult{
		T:         t,
		MonthTick: monthTick,
		Metrics:   make(map[string]float64, len(e.Metrics)),
		Scores:    make(map[string]model.GoalScore, len(e.Goals)),
	}

	for id, metric := range e.Metrics {
		metric.Contributions = contributions[id]
		value := 0.0
		for _, c := range metric.Contributions {
			value += c
		}
		metric.CurrentValue = value
		result.Metrics[id] = value
	}

	for _, g := range e.Goals {
		value := result.Metrics[g.MetricID]
		metric := e.Metrics[g.MetricID]
		score := scoreGoal(g, value, metric, monthTick)
		result.Scores[g.ID] = model.GoalScore{
			Value:  value,
			Score:  score,
			Status: model.StatusFromScore(score),
		}
	}

	return result
}

// SetGoal overwrites a registered goal's target/bounds/weight in place;
// a nil pointer leaves that field unchanged. Reports whether goalID
// matched a registered goal. Takes effect starting with the next
// Evaluate call, since Goals is read fresh every step.
func (e *Engine) SetGoal(goalID string, target, lo, hi, weight *float64) bool {
	for i := range e.Goals {
		if e.Goals[i].ID != goalID {
			continue
		}
		if target != nil {
			e.Goals[i].Target = *target
		}
		if lo != nil {
			e.Goals[i].Lo = *lo
		}
		if hi != nil {
			e.Goals[i].Hi = *hi
		}
		if weight != nil {
			e.Goals[i].Weight = *weight
		}
		return true
	}
	return false
}

func scoreGoal(g model.Goal, value float64, metric *model.PerformanceMetric, monthTick float64) float64 {
	negative := metric != nil && metric.Polarity == model.PolarityNegative

	switch g.Type {
	case model.GoalTarget:
		if g.Target == 0 {
			return 1
		}
		score := 1 - clamp(math.Abs(value-g.Target)/math.Abs(g.Target), 0, 1)
		if negative {
			// A negative-polarity metric overshooting its target is worse;
			// meeting or undershooting it scores 1.
			if value <= g.Target {
				return 1
			}
			return score
		}
		return score

	case model.GoalBounds:
		if value >= g.Lo && value <= g.Hi {
			return 1
		}
		span := g.Hi - g.Lo
		if span <= 0 {
			return 0
		}
		var dist float64
		if value < g.Lo {
			dist = g.Lo - value
		} else {
			dist = value - g.Hi
		}
		return clamp(1-dist/span, 0, 1)

	case model.GoalGrowthRate:
		target := g.GrowthTarget(monthTick)
		if target <= 0 {
			return 1
		}
		if g.Direction == model.DirectionMinimize {
			if value <= 0 {
				return 1
			}
			return clamp(target/value, 0, 1)
		}
		return clamp(value/target, 0, 1)
	}
	return 0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
