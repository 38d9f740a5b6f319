package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/proxima-sim/proxima/pkg/model"
)

func TestEvaluateAggregatesContributionsIntoCurrentValue(t *testing.T) {
	e := New(map[string]*model.PerformanceMetric{
		"dust_coverage": {ID: "dust_coverage", Polarity: model.PolarityNegative},
	}, nil)

	result := e.Evaluate(5, map[string]map[string]float64{
		"dust_coverage": {"science": 0.2, "manufacturing": 0.1},
	}, 0)

	assert.InDelta(t, 0.3, result.Metrics["dust_coverage"], 1e-12)
	assert.Equal(t, 5, result.T)
}

func TestBoundsGoalScoresOneInsideRangeAndFallsOffOutside(t *testing.T) {
	e := New(map[string]*model.PerformanceMetric{"temp": {ID: "temp"}}, []model.Goal{
		{ID: "temp-bounds", MetricID: "temp", Type: model.GoalBounds, Lo: 10, Hi: 20, Weight: 1},
	})

	within := e.Evaluate(0, map[string]map[string]float64{"temp": {"s": 15}}, 0)
	assert.Equal(t, 1.0, within.Scores["temp-bounds"].Score)
	assert.Equal(t, model.StatusWithin, within.Scores["temp-bounds"].Status)

	outside := e.Evaluate(0, map[string]map[string]float64{"temp": {"s": 25}}, 0)
	assert.Less(t, outside.Scores["temp-bounds"].Score, 1.0)
}

func TestTargetGoalScoresOneAtExactTarget(t *testing.T) {
	e := New(map[string]*model.PerformanceMetric{"m": {ID: "m"}}, []model.Goal{
		{ID: "g", MetricID: "m", Type: model.GoalTarget, Target: 100, Weight: 1},
	})

	result := e.Evaluate(0, map[string]map[string]float64{"m": {"s": 100}}, 0)
	assert.Equal(t, 1.0, result.Scores["g"].Score)
}

func TestGrowthRateGoalCapsAtOneWhenAboveCurve(t *testing.T) {
	e := New(map[string]*model.PerformanceMetric{"science": {ID: "science"}}, []model.Goal{
		{ID: "g", MetricID: "science", Type: model.GoalGrowthRate, Direction: model.DirectionMaximize, Base: 10, Factor: 2, Period: 6, Weight: 1},
	})

	result := e.Evaluate(0, map[string]map[string]float64{"science": {"s": 1000}}, 0)
	assert.Equal(t, 1.0, result.Scores["g"].Score)
}

func TestStatusFromScoreBoundaries(t *testing.T) {
	assert.Equal(t, model.StatusWithin, model.StatusFromScore(0.9))
	assert.Equal(t, model.StatusApproaching, model.StatusFromScore(0.5))
	assert.Equal(t, model.StatusApproaching, model.StatusFromScore(0.89999))
	assert.Equal(t, model.StatusOutside, model.StatusFromScore(0.49999))
}
