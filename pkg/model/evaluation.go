package model

// Polarity tells the Evaluation Engine whether higher values of a metric
// are good (positive) or bad (negative, e.g. dust coverage).
type Polarity string

const (
	PolarityPositive Polarity = "positive"
	PolarityNegative Polarity = "negative"
)

// PerformanceMetric is a measured quantity re-aggregated every step from
// per-sector contributions: current_value = sum(contributions).
type PerformanceMetric struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Polarity      Polarity           `json:"polarity"`
	Unit          string             `json:"unit"`
	CurrentValue  float64            `json:"current_value"`
	Contributions map[string]float64 `json:"contributions"`
}

// GoalStatus classifies how close a goal's score is to being met.
type GoalStatus string

const (
	StatusWithin      GoalStatus = "within"
	StatusApproaching GoalStatus = "approaching"
	StatusOutside     GoalStatus = "outside"
)

// GoalScore is one goal's evaluation outcome for a step.
type GoalScore struct {
	Value  float64    `json:"value"`
	Score  float64    `json:"score"`
	Status GoalStatus `json:"status"`
}

// EvaluationResult is the per-step snapshot of metrics and goal scores
// produced by the Evaluation Engine and consumed (read-only) by policies.
type EvaluationResult struct {
	T         int                  `json:"t"`
	MonthTick float64              `json:"month_tick"`
	Metrics   map[string]float64   `json:"metrics"`
	Scores    map[string]GoalScore `json:"scores"`
}

// StatusFromScore classifies a [0,1] score: within >= 0.9, approaching in
// [0.5, 0.9), outside otherwise.
func StatusFromScore(score float64) GoalStatus {
	switch {
	case score >= 0.9:
		return StatusWithin
	case score >= 0.5:
		return StatusApproaching
	default:
		return StatusOutside
	}
}
