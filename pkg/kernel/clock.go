package kernel

// StepsPerMonth fixes the step-to-month-tick mapping: one step is one
// simulated hour (see SPEC_FULL.md §12 step-unit decision), so 720 steps
// (30 days x 24h) make one month — the unit growth_rate goals and the
// ScienceGrowth policy's doubling period are expressed in.
const StepsPerMonth = 720.0

// MonthTick converts a step count into the fractional month tick that
// model.Goal.GrowthTarget and the ScienceGrowth policy's lead-time horizon
// operate on.
func MonthTick(t int) float64 {
	return float64(t) / StepsPerMonth
}
