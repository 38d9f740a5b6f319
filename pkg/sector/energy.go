package sector

// Energy allocates generated power across sectors each step, proportional
// to the combined priority vector the orchestrator supplies, charging
// batteries with any surplus and recording unmet demand.
type Energy struct {
	noopMutator
	ID              string
	GenerationKWh   float64 // G(t), overridden per step via SetGeneration for e.g. day/night cycles
	BatteryCapacity float64
	Battery         float64
	ShortageKWh     float64 // PWR-SHORTAGE-KW contribution from the last Allocate call
}

// NewEnergy constructs an Energy sector with a full battery.
func NewEnergy(id string, generationKWh, batteryCapacity float64) *Energy {
	return &Energy{ID: id, GenerationKWh: generationKWh, BatteryCapacity: batteryCapacity, Battery: batteryCapacity}
}

// SetGeneration overrides G(t) for the current step (e.g. solar input from
// the environment document).
func (e *Energy) SetGeneration(kWh float64) { e.GenerationKWh = kWh }

// Allocate distributes available generation (plus battery discharge, minus
// charge) across demand, weighted proportionally to priority. Sectors with
// priority 0 but demand > 0 receive nothing. Any generation left over after
// every demand is met charges the battery; any shortfall discharges it.
// Returns the allocation vector and records ShortageKWh for the step.
func (e *Energy) Allocate(demand, priority map[string]float64) map[string]float64 {
	totalPriority := 0.0
	totalDemand := 0.0
	for id, d := range demand {
		totalDemand += d
		totalPriority += priority[id]
	}

	allocation := make(map[string]float64, len(demand))
	available := e.GenerationKWh + e.Battery

	if totalDemand <= available {
		for id, d := range demand {
			allocation[id] = d
		}
		e.ShortageKWh = 0
		leftover := e.GenerationKWh - totalDemand
		e.charge(leftover)
		return allocation
	}

	// Not enough to meet everyone: split `available` by priority weight.
	// Demand with zero total priority falls back to an even split so it is
	// never silently zeroed out.
	for id, d := range demand {
		var share float64
		if totalPriority > 0 {
			share = available * (priority[id] / totalPriority)
		} else {
			share = available * (d / totalDemand)
		}
		if share > d {
			share = d
		}
		allocation[id] = share
	}
	e.ShortageKWh = totalDemand - available
	e.Battery = 0
	return allocation
}

func (e *Energy) charge(surplus float64) {
	if surplus <= 0 {
		e.Battery += surplus
		if e.Battery < 0 {
			e.Battery = 0
		}
		return
	}
	e.Battery += surplus
	if e.Battery > e.BatteryCapacity {
		e.Battery = e.BatteryCapacity
	}
}

// MetricContributions reports this sector's per-step metric slice.
func (e *Energy) MetricContributions() map[string]float64 {
	return map[string]float64{
		"PWR-SHORTAGE-KW": e.ShortageKWh,
		"battery_kwh":     e.Battery,
	}
}

var _ Mutator = (*noopMutator)(nil)

// noopMutator is embedded by sectors that don't yet expose throttle/target
// controls, satisfying the Mutator contract without a runtime panic from
// a misconfigured policy target.
type noopMutator struct{}

func (noopMutator) SetThrottleFactor(float64) {}
func (noopMutator) SetTargetRate(float64)     {}
