package config

import "sync"

// BuiltinConfig holds the built-in default parameter sets. Only
// PolicyDefaults is read at run time (pkg/kernel merges it under each
// policy's params); the component templates, sector params and goals are
// not consulted when a world is resolved. Mirrors the teacher's
// GetBuiltinConfig singleton shape.
type BuiltinConfig struct {
	ComponentTemplates map[string]ComponentTemplate
	SectorParams       map[string]map[string]any
	PolicyDefaults     map[string]map[string]any
	DefaultGoals       map[string]GoalSeed
}

// GoalSeed is the raw document shape a goal fixture decodes from; kept
// separate from model.Goal so builtin defaults read like the other
// built-in maps (plain literals, no constructor calls).
type GoalSeed struct {
	MetricID  string
	Direction string
	Type      string
	Target    float64
	Lo, Hi    float64
	Base      float64
	Factor    float64
	Period    float64
	Weight    float64
	Horizon   int
}

var (
	builtinConfig     *BuiltinConfig
	builtinConfigOnce sync.Once
)

// GetBuiltinConfig returns the singleton built-in configuration, lazily
// initialized on first call.
func GetBuiltinConfig() *BuiltinConfig {
	builtinConfigOnce.Do(initBuiltinConfig)
	return builtinConfig
}

func initBuiltinConfig() {
	builtinConfig = &BuiltinConfig{
		ComponentTemplates: initBuiltinComponentTemplates(),
		SectorParams:       initBuiltinSectorParams(),
		PolicyDefaults:     initBuiltinPolicyDefaults(),
		DefaultGoals:       initBuiltinGoals(),
	}
}

// initBuiltinComponentTemplates returns the stock agent templates every
// standard world system draws from, keyed by the stable template id used
// across fixtures (e.g. comp_isru_he3).
func initBuiltinComponentTemplates() map[string]ComponentTemplate {
	return map[string]ComponentTemplate{
		"comp_isru_he3": {
			ID: "comp_isru_he3", Type: "isru",
			Defaults: map[string]any{
				"lifetime_cap_steps": 43800,
				"modes": map[string]any{
					"HE3_EXTRACTION": map[string]any{
						"power_kwh": 12.0, "throughput_tons": 1.0,
						"min_ppb": 3.0, "mode_ppb": 8.0, "max_ppb": 20.0, "efficiency": 0.6,
					},
				},
			},
		},
		"comp_isru_regolith": {
			ID: "comp_isru_regolith", Type: "isru",
			Defaults: map[string]any{
				"lifetime_cap_steps": 43800,
				"modes": map[string]any{
					"REGOLITH_EXTRACTION": map[string]any{
						"power_kwh": 6.0, "outputs": map[string]any{"regolith": 4.0},
					},
				},
			},
		},
		"comp_isru_water": {
			ID: "comp_isru_water", Type: "isru",
			Defaults: map[string]any{
				"lifetime_cap_steps": 43800,
				"modes": map[string]any{
					"ICE_EXTRACTION": map[string]any{
						"power_kwh": 8.0, "outputs": map[string]any{"water": 3.0},
					},
					"ELECTROLYSIS": map[string]any{
						"power_kwh": 5.0, "inputs": map[string]any{"water": 2.0},
						"outputs": map[string]any{"oxygen": 1.5, "hydrogen": 0.2},
					},
				},
			},
		},
		"comp_printing_robot": {
			ID: "comp_printing_robot", Type: "printing_robot",
			Defaults: map[string]any{
				"lifetime_cap_steps": 43800, "processing_time_steps": 6,
				"regolith_per_step": 3.0, "power_per_step": 4.0,
			},
		},
		"comp_assembly_robot": {
			ID: "comp_assembly_robot", Type: "assembly_robot",
			Defaults: map[string]any{"lifetime_cap_steps": 43800, "processing_time_steps": 8},
		},
		"comp_rocket": {
			ID: "comp_rocket", Type: "rocket",
			Defaults: map[string]any{
				"lifetime_cap_steps": 87600, "cruise_speed_km_per_step": 38440, "loading_steps": 24,
			},
		},
		"comp_fuel_generator": {
			ID: "comp_fuel_generator", Type: "fuel_generator",
			Defaults: map[string]any{
				"lifetime_cap_steps": 43800, "gwh_thermal_per_kg": 0.01,
				"efficiency": 0.9, "kwh_per_kg_prop": 5.0,
			},
		},
		"comp_science_rover": {
			ID: "comp_science_rover", Type: "science_rover",
			Defaults: map[string]any{
				"lifetime_cap_steps": 43800, "battery_capacity": 5.0,
				"min_battery_to_op": 3.0, "science_per_step": 10.0,
				"charge_rate_kwh": 4.0, "power_per_step": 2.0,
			},
		},
	}
}

// initBuiltinSectorParams returns the default sector-level scalar
// parameters (SectorComposition.Params) for a standard single-environment
// world system.
func initBuiltinSectorParams() map[string]map[string]any {
	return map[string]map[string]any{
		"energy": {"generation_kwh": 500.0, "battery_capacity": 1200.0},
		"manufacturing": {
			"tau": 1.0,
			"priorities": map[string]any{
				"HE3_EXTRACTION": 3.0, "ICE_EXTRACTION": 1.0, "REGOLITH_EXTRACTION": 1.0,
			},
			"he3_threshold": 20.0, "water_threshold": 15.0, "backlog_max_age_steps": 168,
		},
		"construction": {
			"shell_storage_capacity": 40,
			"module_specs": map[string]any{
				"hab_module":       map[string]any{"shells_needed": 3, "equipment_type_id": "comp_life_support"},
				"Science_Rover_EQ": map[string]any{"shells_needed": 1, "equipment_type_id": "comp_rover_kit"},
			},
		},
		"equipment": {
			"backlog_max_age_steps": 168,
			"inventory": map[string]any{
				"comp_life_support": map[string]any{"minimum_level": 5.0},
				"comp_rover_kit":    map[string]any{"minimum_level": 3.0},
			},
		},
		"transportation": {
			"prop_per_kg": 0.3, "he3_threshold": 10.0,
		},
		"science": {"per_rover_power_kwh": 2.0},
	}
}

// initBuiltinPolicyDefaults returns parameter defaults for the two
// built-in policy Types, applied when a policy fixture's Params omits a
// field.
func initBuiltinPolicyDefaults() map[string]map[string]any {
	return map[string]map[string]any{
		"dust_throttle": {
			"dust_metric_id": "dust_coverage", "dust_target": 0.8,
			"start_ratio": 0.7, "max_throttle": 0.8,
			"sectors": []any{"science", "manufacturing"},
		},
		"science_growth": {
			"science_metric_id": "science_output", "base_rate": 10.0,
			"lead_time_months": 3.0, "safety_margin": 0.15, "per_rover_productivity": 10.0,
		},
	}
}

// initBuiltinGoals returns the standard goal set a first-run experiment
// activates.
func initBuiltinGoals() map[string]GoalSeed {
	return map[string]GoalSeed{
		"goal_dust_coverage": {
			MetricID: "dust_coverage", Direction: "minimize", Type: "bounds",
			Lo: 0, Hi: 0.8, Weight: 1.0,
		},
		"goal_science_output": {
			MetricID: "science_output", Direction: "maximize", Type: "growth_rate",
			Base: 10.0, Factor: 2.0, Period: 6.0, Weight: 1.0, Horizon: 3,
		},
		"goal_power_shortage": {
			MetricID: "PWR-SHORTAGE-KW", Direction: "minimize", Type: "target",
			Target: 0, Weight: 1.0,
		},
	}
}
