// Package config implements the Builder: it resolves an experiment's
// world_systems composition against component_templates defaults by
// overlay (sector-level config overrides template defaults), loads the
// experiment's activated goals, policies and environment, and validates
// the result before the kernel starts stepping.
package config

import "github.com/proxima-sim/proxima/pkg/model"

// EnvironmentConfig holds environmental parameters for a run: distance,
// gravity, solar input.
type EnvironmentConfig struct {
	ID            string  `json:"id" yaml:"id"`
	DistanceKm    float64 `json:"distance_km" yaml:"distance_km"`
	GravityMps2   float64 `json:"gravity_mps2" yaml:"gravity_mps2"`
	SolarInputKWh float64 `json:"solar_input_kwh" yaml:"solar_input_kwh"`
}

// ComponentTemplate is an agent type's default parameter set — id matches
// the stable document ids used across the pack (e.g. comp_isru_he3).
// Defaults is opaque to the Builder: it is merged, then handed to the
// kernel's world-assembly step, which knows how to turn a resolved
// component doc into the concrete agent.* constructor for its Type.
type ComponentTemplate struct {
	ID       string         `json:"id" yaml:"id"`
	Type     string         `json:"type" yaml:"type"`
	Defaults map[string]any `json:"defaults" yaml:"defaults"`
}

// SectorComposition names the component templates a sector instantiates
// and any sector-level overrides applied over each template's defaults.
type SectorComposition struct {
	SectorID   string                    `json:"sector_id" yaml:"sector_id"`
	Components []ComponentRef            `json:"components" yaml:"components"`
	Overrides  map[string]map[string]any `json:"overrides" yaml:"overrides"` // component id -> override fields
	// Params holds sector-level scalar settings that have no per-agent
	// template (e.g. Energy's generation/battery capacity, Manufacturing's
	// tau/priorities/thresholds, Transportation's prop_per_kg). Opaque to
	// the Builder; decoded by the kernel's sector assembly step.
	Params map[string]any `json:"params" yaml:"params"`
}

// ComponentRef instantiates Count copies of a component template.
type ComponentRef struct {
	TemplateID string `json:"template_id" yaml:"template_id"`
	Count      int    `json:"count" yaml:"count"`
}

// WorldSystemConfig is a per-run composition of sectors (e.g. WS-PG-004).
type WorldSystemConfig struct {
	ID          string                    `json:"id" yaml:"id"`
	Environment string                    `json:"environment" yaml:"environment"` // environments doc id
	Sectors     []SectorComposition       `json:"sectors" yaml:"sectors"`
	Metrics     []model.PerformanceMetric `json:"metrics" yaml:"metrics"`
}

// PolicyConfig activates a built-in policy (by Type) with parameters.
type PolicyConfig struct {
	ID      string         `json:"id" yaml:"id"`
	Type    string         `json:"type" yaml:"type"` // "dust_throttle" | "science_growth"
	Enabled bool           `json:"enabled" yaml:"enabled"`
	Params  map[string]any `json:"params" yaml:"params"`
}

// ExperimentConfig names the activated world system, goals and policies
// for a run, plus its PRNG seed.
type ExperimentConfig struct {
	ID            string   `json:"id" yaml:"id"`
	WorldSystemID string   `json:"world_system_id" yaml:"world_system_id"`
	Seed          int64    `json:"seed" yaml:"seed"`
	GoalIDs       []string `json:"goal_ids" yaml:"goal_ids"`
	PolicyIDs     []string `json:"policy_ids" yaml:"policy_ids"`
}

// ResolvedComponent is one instantiable component after template+override
// merge: Defaults carries the final parameter set for that Type.
type ResolvedComponent struct {
	TemplateID string
	Type       string
	SectorID   string
	Count      int
	Defaults   map[string]any
}

// ResolvedWorld is the Builder's output: everything the kernel needs to
// assemble sectors, agents, goals and policies for one experiment.
type ResolvedWorld struct {
	Experiment  ExperimentConfig
	Environment EnvironmentConfig
	Sectors     []SectorComposition
	Components  []ResolvedComponent
	Goals       []model.Goal
	Policies    []PolicyConfig
}
