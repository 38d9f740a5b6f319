package config

import (
	"fmt"

	"github.com/proxima-sim/proxima/pkg/kernelerr"
)

// validate checks a resolved world for the structural requirements the
// kernel assumes before it will start stepping: an experiment id is set,
// sector ids are non-empty and unique, component counts are positive. It
// does not check that goals and policies name a metric some component
// produces.
func validate(w *ResolvedWorld) error {
	if w.Experiment.ID == "" {
		return &kernelerr.ConfigError{Collection: "experiments", Err: fmt.Errorf("experiment id is required")}
	}
	if len(w.Sectors) == 0 {
		return &kernelerr.ConfigError{Collection: "world_systems", ID: w.Experiment.WorldSystemID, Err: fmt.Errorf("world system has no sectors")}
	}

	seenSector := make(map[string]bool, len(w.Sectors))
	for _, sc := range w.Sectors {
		if sc.SectorID == "" {
			return &kernelerr.ConfigError{Collection: "world_systems", ID: w.Experiment.WorldSystemID, Err: fmt.Errorf("sector with empty id")}
		}
		if seenSector[sc.SectorID] {
			return &kernelerr.ConfigError{Collection: "world_systems", ID: w.Experiment.WorldSystemID, Err: fmt.Errorf("duplicate sector id %q", sc.SectorID)}
		}
		seenSector[sc.SectorID] = true
	}

	for _, c := range w.Components {
		if c.Count <= 0 {
			return &kernelerr.ConfigError{Collection: "component_templates", ID: c.TemplateID, Err: fmt.Errorf("count must be positive, got %d", c.Count)}
		}
		if c.Type == "" {
			return &kernelerr.ConfigError{Collection: "component_templates", ID: c.TemplateID, Err: fmt.Errorf("component type is required")}
		}
	}

	seenGoal := make(map[string]bool, len(w.Goals))
	for _, g := range w.Goals {
		if g.ID == "" || g.MetricID == "" {
			return &kernelerr.ConfigError{Collection: "goals", ID: g.ID, Err: fmt.Errorf("goal requires id and metric_id")}
		}
		if seenGoal[g.ID] {
			return &kernelerr.ConfigError{Collection: "goals", ID: g.ID, Err: fmt.Errorf("duplicate goal id")}
		}
		seenGoal[g.ID] = true
	}

	for _, p := range w.Policies {
		switch p.Type {
		case "dust_throttle", "science_growth":
		default:
			return &kernelerr.ConfigError{Collection: "policies", ID: p.ID, Err: fmt.Errorf("unknown policy type %q", p.Type)}
		}
	}

	return nil
}
