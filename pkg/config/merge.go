package config

import "dario.cat/mergo"

// mergeDefaults overlays a component instance's sector-level overrides
// onto its template's defaults: override wins on any key present in both,
// keys only in defaults are kept. Mirrors the teacher's builtin-then-user
// merge order but operates on opaque parameter maps instead of typed
// structs, since component Defaults shapes vary per agent Type.
func mergeDefaults(templateDefaults, overrides map[string]any) (map[string]any, error) {
	merged := make(map[string]any, len(templateDefaults))
	for k, v := range templateDefaults {
		merged[k] = v
	}
	if len(overrides) == 0 {
		return merged, nil
	}
	if err := mergo.Merge(&merged, overrides, mergo.WithOverride); err != nil {
		return nil, err
	}
	return merged, nil
}
