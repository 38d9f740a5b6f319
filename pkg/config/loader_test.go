package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/proxima-sim/proxima/pkg/store"
)

func seedBasicWorld(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, store.CollectionEnvironments, "env-base", map[string]any{
		"id": "env-base", "distance_km": 384400.0, "gravity_mps2": 1.62, "solar_input_kwh": 1.0,
	}))

	require.NoError(t, s.Put(ctx, store.CollectionComponentTemplates, "comp-isru", map[string]any{
		"id": "comp-isru", "type": "isru",
		"defaults": map[string]any{"power_kwh": 10.0, "throughput_tons": 1.0},
	}))

	require.NoError(t, s.Put(ctx, store.CollectionWorldSystems, "ws-1", map[string]any{
		"id": "ws-1", "environment": "env-base",
		"sectors": []any{
			map[string]any{
				"sector_id": "manufacturing",
				"components": []any{
					map[string]any{"template_id": "comp-isru", "count": 3},
				},
				"overrides": map[string]any{
					"comp-isru": map[string]any{"power_kwh": 12.0},
				},
			},
		},
	}))

	require.NoError(t, s.Put(ctx, store.CollectionGoals, "goal-dust", map[string]any{
		"id": "goal-dust", "metric_id": "dust_coverage", "direction": "minimize",
		"goal_type": "bounds", "lo": 0.0, "hi": 0.8, "weight": 1.0,
	}))

	require.NoError(t, s.Put(ctx, store.CollectionPolicies, "policy-dust", map[string]any{
		"id": "policy-dust", "type": "dust_throttle", "enabled": true,
		"params": map[string]any{},
	}))

	require.NoError(t, s.Put(ctx, store.CollectionExperiments, "exp-1", map[string]any{
		"id": "exp-1", "world_system_id": "ws-1", "seed": 42,
		"goal_ids":   []any{"goal-dust"},
		"policy_ids": []any{"policy-dust"},
	}))
}

func TestResolveMergesSectorOverridesOverTemplateDefaults(t *testing.T) {
	s := store.NewMemory()
	seedBasicWorld(t, s)

	world, err := NewBuilder(s).Resolve(context.Background(), "exp-1")
	require.NoError(t, err)
	require.Len(t, world.Components, 1)

	c := world.Components[0]
	require.Equal(t, "isru", c.Type)
	require.Equal(t, 3, c.Count)
	require.Equal(t, 12.0, c.Defaults["power_kwh"], "sector override must win over template default")
	require.Equal(t, 1.0, c.Defaults["throughput_tons"], "keys absent from override keep the template default")
}

func TestResolveFailsWhenReferencedDocumentIsMissing(t *testing.T) {
	s := store.NewMemory()
	seedBasicWorld(t, s)

	_, err := NewBuilder(s).Resolve(context.Background(), "exp-missing")
	require.Error(t, err)
}

func TestResolveRejectsUnknownPolicyType(t *testing.T) {
	s := store.NewMemory()
	seedBasicWorld(t, s)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, store.CollectionPolicies, "policy-bad", map[string]any{
		"id": "policy-bad", "type": "not_a_real_policy", "enabled": true,
	}))
	require.NoError(t, s.Put(ctx, store.CollectionExperiments, "exp-bad", map[string]any{
		"id": "exp-bad", "world_system_id": "ws-1", "seed": 1,
		"goal_ids":   []any{"goal-dust"},
		"policy_ids": []any{"policy-bad"},
	}))

	_, err := NewBuilder(s).Resolve(ctx, "exp-bad")
	require.Error(t, err)
}
