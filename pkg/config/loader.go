package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/proxima-sim/proxima/pkg/kernelerr"
	"github.com/proxima-sim/proxima/pkg/model"
	"github.com/proxima-sim/proxima/pkg/store"
)

// Builder resolves an experiment's full configuration out of a document
// Store. Mirrors the teacher's Initialize(ctx, configDir) entry point,
// reading collections instead of YAML files on disk.
type Builder struct {
	Store store.Store
}

// NewBuilder returns a Builder backed by s.
func NewBuilder(s store.Store) *Builder {
	return &Builder{Store: s}
}

// Resolve loads experimentID and everything it references — world system,
// environment, sector component templates (merged with overrides), goals
// and policies — and validates the result before returning it.
func (b *Builder) Resolve(ctx context.Context, experimentID string) (*ResolvedWorld, error) {
	log := slog.With("experiment_id", experimentID)
	log.Info("resolving experiment configuration")

	exp, err := b.loadExperiment(ctx, experimentID)
	if err != nil {
		return nil, err
	}

	ws, err := b.loadWorldSystem(ctx, exp.WorldSystemID)
	if err != nil {
		return nil, err
	}

	env, err := b.loadEnvironment(ctx, ws.Environment)
	if err != nil {
		return nil, err
	}

	components, err := b.resolveComponents(ctx, ws.Sectors)
	if err != nil {
		return nil, err
	}

	goals, err := b.loadGoals(ctx, exp.GoalIDs)
	if err != nil {
		return nil, err
	}

	policies, err := b.loadPolicies(ctx, exp.PolicyIDs)
	if err != nil {
		return nil, err
	}

	world := &ResolvedWorld{
		Experiment:  exp,
		Environment: env,
		Sectors:     ws.Sectors,
		Components:  components,
		Goals:       goals,
		Policies:    policies,
	}

	if err := validate(world); err != nil {
		return nil, err
	}

	log.Info("configuration resolved",
		"sectors", len(world.Sectors),
		"components", len(world.Components),
		"goals", len(world.Goals),
		"policies", len(world.Policies))
	return world, nil
}

func (b *Builder) loadExperiment(ctx context.Context, id string) (ExperimentConfig, error) {
	var exp ExperimentConfig
	if err := b.getInto(ctx, store.CollectionExperiments, id, &exp); err != nil {
		return ExperimentConfig{}, err
	}
	return exp, nil
}

func (b *Builder) loadWorldSystem(ctx context.Context, id string) (WorldSystemConfig, error) {
	var ws WorldSystemConfig
	if err := b.getInto(ctx, store.CollectionWorldSystems, id, &ws); err != nil {
		return WorldSystemConfig{}, err
	}
	return ws, nil
}

func (b *Builder) loadEnvironment(ctx context.Context, id string) (EnvironmentConfig, error) {
	var env EnvironmentConfig
	if err := b.getInto(ctx, store.CollectionEnvironments, id, &env); err != nil {
		return EnvironmentConfig{}, err
	}
	return env, nil
}

func (b *Builder) resolveComponents(ctx context.Context, sectors []SectorComposition) ([]ResolvedComponent, error) {
	var resolved []ResolvedComponent
	for _, sc := range sectors {
		for _, ref := range sc.Components {
			var tmpl ComponentTemplate
			if err := b.getInto(ctx, store.CollectionComponentTemplates, ref.TemplateID, &tmpl); err != nil {
				return nil, err
			}
			merged, err := mergeDefaults(tmpl.Defaults, sc.Overrides[ref.TemplateID])
			if err != nil {
				return nil, &kernelerr.ConfigError{Collection: store.CollectionComponentTemplates, ID: ref.TemplateID, Err: err}
			}
			resolved = append(resolved, ResolvedComponent{
				TemplateID: ref.TemplateID,
				Type:       tmpl.Type,
				SectorID:   sc.SectorID,
				Count:      ref.Count,
				Defaults:   merged,
			})
		}
	}
	return resolved, nil
}

func (b *Builder) loadGoals(ctx context.Context, ids []string) ([]model.Goal, error) {
	goals := make([]model.Goal, 0, len(ids))
	for _, id := range ids {
		var g model.Goal
		if err := b.getInto(ctx, store.CollectionGoals, id, &g); err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, nil
}

func (b *Builder) loadPolicies(ctx context.Context, ids []string) ([]PolicyConfig, error) {
	policies := make([]PolicyConfig, 0, len(ids))
	for _, id := range ids {
		var p PolicyConfig
		if err := b.getInto(ctx, store.CollectionPolicies, id, &p); err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	return policies, nil
}

// getInto fetches a document and decodes it into dst via a JSON
// round-trip, since Store hands back opaque map[string]any documents.
func (b *Builder) getInto(ctx context.Context, collection, id string, dst any) error {
	doc, err := b.Store.Get(ctx, collection, id)
	if err != nil {
		return &kernelerr.ConfigError{Collection: collection, ID: id, Err: err}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return &kernelerr.ConfigError{Collection: collection, ID: id, Err: err}
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &kernelerr.ConfigError{Collection: collection, ID: id, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}
