package store

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Fixture is one collection's worth of seed documents, as read from a YAML
// fixture file: a flat map of document id -> document body.
type Fixture struct {
	Collection string                    `yaml:"collection"`
	Documents  map[string]map[string]any `yaml:"documents"`
}

// LoadFixtures reads a YAML file containing a list of Fixtures and seeds
// them into store, used for --read-only runs and integration tests that
// want a populated in-memory Store without a Postgres dependency.
func LoadFixtures(ctx context.Context, s Store, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read fixture file %s: %w", path, err)
	}

	var fixtures []Fixture
	if err := yaml.Unmarshal(raw, &fixtures); err != nil {
		return fmt.Errorf("parse fixture file %s: %w", path, err)
	}

	for _, f := range fixtures {
		for id, doc := range f.Documents {
			if err := s.Put(ctx, f.Collection, id, doc); err != nil {
				return fmt.Errorf("seed %s/%s: %w", f.Collection, id, err)
			}
		}
	}
	return nil
}
