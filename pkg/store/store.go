// Package store defines Proxima's document store abstraction: named
// collections of JSON-ish documents keyed by a stable string id. The
// Builder (pkg/config) reads environments, component_templates,
// world_systems, policies, goals and experiments through this interface;
// the kernel reads and drains commands through it too. See postgres.go
// for the production backend (Postgres JSONB) and memory.go for the
// in-process backend used by tests and --read-only fixture runs.
package store

import "context"

// Store is a minimal document store: get/list/put/delete over named
// collections, each document identified by a string id.
type Store interface {
	// Get returns the document with id in collection, or ErrNotFound.
	Get(ctx context.Context, collection, id string) (map[string]any, error)

	// List returns every document in collection, in no particular order.
	List(ctx context.Context, collection string) ([]map[string]any, error)

	// Put upserts a document by id.
	Put(ctx context.Context, collection, id string, doc map[string]any) error

	// Delete removes a document by id. Deleting an absent id is a no-op.
	Delete(ctx context.Context, collection, id string) error

	// Close releases any underlying connection or handle.
	Close() error
}

// ErrNotFound is returned by Get when the document does not exist.
var ErrNotFound = notFoundError{}

type notFoundError struct{}

func (notFoundError) Error() string { return "document not found" }

// Well-known collection names, per the configuration store's external
// interface.
const (
	CollectionEnvironments       = "environments"
	CollectionComponentTemplates = "component_templates"
	CollectionWorldSystems       = "world_systems"
	CollectionPolicies           = "policies"
	CollectionGoals              = "goals"
	CollectionEvents             = "events"
	CollectionExperiments        = "experiments"
	CollectionCommands           = "commands"
	CollectionSnapshots          = "snapshots"
	CollectionLogs               = "logs"
)
