package ports

import (
	"context"

	"github.com/aretw0/lattice/pkg/schema"
)

// SchemaLoader retrieves schema documents by ID. This decouples the engine
// from where schemas live (files, embedded assets, a registry service).
type SchemaLoader interface {
	// Load returns the schema for the given ID.
	// Returns domain.ErrSchemaNotFound if it is not known.
	Load(ctx context.Context, id string) (*schema.Schema, error)

	// List returns the IDs of all schemas available to this loader.
	List(ctx context.Context) ([]string, error)
}

// Watchable is implemented by loaders that can notify about backend
// changes, typically for hot reload in development.
type Watchable interface {
	// Watch returns a channel receiving the ID of each schema that
	// changed. The channel closes when ctx is canceled.
	Watch(ctx context.Context) (<-chan string, error)
}
