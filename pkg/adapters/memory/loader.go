package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/schema"
)

// Loader implements ports.SchemaLoader over an in-memory map, mainly for
// tests and embedded schemas.
type Loader struct {
	mu      sync.RWMutex
	schemas map[string]*schema.Schema
}

// NewLoader creates a loader pre-populated with the given schemas, keyed
// by their IDs.
func NewLoader(schemas ...*schema.Schema) *Loader {
	l := &Loader{schemas: make(map[string]*schema.Schema, len(schemas))}
	for _, s := range schemas {
		l.schemas[s.ID] = s
	}
	return l
}

// Put registers or replaces a schema.
func (l *Loader) Put(s *schema.Schema) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.schemas[s.ID] = s
}

// Load returns the schema for the given ID.
func (l *Loader) Load(ctx context.Context, id string) (*schema.Schema, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.schemas[id]
	if !ok {
		return nil, domain.ErrSchemaNotFound
	}
	return s, nil
}

// List returns the known schema IDs in sorted order.
func (l *Loader) List(ctx context.Context) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.schemas))
	for id := range l.schemas {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
