// Package middleware provides composable wrappers around a SnapshotStore:
// encryption of drafts at rest and PII masking before persistence.
package middleware

import "github.com/aretw0/lattice/pkg/ports"

// Middleware allows wrapping a SnapshotStore to add behavior.
type Middleware func(ports.SnapshotStore) ports.SnapshotStore

// Chain applies middlewares to a store, first in the list outermost.
func Chain(store ports.SnapshotStore, mws ...Middleware) ports.SnapshotStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
