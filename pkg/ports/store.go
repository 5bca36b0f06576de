package ports

import (
	"context"

	"github.com/aretw0/lattice/pkg/domain"
)

// SnapshotStore persists draft form data per session, enabling auto-save
// and "resume where you left off" flows. The engine itself never touches
// a store; only the session controller does.
type SnapshotStore interface {
	// Save persists the snapshot for a given session ID.
	Save(ctx context.Context, sessionID string, data domain.Snapshot) error

	// Load retrieves the snapshot for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (domain.Snapshot, error)

	// Delete removes the snapshot for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of sessions with a stored snapshot.
	List(ctx context.Context) ([]string, error)
}
