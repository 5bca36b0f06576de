// Package registry dispatches remote rule checks to locally registered
// functions. It lets an application settle checks like uniqueness against
// its own database without standing up a separate checker service.
package registry

import (
	"context"
	"sync"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
)

// CheckFunction settles a single named check.
type CheckFunction func(ctx context.Context, req ports.RemoteCheckRequest) (domain.RuleOutcome, error)

// Registry maps check names to their implementations. It satisfies
// ports.RemoteRuleChecker so it plugs straight into an engine.
type Registry struct {
	mu     sync.RWMutex
	checks map[string]CheckFunction
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		checks: make(map[string]CheckFunction),
	}
}

// Register adds a check to the registry.
// If a check with the same name exists, it is overwritten.
func (r *Registry) Register(name string, fn CheckFunction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks[name] = fn
}

// Check looks up the named check and executes it. Unregistered checks
// settle as unknown so the engine keeps the field pending instead of
// passing it silently.
func (r *Registry) Check(ctx context.Context, req ports.RemoteCheckRequest) (domain.RuleOutcome, error) {
	r.mu.RLock()
	fn, ok := r.checks[req.Check]
	r.mu.RUnlock()

	if !ok {
		return domain.RuleOutcome{
			Status:  domain.OutcomeUnknown,
			Message: "no handler registered for check " + req.Check,
		}, nil
	}

	return fn(ctx, req)
}
