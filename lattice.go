package lattice

import (
	"context"
	"log/slog"

	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/internal/runtime"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/schema"
)

// Engine is the high-level entry point for the Lattice library. It wraps
// the internal runtime and exposes a simplified API for consumers: build
// one Engine per schema and share it across sessions.
type Engine struct {
	runtime *runtime.Engine
	schema  *schema.Schema

	logger      *slog.Logger
	hooks       domain.LifecycleHooks
	checker     ports.RemoteRuleChecker
	runtimeOpts []runtime.Option
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithRemoteChecker wires the backend that settles remote rules. Without
// one, remote rules stay pending and block submission under the default
// policy.
func WithRemoteChecker(c ports.RemoteRuleChecker) Option {
	return func(e *Engine) {
		e.checker = c
	}
}

// WithPendingAllowed lets a form submit while remote checks are still
// unsettled, instead of treating pending as not-yet-valid.
func WithPendingAllowed() Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithRemotePolicy(runtime.RemoteAllows))
	}
}

// New builds an Engine for a schema. The schema is validated and compiled
// up front; a structurally broken schema never produces an engine.
func New(s *schema.Schema, opts ...Option) (*Engine, error) {
	eng := &Engine{schema: s}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if s != nil && s.ID != "" {
		eng.logger = eng.logger.With("schema", s.ID)
	}

	runtimeOpts := []runtime.Option{
		runtime.WithLogger(eng.logger),
		runtime.WithHooks(eng.hooks),
	}
	if eng.checker != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithChecker(eng.checker))
	}
	runtimeOpts = append(runtimeOpts, eng.runtimeOpts...)

	rt, err := runtime.NewEngine(s, runtimeOpts...)
	if err != nil {
		return nil, err
	}
	eng.runtime = rt
	return eng, nil
}

// NewFromJSON parses a JSON schema document and builds an Engine for it.
func NewFromJSON(data []byte, opts ...Option) (*Engine, error) {
	s, err := schema.ParseJSON(data)
	if err != nil {
		return nil, err
	}
	return New(s, opts...)
}

// NewFromYAML parses a YAML schema document and builds an Engine for it.
func NewFromYAML(data []byte, opts ...Option) (*Engine, error) {
	s, err := schema.ParseYAML(data)
	if err != nil {
		return nil, err
	}
	return New(s, opts...)
}

// Schema returns the schema this engine serves.
func (e *Engine) Schema() *schema.Schema {
	return e.schema
}

// InitialSnapshot builds the starting data for a new form instance: field
// defaults first, then schema-level defaults on top.
func (e *Engine) InitialSnapshot() domain.Snapshot {
	snap := domain.Snapshot{}
	for _, f := range e.schema.Fields() {
		if f.Default != nil {
			snap[f.ID] = f.Default
		}
	}
	for id, v := range e.schema.Defaults {
		snap[id] = v
	}
	return snap
}

// ValidateAll runs every applicable rule against the rendered fields of the
// whole form.
func (e *Engine) ValidateAll(ctx context.Context, data domain.Snapshot, trigger schema.Trigger) domain.ValidationResults {
	return e.runtime.ValidateAll(ctx, data, trigger)
}

// ValidateField validates a single field plus every field that depends on
// it, directly or transitively.
func (e *Engine) ValidateField(ctx context.Context, fieldID string, data domain.Snapshot, trigger schema.Trigger) (domain.ValidationResults, error) {
	return e.runtime.ValidateField(ctx, fieldID, data, trigger)
}

// ValidateForSubmit runs a full pass with submit-level rules included. A
// true verdict means the form may be submitted.
func (e *Engine) ValidateForSubmit(ctx context.Context, data domain.Snapshot) domain.ValidationResults {
	return e.runtime.ValidateAll(ctx, data, schema.TriggerSubmit)
}

// ConditionalState computes visibility, enablement and overrides for every
// section and field.
func (e *Engine) ConditionalState(data domain.Snapshot) domain.ConditionalState {
	return e.runtime.ConditionalState(data)
}

// Evaluate runs conditional logic and validation in a single pass.
func (e *Engine) Evaluate(ctx context.Context, data domain.Snapshot, trigger schema.Trigger) domain.EvalResult {
	return e.runtime.Evaluate(ctx, data, trigger)
}

// EvaluateField is Evaluate scoped to a changed field and its dependents.
func (e *Engine) EvaluateField(ctx context.Context, fieldID string, data domain.Snapshot, trigger schema.Trigger) (domain.EvalResult, error) {
	return e.runtime.EvaluateField(ctx, fieldID, data, trigger)
}

// Dependents returns the fields that must be re-evaluated when the given
// field changes, in evaluation order.
func (e *Engine) Dependents(fieldID string) []string {
	return e.runtime.Dependents(fieldID)
}

// Dependencies returns the fields the given field reads, sorted.
func (e *Engine) Dependencies(fieldID string) []string {
	return e.runtime.Graph().DependsOn(fieldID)
}
