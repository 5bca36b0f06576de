package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/schema"
)

// ErrNotSubmittable is returned when the form cannot reach a valid state,
// for example because remote checks stay pending with no checker wired.
var ErrNotSubmittable = errors.New("form cannot be submitted")

// Runner drives the interactive fill-in loop: prompt, validate, re-prompt.
type Runner struct {
	engine *lattice.Engine

	// Handler is the strategy for IO. If nil, standard text IO is used.
	Handler IOHandler

	// Logger is used for internal debug logging.
	// If nil, a no-op logger is used.
	Logger *slog.Logger

	// Store is the persistence adapter for drafts. If nil, answers are
	// ephemeral.
	Store ports.SnapshotStore

	// SessionID identifies the draft when a Store is configured.
	SessionID string

	initial domain.Snapshot
}

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithHandler configures a custom IOHandler.
func WithHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithStore configures the SnapshotStore for draft persistence.
func WithStore(store ports.SnapshotStore) Option {
	return func(r *Runner) {
		r.Store = store
	}
}

// WithSessionID sets the draft ID for persistence.
// This is required if WithStore is used.
func WithSessionID(id string) Option {
	return func(r *Runner) {
		r.SessionID = id
	}
}

// WithInitialData seeds answers before the loop starts, on top of schema
// defaults.
func WithInitialData(data domain.Snapshot) Option {
	return func(r *Runner) {
		r.initial = data
	}
}

// NewRunner creates a Runner for the given engine.
func NewRunner(engine *lattice.Engine, opts ...Option) *Runner {
	r := &Runner{engine: engine}
	for _, opt := range opts {
		opt(r)
	}
	if r.Handler == nil {
		r.Handler = NewTextHandler(nil, nil)
	}
	if r.Logger == nil {
		r.Logger = logging.NewNop()
	}
	return r
}

// Run executes the fill-in loop until the form submits cleanly. It returns
// the final snapshot. Input errors (including EOF on scripted handlers)
// abort the loop and surface as errors.
func (r *Runner) Run(ctx context.Context) (domain.Snapshot, error) {
	data := r.engine.InitialSnapshot()
	if r.Store != nil && r.SessionID != "" {
		if draft, err := r.Store.Load(ctx, r.SessionID); err == nil {
			for id, v := range draft {
				data[id] = v
			}
			r.Logger.Debug("resumed draft", "session", r.SessionID)
		}
	}
	for id, v := range r.initial {
		data[id] = v
	}

	answered := map[string]bool{}
	pendingErrors := map[string][]string{}

	for {
		if err := ctx.Err(); err != nil {
			return data, err
		}

		state := r.engine.ConditionalState(data)
		r.applyOverrides(state, data)

		field, ok := r.nextField(state, data, answered)
		if !ok {
			done, err := r.trySubmit(ctx, data, answered, pendingErrors)
			if err != nil || done {
				return data, err
			}
			continue
		}

		if err := r.askField(ctx, field, data, answered, pendingErrors); err != nil {
			return data, err
		}

		if err := r.persist(ctx, data); err != nil {
			return data, err
		}
	}
}

// nextField picks the first rendered, enabled field that has not been
// answered yet, in evaluation order.
func (r *Runner) nextField(state domain.ConditionalState, data domain.Snapshot, answered map[string]bool) (schema.Field, bool) {
	for _, f := range r.engine.Schema().Fields() {
		cond := state.Fields[f.ID]
		if !cond.Rendered() || !cond.Enabled {
			continue
		}
		if cond.HasValueOverride || answered[f.ID] {
			continue
		}
		return f, true
	}
	return schema.Field{}, false
}

// askField prompts until the field validates or input fails.
func (r *Runner) askField(ctx context.Context, field schema.Field, data domain.Snapshot, answered map[string]bool, pendingErrors map[string][]string) error {
	for {
		prompt := Prompt{Field: field, Current: data[field.ID], Errors: pendingErrors[field.ID]}
		if err := r.Handler.Ask(ctx, prompt); err != nil {
			return fmt.Errorf("prompt error: %w", err)
		}

		raw, err := r.Handler.Input(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("input ended before form was complete: %w", err)
			}
			return fmt.Errorf("input error: %w", err)
		}

		raw, err = SanitizeFieldInput(field, raw)
		if err != nil {
			pendingErrors[field.ID] = []string{err.Error()}
			continue
		}

		value, err := coerceValue(field, raw)
		if err != nil {
			pendingErrors[field.ID] = []string{err.Error()}
			continue
		}

		// Empty input keeps the current value (default or resumed draft).
		if value == nil && data[field.ID] != nil {
			value = data[field.ID]
		}

		candidate := data.Clone()
		if value == nil {
			delete(candidate, field.ID)
		} else {
			candidate[field.ID] = value
		}

		results, err := r.engine.ValidateField(ctx, field.ID, candidate, schema.TriggerBlur)
		if err != nil {
			return err
		}
		if msgs := results.ErrorsFor(field.ID); len(msgs) > 0 {
			pendingErrors[field.ID] = msgs
			continue
		}

		if value == nil {
			delete(data, field.ID)
		} else {
			data[field.ID] = value
		}
		delete(pendingErrors, field.ID)
		answered[field.ID] = true
		return nil
	}
}

// trySubmit runs the submit-level pass. Fields that fail are queued for
// re-asking; true means the form went through.
func (r *Runner) trySubmit(ctx context.Context, data domain.Snapshot, answered map[string]bool, pendingErrors map[string][]string) (bool, error) {
	results := r.engine.ValidateForSubmit(ctx, data)
	if results.IsValid {
		if err := r.persist(ctx, data); err != nil {
			return false, err
		}
		return true, r.Handler.SystemOutput(ctx, "Form complete.")
	}

	if len(results.FieldErrors) == 0 {
		// Only pending remote checks stand in the way; the loop cannot
		// make progress by re-asking.
		return false, fmt.Errorf("%w: remote checks pending for %s",
			ErrNotSubmittable, strings.Join(results.Pending, ", "))
	}

	state := r.engine.ConditionalState(data)
	askable := 0
	for id, msgs := range results.FieldErrors {
		cond := state.Fields[id]
		if !cond.Rendered() || !cond.Enabled || cond.HasValueOverride {
			// Nothing the user can type will fix this one.
			continue
		}
		answered[id] = false
		pendingErrors[id] = msgs
		askable++
	}
	if askable == 0 {
		return false, fmt.Errorf("%w: errors on fields the user cannot edit: %s",
			ErrNotSubmittable, strings.Join(results.ErrorFields(), ", "))
	}
	return false, r.Handler.SystemOutput(ctx, "Some answers need fixing.")
}

func (r *Runner) applyOverrides(state domain.ConditionalState, data domain.Snapshot) {
	for id, cond := range state.Fields {
		if cond.HasValueOverride && cond.Rendered() {
			data[id] = cond.ValueOverride
		}
	}
}

func (r *Runner) persist(ctx context.Context, data domain.Snapshot) error {
	if r.Store == nil || r.SessionID == "" {
		return nil
	}
	if err := r.Store.Save(ctx, r.SessionID, data); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// coerceValue turns a raw answer into the snapshot value the field type
// expects. Empty input means "no answer".
func coerceValue(field schema.Field, raw string) (any, error) {
	if raw == "" {
		return nil, nil
	}

	switch field.Type {
	case schema.FieldNumber, schema.FieldSlider, schema.FieldRating:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", raw)
		}
		return n, nil

	case schema.FieldCheckbox:
		switch strings.ToLower(raw) {
		case "y", "yes", "true", "1":
			return true, nil
		case "n", "no", "false", "0":
			return false, nil
		}
		return nil, fmt.Errorf("%q is not a yes/no answer", raw)

	case schema.FieldMultiSelect, schema.FieldCheckboxGroup, schema.FieldArray:
		parts := strings.Split(raw, ",")
		out := make([]any, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out, nil

	case schema.FieldJSON:
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("invalid JSON: %v", err)
		}
		return v, nil

	default:
		return raw, nil
	}
}
