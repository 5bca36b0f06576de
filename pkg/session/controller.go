package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/schema"
)

// State is the lifecycle of a form instance.
type State string

const (
	StateIdle         State = "idle"
	StateValidating   State = "validating"
	StateValid        State = "valid"
	StateInvalid      State = "invalid"
	StateSubmitting   State = "submitting"
	StateSubmitted    State = "submitted"
	StateSubmitFailed State = "submit_failed"
)

// ErrNotValid is returned by Submit when the full validation pass fails.
var ErrNotValid = errors.New("session: form is not valid")

// ErrSubmitInFlight is returned when Submit is called while a previous
// submission has not settled.
var ErrSubmitInFlight = errors.New("session: submit already in flight")

// Submitter delivers a validated snapshot to its destination.
type Submitter func(ctx context.Context, data domain.Snapshot) error

const (
	defaultDebounce = 300 * time.Millisecond
	defaultAutoSave = 2 * time.Second
)

// Controller is the stateful layer over a shared Engine: it owns one form
// instance's data, debounces change-triggered validation, runs blur
// validation immediately, and gates submission on a full pass.
//
// Evaluations are token-ordered: every request takes a monotonically
// increasing token and a result only lands if no newer result has landed
// first, so a slow early evaluation can never clobber a fast later one.
type Controller struct {
	engine    *lattice.Engine
	id        string
	store     ports.SnapshotStore
	submitter Submitter
	logger    *slog.Logger

	validateDeb *debouncer
	saveDeb     *debouncer

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	data        domain.Snapshot
	state       State
	conditional domain.ConditionalState
	errors      map[string][]string
	pending     map[string]bool
	dirty       map[string]bool // edited since the last debounced run
	token       uint64          // last issued
	committed   uint64          // last landed
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithSessionID pins the session identifier instead of generating one.
func WithSessionID(id string) ControllerOption {
	return func(c *Controller) { c.id = id }
}

// WithStore enables draft persistence: changes auto-save after a quiet
// period and Resume can pick a draft back up.
func WithStore(store ports.SnapshotStore) ControllerOption {
	return func(c *Controller) { c.store = store }
}

// WithSubmitter sets the destination for validated submissions.
func WithSubmitter(fn Submitter) ControllerOption {
	return func(c *Controller) { c.submitter = fn }
}

// WithDebounce overrides the change-validation quiet period.
func WithDebounce(d time.Duration) ControllerOption {
	return func(c *Controller) { c.validateDeb = newDebouncer(d) }
}

// WithAutoSaveInterval overrides the auto-save quiet period.
func WithAutoSaveInterval(d time.Duration) ControllerOption {
	return func(c *Controller) { c.saveDeb = newDebouncer(d) }
}

// WithControllerLogger sets the controller logger.
func WithControllerLogger(l *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewController starts a form instance seeded with the schema's defaults.
func NewController(engine *lattice.Engine, opts ...ControllerOption) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		engine:  engine,
		id:      uuid.NewString(),
		logger:  logging.NewNop(),
		ctx:     ctx,
		cancel:  cancel,
		data:    engine.InitialSnapshot(),
		state:   StateIdle,
		errors:  map[string][]string{},
		pending: map[string]bool{},
		dirty:   map[string]bool{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.validateDeb == nil {
		c.validateDeb = newDebouncer(defaultDebounce)
	}
	if c.saveDeb == nil {
		c.saveDeb = newDebouncer(defaultAutoSave)
	}
	c.logger = c.logger.With("session", c.id)
	return c
}

// ID returns the session identifier.
func (c *Controller) ID() string { return c.id }

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Data returns a copy of the current snapshot.
func (c *Controller) Data() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data.Clone()
}

// Errors returns the field errors from the evaluations that have landed.
func (c *Controller) Errors() map[string][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string][]string, len(c.errors))
	for id, msgs := range c.errors {
		out[id] = append([]string(nil), msgs...)
	}
	return out
}

// Conditional returns the latest conditional state that landed.
func (c *Controller) Conditional() domain.ConditionalState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conditional
}

// OnChange records a field edit, schedules a debounced validation, and
// arms the auto-save timer. Rapid edits collapse into a single evaluation
// of the last state: scoped to the field and its dependents when the burst
// stayed on one field, a full pass when it touched several, so no edit in
// the burst escapes evaluation.
func (c *Controller) OnChange(fieldID string, value any) {
	c.mu.Lock()
	c.data[fieldID] = value
	c.dirty[fieldID] = true
	c.state = StateValidating
	token := c.nextTokenLocked()
	data := c.data.Clone()
	c.mu.Unlock()

	c.validateDeb.trigger(func() {
		c.runDirty(token, data)
	})
	if c.store != nil {
		c.saveDeb.trigger(c.autoSave)
	}
}

// OnBlur validates the field and its dependents immediately, with
// blur-level rules included.
func (c *Controller) OnBlur(fieldID string) {
	c.mu.Lock()
	token := c.nextTokenLocked()
	data := c.data.Clone()
	c.mu.Unlock()

	c.runScoped(token, fieldID, data, schema.TriggerBlur)
}

// Validate runs an immediate full pass at the given trigger level.
func (c *Controller) Validate(ctx context.Context, trigger schema.Trigger) domain.EvalResult {
	c.mu.Lock()
	token := c.nextTokenLocked()
	data := c.data.Clone()
	c.mu.Unlock()

	out := c.engine.Evaluate(ctx, data, trigger)
	out.Token = token
	c.commitFull(out)
	return out
}

// Submit runs the authoritative full pass and, if it succeeds, hands the
// snapshot to the submitter. Hidden fields have already been excluded by
// the engine; pending remote checks block under the default policy.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateSubmitting {
		c.mu.Unlock()
		return ErrSubmitInFlight
	}
	token := c.nextTokenLocked()
	data := c.data.Clone()
	c.mu.Unlock()

	out := c.engine.Evaluate(ctx, data, schema.TriggerSubmit)
	out.Token = token
	c.commitFull(out)
	if !out.Validation.IsValid {
		c.setState(StateInvalid)
		return ErrNotValid
	}

	c.setState(StateSubmitting)
	if c.submitter != nil {
		if err := c.submitter(ctx, data); err != nil {
			c.setState(StateSubmitFailed)
			c.logger.Warn("submit failed", "error", err)
			return err
		}
	}
	c.setState(StateSubmitted)

	if c.store != nil {
		if err := c.store.Save(ctx, c.id, data); err != nil {
			c.logger.Warn("post-submit save failed", "error", err)
		}
	}
	c.logger.Info("form submitted", "fields", len(data))
	return nil
}

// Save persists the current draft immediately.
func (c *Controller) Save(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	return c.store.Save(ctx, c.id, c.Data())
}

// Resume replaces the controller data with the stored draft for this
// session and re-evaluates it.
func (c *Controller) Resume(ctx context.Context) error {
	if c.store == nil {
		return domain.ErrSessionNotFound
	}
	data, err := c.store.Load(ctx, c.id)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.data = data
	c.mu.Unlock()

	c.Validate(ctx, schema.TriggerChange)
	return nil
}

// Close cancels pending work. In-flight remote checks observe the
// cancellation through the controller context.
func (c *Controller) Close() {
	c.validateDeb.stop()
	c.saveDeb.stop()
	c.cancel()
}

func (c *Controller) nextTokenLocked() uint64 {
	c.token++
	return c.token
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// runDirty consumes the set of fields edited since the last debounced run.
// A single dirty field gets the cheap scoped evaluation; a burst spanning
// fields gets a full pass, because a scoped pass on the last edit would
// miss errors introduced on the earlier ones.
func (c *Controller) runDirty(token uint64, data domain.Snapshot) {
	c.mu.Lock()
	fields := make([]string, 0, len(c.dirty))
	for id := range c.dirty {
		fields = append(fields, id)
	}
	c.dirty = map[string]bool{}
	c.mu.Unlock()

	switch len(fields) {
	case 0:
		return
	case 1:
		c.runScoped(token, fields[0], data, schema.TriggerChange)
	default:
		out := c.engine.Evaluate(c.ctx, data, schema.TriggerChange)
		out.Token = token
		c.commitFull(out)
	}
}

// runScoped evaluates a field and its dependents and lands the result if
// it is still the newest.
func (c *Controller) runScoped(token uint64, fieldID string, data domain.Snapshot, trigger schema.Trigger) {
	out, err := c.engine.EvaluateField(c.ctx, fieldID, data, trigger)
	if err != nil {
		c.logger.Warn("scoped evaluation failed", "field", fieldID, "error", err)
		return
	}
	out.Token = token
	covered := append(c.engine.Dependents(fieldID), fieldID)
	c.commitScoped(out, covered)
}

// commitScoped merges a scoped result: entries for the covered fields are
// replaced, everything else is kept. Stale tokens are dropped.
func (c *Controller) commitScoped(out domain.EvalResult, covered []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if out.Token < c.committed {
		c.logger.Debug("discarding stale evaluation", "token", out.Token, "latest", c.committed)
		return
	}
	c.committed = out.Token
	c.conditional = out.Conditional

	for _, id := range covered {
		delete(c.errors, id)
		delete(c.pending, id)
	}
	for id, msgs := range out.Validation.FieldErrors {
		c.errors[id] = msgs
	}
	for _, id := range out.Validation.Pending {
		c.pending[id] = true
	}
	c.refreshStateLocked()
}

// commitFull replaces the evaluation state wholesale.
func (c *Controller) commitFull(out domain.EvalResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if out.Token < c.committed {
		return
	}
	c.committed = out.Token
	c.conditional = out.Conditional

	c.errors = map[string][]string{}
	for id, msgs := range out.Validation.FieldErrors {
		c.errors[id] = msgs
	}
	c.pending = map[string]bool{}
	for _, id := range out.Validation.Pending {
		c.pending[id] = true
	}
	c.refreshStateLocked()
}

func (c *Controller) refreshStateLocked() {
	switch {
	case c.token != c.committed:
		c.state = StateValidating
	case len(c.errors) > 0:
		c.state = StateInvalid
	case len(c.pending) > 0:
		c.state = StateValidating
	default:
		c.state = StateValid
	}
}

func (c *Controller) autoSave() {
	c.mu.Lock()
	data := c.data.Clone()
	c.mu.Unlock()

	if err := c.store.Save(c.ctx, c.id, data); err != nil {
		c.logger.Warn("auto-save failed", "error", err)
		return
	}
	c.logger.Debug("draft saved", "fields", len(data))
}
