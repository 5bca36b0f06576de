package domain

import (
	"sort"

	"github.com/aretw0/lattice/pkg/schema"
)

// ValidationResults aggregates per-field error messages for a validation
// pass. Results are rebuilt wholesale on every pass, never patched in
// place, so consumers can never observe a half-updated state.
type ValidationResults struct {
	// FieldErrors maps field IDs to their current error messages, in rule
	// declaration order. Fields without errors have no entry.
	FieldErrors map[string][]string `json:"field_errors"`

	// Pending lists fields whose remote rules have not settled to a
	// definitive outcome (checker unavailable or still unknown).
	Pending []string `json:"pending,omitempty"`

	// IsValid is true when no field has errors and, under the default
	// blocking policy, no remote outcome is pending.
	IsValid bool `json:"is_valid"`
}

// NewValidationResults returns an empty, valid result set.
func NewValidationResults() ValidationResults {
	return ValidationResults{FieldErrors: map[string][]string{}, IsValid: true}
}

// ErrorsFor returns the messages recorded for a field.
func (r ValidationResults) ErrorsFor(fieldID string) []string {
	return r.FieldErrors[fieldID]
}

// ErrorFields returns the sorted set of fields carrying at least one error.
func (r ValidationResults) ErrorFields() []string {
	out := make([]string, 0, len(r.FieldErrors))
	for id := range r.FieldErrors {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ConditionalResult is the per-field output of a conditional logic pass.
// Overrides are reported to the caller; the engine never applies them to
// the snapshot it was handed.
type ConditionalResult struct {
	// Visible is the raw result of the field's own visibility condition.
	Visible bool `json:"visible"`

	// SectionVisible is the result of the owning section's condition. The
	// caller combines the two; section visibility dominates rendering.
	SectionVisible bool `json:"section_visible"`

	// Enabled defaults to true unless a logic rule disables the field.
	Enabled bool `json:"enabled"`

	// ValueOverride carries a value a logic rule asserts for the field.
	// It is only meaningful when HasValueOverride is set, so an explicit
	// nil override stays distinguishable from no override.
	ValueOverride    any  `json:"value_override,omitempty"`
	HasValueOverride bool `json:"has_value_override,omitempty"`

	// OptionsOverride replaces the field's option list when non-nil.
	OptionsOverride []schema.Option `json:"options_override,omitempty"`

	// ErrorOverride carries an error message asserted by a logic rule.
	ErrorOverride string `json:"error_override,omitempty"`
}

// Rendered reports whether the field should actually appear: its own
// condition and its section's condition must both hold.
func (c ConditionalResult) Rendered() bool {
	return c.Visible && c.SectionVisible
}

// ConditionalState is the output of a full conditional logic pass.
type ConditionalState struct {
	// Fields holds one result per field in the schema.
	Fields map[string]ConditionalResult `json:"fields"`

	// Sections maps section IDs to the result of their own condition.
	Sections map[string]bool `json:"sections"`

	// Faults records fields whose condition failed to evaluate (malformed
	// or too-deep expressions). Those fields are reported hidden and
	// disabled rather than crashing the pass.
	Faults map[string]string `json:"faults,omitempty"`
}

// EvalResult bundles a combined conditional + validation pass. Token is
// the monotonic sequence number of the evaluation request that produced
// it; consumers discard results whose token is not the latest issued.
type EvalResult struct {
	Token       uint64            `json:"token"`
	Conditional ConditionalState  `json:"conditional"`
	Validation  ValidationResults `json:"validation"`
}

// OutcomeStatus is the settled state of a remote rule check.
type OutcomeStatus string

const (
	OutcomeValid   OutcomeStatus = "valid"
	OutcomeInvalid OutcomeStatus = "invalid"
	// OutcomeUnknown means the check could not be completed, for example
	// because the backend is unreachable. The default policy treats it as
	// not-yet-valid rather than silently passing.
	OutcomeUnknown OutcomeStatus = "unknown"
)

// RuleOutcome is the response of a remote rule checker.
type RuleOutcome struct {
	Status  OutcomeStatus `json:"status"`
	Message string        `json:"message,omitempty"`
}
