package runtime

import (
	"context"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/expr-lang/expr"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/schema"
)

// ValidateAll runs every rule whose trigger fires for the invocation against
// all rendered fields. Results are rebuilt from scratch on every call.
func (e *Engine) ValidateAll(ctx context.Context, data domain.Snapshot, trigger schema.Trigger) domain.ValidationResults {
	_, results := e.evaluate(ctx, data, trigger, nil)
	return results
}

// ValidateField validates one field plus its transitive dependents, leaving
// the rest of the form untouched. The verdict for the evaluated subset is
// identical to what a full pass would produce for those fields.
func (e *Engine) ValidateField(ctx context.Context, fieldID string, data domain.Snapshot, trigger schema.Trigger) (domain.ValidationResults, error) {
	scope, err := e.scopeFor(fieldID)
	if err != nil {
		return domain.NewValidationResults(), err
	}
	_, results := e.evaluate(ctx, data, trigger, scope)
	return results, nil
}

// Evaluate runs conditional logic and validation in one pass over the whole
// form, sharing a single conditional read so overrides and visibility agree.
func (e *Engine) Evaluate(ctx context.Context, data domain.Snapshot, trigger schema.Trigger) domain.EvalResult {
	cond, results := e.evaluate(ctx, data, trigger, nil)
	return domain.EvalResult{Conditional: cond, Validation: results}
}

// EvaluateField is Evaluate scoped to a field and its dependents. The
// conditional state is still computed for the whole form, since visibility
// anywhere can depend on the changed field.
func (e *Engine) EvaluateField(ctx context.Context, fieldID string, data domain.Snapshot, trigger schema.Trigger) (domain.EvalResult, error) {
	scope, err := e.scopeFor(fieldID)
	if err != nil {
		return domain.EvalResult{}, err
	}
	cond, results := e.evaluate(ctx, data, trigger, scope)
	return domain.EvalResult{Conditional: cond, Validation: results}, nil
}

func (e *Engine) scopeFor(fieldID string) (map[string]bool, error) {
	if _, ok := e.index[fieldID]; !ok {
		return nil, &schema.SchemaError{
			Kind:    schema.ErrUnknownFieldReference,
			FieldID: fieldID,
			Detail:  "not part of schema " + e.schema.ID,
		}
	}
	scope := map[string]bool{fieldID: true}
	for _, id := range e.graph.Dependents(fieldID) {
		scope[id] = true
	}
	return scope, nil
}

// evaluate is the single evaluation path behind all public entry points.
// A nil scope means every field.
//
// Value overrides from logic rules are applied to a working copy of the
// snapshot before rules run, so a set_value effect and the rules that read
// the field agree within the same pass. The caller's snapshot is never
// mutated.
func (e *Engine) evaluate(ctx context.Context, data domain.Snapshot, trigger schema.Trigger, scope map[string]bool) (domain.ConditionalState, domain.ValidationResults) {
	start := time.Now()
	cond := e.ConditionalState(data)

	eff := data
	copied := false
	for id, res := range cond.Fields {
		if !res.HasValueOverride {
			continue
		}
		if !copied {
			eff = data.Clone()
			copied = true
		}
		eff[id] = res.ValueOverride
	}

	results := domain.NewValidationResults()
	pending := map[string]bool{}
	evaluated := 0

	for _, cf := range e.fields {
		id := cf.field.ID
		if scope != nil && !scope[id] {
			continue
		}
		res := cond.Fields[id]
		// Hidden fields are excluded entirely: no rules run, no errors are
		// reported, and their values do not block submission.
		if !res.Rendered() {
			continue
		}
		evaluated++

		if res.ErrorOverride != "" {
			results.FieldErrors[id] = append(results.FieldErrors[id], res.ErrorOverride)
		}

		value := eff.Value(id)
		if err := cf.field.CheckValue(value); err != nil {
			results.FieldErrors[id] = append(results.FieldErrors[id], err.Error())
			continue
		}

		e.runRules(ctx, cf, value, eff, trigger, &results, pending)
	}

	if len(pending) > 0 {
		for _, id := range e.graph.order {
			if pending[id] {
				results.Pending = append(results.Pending, id)
			}
		}
	}
	results.IsValid = len(results.FieldErrors) == 0 &&
		(e.policy == RemoteAllows || len(results.Pending) == 0)

	if e.hooks.OnEvaluation != nil {
		scopeKind := domain.ScopeFull
		if scope != nil {
			scopeKind = domain.ScopeField
		}
		e.hooks.OnEvaluation(ctx, &domain.EvaluationEvent{
			SchemaID: e.schema.ID,
			Scope:    scopeKind,
			Fields:   evaluated,
			Valid:    results.IsValid,
			Duration: time.Since(start),
		})
	}
	return cond, results
}

// runRules applies a field's effective rule list in declaration order. A
// failing required rule short-circuits the rest; every other failure
// accumulates. Rules other than required skip empty values, which keeps
// emptiness a single concern.
func (e *Engine) runRules(ctx context.Context, cf compiledField, value any, eff domain.Snapshot, trigger schema.Trigger, results *domain.ValidationResults, pending map[string]bool) {
	id := cf.field.ID
	fail := func(msg string) {
		results.FieldErrors[id] = append(results.FieldErrors[id], msg)
	}

	required := cf.field.Required
	for _, cr := range cf.rules {
		if cr.rule.Kind() == schema.RuleRequired && cr.rule.When().FiresOn(trigger) {
			required = true
			if schema.IsEmpty(value) && cr.rule.ErrorMessage() != "" {
				fail(cr.rule.ErrorMessage())
				return
			}
		}
	}
	if required && schema.IsEmpty(value) {
		fail("this field is required")
		return
	}
	if schema.IsEmpty(value) {
		return
	}

	for _, cr := range cf.rules {
		if !cr.rule.When().FiresOn(trigger) {
			continue
		}
		switch r := cr.rule.(type) {
		case schema.RequiredRule:
			// Handled above.
		case schema.PatternRule:
			if !cr.re.MatchString(schema.AsString(value)) {
				fail(messageOr(r.Message, "invalid format"))
			}
		case schema.RangeRule:
			n, ok := schema.AsNumber(value)
			if !ok {
				fail(messageOr(r.Message, "must be a number"))
				continue
			}
			if (r.Min != nil && n < *r.Min) || (r.Max != nil && n > *r.Max) {
				fail(messageOr(r.Message, "out of range"))
			}
		case schema.LengthRule:
			n := valueLength(value)
			if (r.Min != nil && n < *r.Min) || (r.Max != nil && n > *r.Max) {
				fail(messageOr(r.Message, "invalid length"))
			}
		case schema.ExprRule:
			ok, err := e.runExpr(cr, value, eff)
			if err != nil {
				// A broken expression must never pass silently.
				fail(messageOr(r.Message, "validation expression failed"))
				e.logger.Warn("expression rule failed", "field", id, "error", err)
				continue
			}
			if !ok {
				fail(messageOr(r.Message, "invalid value"))
			}
		case schema.CrossFieldRule:
			other := eff.Value(r.Other)
			if schema.IsEmpty(other) {
				continue
			}
			ok, err := compare(value, r.Operator, other, id)
			if err != nil {
				fail(messageOr(r.Message, "invalid comparison"))
				continue
			}
			if !ok {
				fail(messageOr(r.Message, "does not satisfy relation with "+r.Other))
			}
		case schema.RemoteRule:
			// Local failures make a round trip pointless.
			if len(results.FieldErrors[id]) > 0 {
				continue
			}
			e.runRemote(ctx, id, r, value, eff, results, pending)
		}
	}
}

// runExpr executes a compiled expression rule with the snapshot as the
// environment plus the field's own value bound to "value".
func (e *Engine) runExpr(cr compiledRule, value any, eff domain.Snapshot) (bool, error) {
	env := make(map[string]any, len(eff)+1)
	for k, v := range eff {
		env[k] = v
	}
	env[valueIdentifier] = value
	out, err := expr.Run(cr.prog, env)
	if err != nil {
		return false, err
	}
	ok, isBool := out.(bool)
	if !isBool {
		return false, &schema.ExpressionError{Reason: "expression did not yield a boolean"}
	}
	return ok, nil
}

// runRemote performs one remote check and records its verdict in this
// pass's results: error on invalid, pending on unknown or failure. A field
// with a remote rule is never reported as settled-valid without a valid
// outcome. Ordering between overlapping passes is the caller's concern
// (the session controller discards superseded passes wholesale by token).
func (e *Engine) runRemote(ctx context.Context, id string, r schema.RemoteRule, value any, eff domain.Snapshot, results *domain.ValidationResults, pending map[string]bool) {
	if e.checker == nil {
		pending[id] = true
		return
	}

	start := time.Now()
	outcome, err := e.checker.Check(ctx, ports.RemoteCheckRequest{
		Check:   r.Check,
		FieldID: id,
		Value:   value,
		Data:    eff,
	})
	if err != nil {
		outcome = domain.RuleOutcome{Status: domain.OutcomeUnknown}
		e.logger.Warn("remote check failed", "field", id, "check", r.Check, "error", err)
	}
	if e.hooks.OnRemoteCheck != nil {
		e.hooks.OnRemoteCheck(ctx, &domain.RemoteCheckEvent{
			SchemaID: e.schema.ID,
			Check:    r.Check,
			FieldID:  id,
			Outcome:  outcome.Status,
			Duration: time.Since(start),
		})
	}

	switch outcome.Status {
	case domain.OutcomeValid:
	case domain.OutcomeInvalid:
		msg := outcome.Message
		if msg == "" {
			msg = messageOr(r.Message, "rejected by remote check")
		}
		results.FieldErrors[id] = append(results.FieldErrors[id], msg)
	default:
		pending[id] = true
	}
}

func messageOr(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}

// valueLength counts runes for strings and elements for lists, so length
// rules behave the same for both shapes.
func valueLength(v any) int {
	if s, ok := v.(string); ok {
		return utf8.RuneCountInString(s)
	}
	if list, ok := schema.AsList(v); ok {
		return len(list)
	}
	return len(schema.AsString(v))
}

// SortedPending is a helper for tests and adapters that want pending fields
// in a stable order regardless of map iteration.
func SortedPending(results domain.ValidationResults) []string {
	out := append([]string(nil), results.Pending...)
	sort.Strings(out)
	return out
}
