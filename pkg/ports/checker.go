package ports

import (
	"context"

	"github.com/aretw0/lattice/pkg/domain"
)

// RemoteCheckRequest carries everything a backend needs to evaluate a
// remote rule: the check identifier, the field under validation, its
// value, and the full snapshot for cross-field context.
type RemoteCheckRequest struct {
	Check   string          `json:"check"`
	FieldID string          `json:"field_id"`
	Value   any             `json:"value"`
	Data    domain.Snapshot `json:"data,omitempty"`
}

// RemoteRuleChecker evaluates remote validation rules (for example
// uniqueness checks requiring a backend round trip).
//
// Implementations must honor context cancellation: destroying a form
// instance cancels in-flight checks. A transport failure should be
// reported as an error or an unknown outcome, never as a silent pass.
type RemoteRuleChecker interface {
	Check(ctx context.Context, req RemoteCheckRequest) (domain.RuleOutcome, error)
}

// RemoteRuleCheckerFunc adapts a function into a RemoteRuleChecker.
type RemoteRuleCheckerFunc func(ctx context.Context, req RemoteCheckRequest) (domain.RuleOutcome, error)

// Check delegates to the underlying function.
func (fn RemoteRuleCheckerFunc) Check(ctx context.Context, req RemoteCheckRequest) (domain.RuleOutcome, error) {
	return fn(ctx, req)
}
