package domain

import (
	"context"
	"time"
)

// EvaluationScope distinguishes full-form passes from scoped ones.
type EvaluationScope string

const (
	ScopeFull  EvaluationScope = "full"
	ScopeField EvaluationScope = "field"
)

// EvaluationEvent describes a completed validation/conditional pass.
type EvaluationEvent struct {
	SchemaID string          `json:"schema_id"`
	Scope    EvaluationScope `json:"scope"`
	FieldID  string          `json:"field_id,omitempty"` // for scoped passes
	Fields   int             `json:"fields"`             // fields evaluated
	Valid    bool            `json:"valid"`
	Duration time.Duration   `json:"duration"`
}

// RemoteCheckEvent describes one remote rule round trip.
type RemoteCheckEvent struct {
	SchemaID string        `json:"schema_id"`
	Check    string        `json:"check"`
	FieldID  string        `json:"field_id"`
	Outcome  OutcomeStatus `json:"outcome"`
	Duration time.Duration `json:"duration"`
}

// LifecycleHooks defines callbacks for engine observability. All hooks are
// optional and must be fast; they run on the evaluation path.
type LifecycleHooks struct {
	OnEvaluation  func(context.Context, *EvaluationEvent)
	OnRemoteCheck func(context.Context, *RemoteCheckEvent)
}
