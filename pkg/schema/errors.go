package schema

import "fmt"

// SchemaErrorKind classifies structural schema failures. All of them are
// fatal at load time: a form cannot be instantiated from a broken schema.
type SchemaErrorKind string

const (
	ErrDuplicateFieldID      SchemaErrorKind = "duplicate_field_id"
	ErrUnknownFieldReference SchemaErrorKind = "unknown_field_reference"
	ErrUnknownFieldType      SchemaErrorKind = "unknown_field_type"
	ErrInvalidRule           SchemaErrorKind = "invalid_rule"
	ErrInvalidCondition      SchemaErrorKind = "invalid_condition"
)

// SchemaError reports a malformed schema.
type SchemaError struct {
	Kind    SchemaErrorKind
	FieldID string // field (or rule target) the failure is attached to, if any
	Detail  string
}

func (e *SchemaError) Error() string {
	if e.FieldID != "" {
		return fmt.Sprintf("schema: %s: field %q: %s", e.Kind, e.FieldID, e.Detail)
	}
	return fmt.Sprintf("schema: %s: %s", e.Kind, e.Detail)
}

// ExpressionError reports a malformed or too-deep condition tree. During
// evaluation the engine fails closed (the affected field is treated as
// hidden and disabled) instead of aborting the whole pass.
type ExpressionError struct {
	FieldID string // field whose condition failed, if known
	Reason  string
}

func (e *ExpressionError) Error() string {
	if e.FieldID != "" {
		return fmt.Sprintf("expression: field %q: %s", e.FieldID, e.Reason)
	}
	return "expression: " + e.Reason
}
