// Package lattice is a schema-driven form validation and conditional logic
// engine. A form is described once as a schema: sections, typed fields,
// validation rules, and conditions that show, hide, enable or rewrite
// fields as the data changes. The engine derives a dependency graph from
// the schema, so a single field change re-evaluates exactly the fields it
// can affect.
//
// Validation and conditional logic are pure over an immutable data
// snapshot: the engine reports verdicts and overrides, it never writes
// back into the caller's data. Remote rules (uniqueness checks and the
// like) settle through a pluggable checker and degrade to a pending state
// when the backend is unreachable.
//
// The pkg/session package adds the stateful layer on top: debounced
// change handling, submit gating, and race-safe ordering of concurrent
// evaluations.
package lattice
