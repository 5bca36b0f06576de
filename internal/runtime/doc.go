// Package runtime hosts the evaluation engine behind the public API: the
// schema-derived dependency graph, the condition evaluator, conditional
// logic, and the validation pass with its remote check plumbing.
//
// An Engine is built once per schema and shared; evaluation never mutates
// the schema or the caller's snapshot.
package runtime
