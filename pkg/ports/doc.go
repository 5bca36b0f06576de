/*
Package ports defines the driven ports (interfaces) for the Lattice engine.

These interfaces decouple the core validation and conditional logic from
external implementations, allowing the engine to work with various remote
validation backends, draft stores, and schema sources.

# Key Interfaces

  - RemoteRuleChecker: evaluates remote validation rules; a pure in-process
    implementation serves tests, a networked one serves production.
  - SnapshotStore: persists draft form data per session (auto-save).
  - SchemaLoader: resolves schema documents by ID, optionally watchable.
*/
package ports
