/*
Package domain contains the core models shared by the Lattice engine and its
adapters.

It defines the data snapshot the caller supplies on every edit, the result
shapes the engine produces, and the lifecycle events exposed for
observability. This package is kept pure and free of I/O or persistence,
following Hexagonal Architecture principles.

# Key Entities

  - Snapshot: the form's current field-id-to-value data at a point in time.
  - ValidationResults: per-field error messages plus the aggregate verdict.
  - ConditionalResult / ConditionalState: per-field visibility, enablement,
    and override state computed by the conditional logic engine.
  - EvalResult: a token-tagged combined pass, used for stale-result discard.
*/
package domain
