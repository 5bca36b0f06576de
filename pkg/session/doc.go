// Package session provides the stateful controller over a shared engine:
// per-instance form data, debounced change validation, immediate blur
// validation, submit gating, auto-save, and token-ordered result commits
// so out-of-order evaluations never regress the visible state.
package session
