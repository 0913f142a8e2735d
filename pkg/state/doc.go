// Package state models the client-carried session state for all agent variants.
//
// Invariants:
// - The server keeps no copy between calls; the entire state round-trips
//   through the client on every turn.
// - Turn history is append-only.
// - Phase transitions follow the variant's declared phase order and never
//   regress.
//
// Usage:
//
//	st := state.New(state.VariantImprov, "sess-1")
//	next, _ := state.Parse(raw)
//	_ = next
package state
