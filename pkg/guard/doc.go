// Package guard applies the authoritative, deterministic rules that
// validate or override the resolver's untrusted proposal.
//
// Invariants:
// - Guard decisions are final: the reducer and effect executor act on
//   the decision, never on the raw proposal.
// - The fraud-check verification decision is recomputed from the case
//   record on every turn; the resolver's self-reported claim is
//   discarded unconditionally.
// - Overrides are deliberate corrections, not errors; they are logged
//   and counted but never fail a turn.
//
// Usage:
//
//	g := guard.NewImprovGuard(intent.DefaultScenarios(), logger)
//	decision, _ := g.Check(ctx, st, utterance, proposal)
//	_ = decision
package guard
