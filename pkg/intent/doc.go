// Package intent turns a session state and user utterance into a
// structured proposal by consulting an LLM provider.
//
// Invariants:
// - Proposals are untrusted input for the guard layer; nothing here is
//   authoritative.
// - Malformed model output never escapes this package as an error: the
//   parse falls back to the first balanced JSON object in the text, and
//   finally to a safe default proposal.
// - Provider failures are reported as ErrUnavailable so callers can
//   retry the whole turn.
//
// Usage:
//
//	resolver := intent.NewResolver(provider, intent.ResolverConfig{Model: "gpt-4o-mini"}, logger)
//	proposal, _ := resolver.Resolve(ctx, st, "show me white t-shirts")
//	_ = proposal
package intent
