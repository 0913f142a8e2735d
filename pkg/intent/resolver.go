package intent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/averith/murmur/pkg/state"
)

// ErrUnavailable marks a provider failure. The turn fails cleanly and
// the caller may retry with the same state.
var ErrUnavailable = errors.New("intent resolver unavailable")

// ResolverConfig configures a Resolver.
type ResolverConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	Scenarios   []string
}

// Resolver consults the LLM provider and parses its output into a
// Proposal, absorbing malformed output along the way.
type Resolver struct {
	provider Provider
	config   ResolverConfig
	logger   zerolog.Logger
}

// NewResolver creates a resolver over the given provider.
func NewResolver(provider Provider, config ResolverConfig, logger zerolog.Logger) *Resolver {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 1024
	}
	if len(config.Scenarios) == 0 {
		config.Scenarios = DefaultScenarios()
	}

	return &Resolver{
		provider: provider,
		config:   config,
		logger:   logger,
	}
}

// Scenarios returns the improv scenario pool the resolver prompts with.
func (r *Resolver) Scenarios() []string {
	return r.config.Scenarios
}

// Resolve produces a proposal for the utterance. A provider error maps
// to ErrUnavailable; unparseable output maps to the default proposal.
func (r *Resolver) Resolve(ctx context.Context, st *state.SessionState, utterance string) (*Proposal, error) {
	prompt := BuildPrompt(PromptConfig{Scenarios: r.config.Scenarios}, st, utterance)

	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	raw, err := r.provider.Complete(ctx, CompletionRequest{
		Model:       r.config.Model,
		Prompt:      prompt,
		Temperature: r.config.Temperature,
		MaxTokens:   r.config.MaxTokens,
	})
	if err != nil {
		r.logger.Warn().
			Err(err).
			Str("variant", string(st.Variant)).
			Str("provider", r.provider.Provider()).
			Msg("Resolver call failed")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	proposal := ParseProposal(st.Variant, st.Phase, raw)
	if proposal.Fallback {
		r.logger.Warn().
			Str("variant", string(st.Variant)).
			Int("raw_len", len(raw)).
			Msg("Unparseable resolver output, substituting default proposal")
	}

	return proposal, nil
}
