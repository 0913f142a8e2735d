// Package engine orchestrates a conversation turn: transcribe the
// utterance, consult the intent resolver, apply the variant's guard
// rail, execute the authorized effect, reduce to the next state, and
// assemble the spoken response.
//
// Invariants:
// - A failed turn returns the prior state untouched so the caller can
//   retry safely.
// - The guard decision, not the resolver proposal, drives effects and
//   state.
// - Missing audio never fails a turn; text-only replies are valid.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/averith/murmur/internal/metrics"
	"github.com/averith/murmur/pkg/effect"
	"github.com/averith/murmur/pkg/guard"
	"github.com/averith/murmur/pkg/intent"
	"github.com/averith/murmur/pkg/state"
	"github.com/averith/murmur/pkg/voice"
)

// StartResponse is the result of starting a session.
type StartResponse struct {
	Reply       string              `json:"text"`
	AudioHandle string              `json:"audio_url,omitempty"`
	State       *state.SessionState `json:"initial_state"`
}

// TurnResponse is the result of one completed turn.
type TurnResponse struct {
	Transcript  string               `json:"user_transcript"`
	Reply       string               `json:"ai_text"`
	AudioHandle string               `json:"audio_url,omitempty"`
	State       *state.SessionState  `json:"updated_state"`
	Override    guard.OverrideReason `json:"-"`
}

// StartParams seeds a new session.
type StartParams struct {
	Variant state.Variant
	CaseID  string // fraud-check sessions verify against this case
}

// Config holds the engine's tunables.
type Config struct {
	TranscribeTimeout time.Duration
	SynthesizeTimeout time.Duration
}

// Engine wires the turn pipeline together.
type Engine struct {
	resolver    *intent.Resolver
	guards      map[state.Variant]guard.GuardRail
	executor    *effect.Executor
	transcriber voice.Transcriber
	synthesizer voice.Synthesizer
	metrics     *metrics.Metrics
	config      Config
	logger      zerolog.Logger
}

// New creates an engine. The metrics handle may be nil in tests.
func New(resolver *intent.Resolver, guards []guard.GuardRail, executor *effect.Executor, transcriber voice.Transcriber, synthesizer voice.Synthesizer, m *metrics.Metrics, config Config, logger zerolog.Logger) (*Engine, error) {
	if resolver == nil {
		return nil, fmt.Errorf("resolver is required")
	}
	if executor == nil {
		return nil, fmt.Errorf("effect executor is required")
	}
	if transcriber == nil {
		return nil, fmt.Errorf("transcriber is required")
	}

	if config.TranscribeTimeout == 0 {
		config.TranscribeTimeout = 30 * time.Second
	}
	if config.SynthesizeTimeout == 0 {
		config.SynthesizeTimeout = 20 * time.Second
	}

	guardMap := make(map[state.Variant]guard.GuardRail, len(guards))
	for _, g := range guards {
		guardMap[g.Variant()] = g
	}
	for _, v := range state.Variants() {
		if _, ok := guardMap[v]; !ok {
			return nil, fmt.Errorf("no guard registered for variant %s", v)
		}
	}

	return &Engine{
		resolver:    resolver,
		guards:      guardMap,
		executor:    executor,
		transcriber: transcriber,
		synthesizer: synthesizer,
		metrics:     m,
		config:      config,
		logger:      logger,
	}, nil
}

// StartSession mints a fresh session state and speaks the variant's
// opening line.
func (e *Engine) StartSession(ctx context.Context, params StartParams) (*StartResponse, error) {
	if !state.ValidVariant(params.Variant) {
		return nil, fmt.Errorf("%w: unknown variant %q", ErrBadState, params.Variant)
	}

	sessionID, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to mint session id: %w", err)
	}

	st := state.New(params.Variant, sessionID)
	if params.Variant == state.VariantFraudCheck && params.CaseID != "" {
		st.FraudCheck.CaseID = params.CaseID
	}

	reply := introFor(params.Variant)
	st.Turns = append(st.Turns, state.TurnRecord{Role: "agent", Content: reply})

	if e.metrics != nil {
		e.metrics.SessionsStartedTotal.WithLabelValues(string(params.Variant)).Inc()
	}

	e.logger.Info().
		Str("sessionId", sessionID).
		Str("variant", string(params.Variant)).
		Msg("Session started")

	return &StartResponse{
		Reply:       reply,
		AudioHandle: e.synthesize(ctx, reply),
		State:       st,
	}, nil
}

// Turn runs the full pipeline for one utterance. The returned error is
// one of the sentinel errors or a wrapped internal failure; in every
// error case the caller's state is untouched.
func (e *Engine) Turn(ctx context.Context, st *state.SessionState, audio []byte) (*TurnResponse, error) {
	start := time.Now()
	variant := string(st.Variant)

	resp, err := e.runTurn(ctx, st, audio)

	if e.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		e.metrics.TurnsTotal.WithLabelValues(variant, status).Inc()
		e.metrics.TurnDuration.WithLabelValues(variant).Observe(time.Since(start).Seconds())
	}

	return resp, err
}

func (e *Engine) runTurn(ctx context.Context, st *state.SessionState, audio []byte) (*TurnResponse, error) {
	logger := e.logger.With().
		Str("sessionId", st.SessionID).
		Str("variant", string(st.Variant)).
		Logger()

	// Transcribe the utterance.
	tctx, cancel := context.WithTimeout(ctx, e.config.TranscribeTimeout)
	transcript, err := e.transcriber.Transcribe(tctx, audio)
	cancel()
	if err != nil {
		logger.Warn().Err(err).Msg("Transcription failed")
		return nil, fmt.Errorf("%w: %v", ErrTranscriber, err)
	}

	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		if e.metrics != nil {
			e.metrics.EmptyTranscriptsTotal.Inc()
		}
		return nil, ErrNoSpeech
	}
	logger.Debug().Str("transcript", transcript).Msg("Utterance transcribed")

	// Ask the resolver for a proposal. Unavailability aborts the turn
	// before any mutation or effect.
	proposal, err := e.resolver.Resolve(ctx, st, transcript)
	if err != nil {
		return nil, err
	}

	// The guard corrects the proposal into the authoritative decision.
	g := e.guards[st.Variant]
	decision, err := g.Check(ctx, st, transcript, proposal)
	if err != nil {
		return nil, fmt.Errorf("guard check failed: %w", err)
	}
	if decision.Override != guard.OverrideNone {
		logger.Info().
			Str("reason", string(decision.Override)).
			Msg("Guard overrode resolver proposal")
		if e.metrics != nil {
			e.metrics.GuardOverridesTotal.WithLabelValues(string(st.Variant), string(decision.Override)).Inc()
		}
	}

	// Run the authorized effect.
	result, err := e.executor.Execute(ctx, st, decision)
	if err != nil {
		// Only the compliance-relevant case write lands here.
		return nil, err
	}
	if result.BestEffortErr != nil && e.metrics != nil {
		e.metrics.EffectFailuresTotal.WithLabelValues(string(decision.Action)).Inc()
	}

	next := Reduce(st, transcript, decision, result)

	reply := assembleReply(decision, result)

	return &TurnResponse{
		Transcript:  transcript,
		Reply:       reply,
		AudioHandle: e.synthesize(ctx, reply),
		State:       next,
		Override:    decision.Override,
	}, nil
}

// synthesize converts the reply to audio, degrading to a text-only turn
// on any failure.
func (e *Engine) synthesize(ctx context.Context, text string) string {
	if e.synthesizer == nil || text == "" {
		return ""
	}

	sctx, cancel := context.WithTimeout(ctx, e.config.SynthesizeTimeout)
	defer cancel()

	handle, err := e.synthesizer.Synthesize(sctx, text)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Synthesis failed, returning text-only reply")
		if e.metrics != nil {
			e.metrics.SynthesisFailuresTotal.Inc()
		}
		return ""
	}

	return handle
}

// assembleReply augments the guard's reply with effect outcomes the
// resolver could not have known: order confirmation numbers and order
// history reads.
func assembleReply(decision *guard.Decision, result *effect.Result) string {
	switch {
	case result.Order != nil:
		return fmt.Sprintf("%s Your order %s comes to %d rupees.", decision.Reply, result.Order.OrderID, result.Order.TotalAmount)
	case decision.Action == guard.ActionHistory && result.LastOrderOK:
		return fmt.Sprintf("%s Your last order %s totaled %d rupees.", decision.Reply, result.LastOrder.OrderID, result.LastOrder.TotalAmount)
	case decision.Action == guard.ActionHistory && !result.LastOrderOK:
		return "I couldn't find any past orders for you yet."
	default:
		return decision.Reply
	}
}

// IsRetryable reports whether the caller may resubmit the same turn.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrNoSpeech) ||
		errors.Is(err, ErrTranscriber) ||
		errors.Is(err, intent.ErrUnavailable)
}
