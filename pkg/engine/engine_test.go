package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/averith/murmur/internal/metrics"
	"github.com/averith/murmur/pkg/catalog"
	"github.com/averith/murmur/pkg/effect"
	"github.com/averith/murmur/pkg/guard"
	"github.com/averith/murmur/pkg/intent"
	"github.com/averith/murmur/pkg/state"
	"github.com/averith/murmur/pkg/store"
)

// fakeLLM scripts the resolver's raw model output per call.
type fakeLLM struct {
	responses []string
	err       error
	calls     int
}

func (f *fakeLLM) Complete(ctx context.Context, req intent.CompletionRequest) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	idx := f.calls
	f.calls++
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return f.responses[idx], nil
}

func (f *fakeLLM) Provider() string { return "fake" }

type fakeTranscriber struct {
	transcript string
	err        error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	return f.transcript, f.err
}

func (f *fakeTranscriber) Name() string { return "fake-stt" }

type fakeSynthesizer struct {
	handle string
	err    error
	calls  int
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, text string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.handle, nil
}

func (f *fakeSynthesizer) Name() string { return "fake-tts" }

type engineFixture struct {
	engine      *Engine
	llm         *fakeLLM
	transcriber *fakeTranscriber
	synthesizer *fakeSynthesizer
	cases       *store.CaseFile
	wellness    *store.WellnessLog
	orders      *store.OrdersJournal
}

func newEngineFixture(t *testing.T, llm *fakeLLM) *engineFixture {
	t.Helper()
	dir := t.TempDir()

	orders, err := store.NewOrdersJournal(filepath.Join(dir, "orders.jsonl"))
	require.NoError(t, err)
	cases, err := store.NewCaseFile(filepath.Join(dir, "cases.json"))
	require.NoError(t, err)
	require.NoError(t, cases.Seed(store.DefaultCases()))
	wellness, err := store.NewWellnessLog(filepath.Join(dir, "wellness.json"))
	require.NoError(t, err)

	c := catalog.Default()
	nop := zerolog.Nop()

	resolver := intent.NewResolver(llm, intent.ResolverConfig{Model: "test"}, nop)
	guards := []guard.GuardRail{
		guard.NewCommerceGuard(c, nop),
		guard.NewFraudCheckGuard(cases, nop),
		guard.NewWellnessGuard(nop),
		guard.NewImprovGuard(nil, nop),
		guard.NewStoryGuard(nop),
	}
	executor := effect.NewExecutor(c, orders, cases, wellness, nop)

	transcriber := &fakeTranscriber{transcript: "hello"}
	synthesizer := &fakeSynthesizer{handle: "https://audio.test/reply.mp3"}

	eng, err := New(resolver, guards, executor, transcriber, synthesizer, metrics.NewMetrics(), Config{}, nop)
	require.NoError(t, err)

	return &engineFixture{
		engine:      eng,
		llm:         llm,
		transcriber: transcriber,
		synthesizer: synthesizer,
		cases:       cases,
		wellness:    wellness,
		orders:      orders,
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	nop := zerolog.Nop()
	resolver := intent.NewResolver(&fakeLLM{responses: []string{"{}"}}, intent.ResolverConfig{}, nop)
	executor := effect.NewExecutor(catalog.Default(), nil, nil, nil, nop)

	_, err := New(nil, nil, executor, &fakeTranscriber{}, nil, nil, Config{}, nop)
	assert.Error(t, err)

	_, err = New(resolver, nil, nil, &fakeTranscriber{}, nil, nil, Config{}, nop)
	assert.Error(t, err)

	_, err = New(resolver, nil, executor, nil, nil, nil, Config{}, nop)
	assert.Error(t, err)

	// Missing guards for some variants is a wiring bug.
	_, err = New(resolver, []guard.GuardRail{guard.NewStoryGuard(nop)}, executor, &fakeTranscriber{}, nil, nil, Config{}, nop)
	assert.ErrorContains(t, err, "no guard registered")
}

func TestStartSession(t *testing.T) {
	f := newEngineFixture(t, &fakeLLM{responses: []string{"{}"}})

	resp, err := f.engine.StartSession(context.Background(), StartParams{Variant: state.VariantCommerce})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Reply)
	assert.Equal(t, "https://audio.test/reply.mp3", resp.AudioHandle)
	require.NotNil(t, resp.State)
	assert.NotEmpty(t, resp.State.SessionID)
	assert.Equal(t, state.PhaseBrowsing, resp.State.Phase)
	require.Len(t, resp.State.Turns, 1)
	assert.Equal(t, "agent", resp.State.Turns[0].Role)
}

func TestStartSessionFraudCarriesCaseID(t *testing.T) {
	f := newEngineFixture(t, &fakeLLM{responses: []string{"{}"}})

	resp, err := f.engine.StartSession(context.Background(), StartParams{
		Variant: state.VariantFraudCheck,
		CaseID:  "case-1001",
	})
	require.NoError(t, err)
	assert.Equal(t, "case-1001", resp.State.FraudCheck.CaseID)
	assert.Equal(t, state.PhaseUnverified, resp.State.Phase)
}

func TestStartSessionUnknownVariant(t *testing.T) {
	f := newEngineFixture(t, &fakeLLM{responses: []string{"{}"}})

	_, err := f.engine.StartSession(context.Background(), StartParams{Variant: "karaoke"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadState)
}

func TestTurnCommerceSearch(t *testing.T) {
	f := newEngineFixture(t, &fakeLLM{responses: []string{
		`{"reply": "We have one hoodie in stock.", "intent": "search", "filters": {"category": "hoodie"}}`,
	}})
	f.transcriber.transcript = "show me hoodies"

	st := state.New(state.VariantCommerce, "s1")
	resp, err := f.engine.Turn(context.Background(), st, []byte("audio"))
	require.NoError(t, err)

	assert.Equal(t, "show me hoodies", resp.Transcript)
	assert.Equal(t, "We have one hoodie in stock.", resp.Reply)
	assert.Equal(t, []string{"p2"}, resp.State.Commerce.LastResults)
	assert.Len(t, resp.State.Turns, 2)

	// The caller's state is untouched; only the response carries the
	// next state.
	assert.Empty(t, st.Commerce.LastResults)
	assert.Empty(t, st.Turns)
}

func TestTurnCommerceOrderConfirmation(t *testing.T) {
	f := newEngineFixture(t, &fakeLLM{responses: []string{
		`{"reply": "Placing your order now.", "intent": "order", "items": [{"product_id": "p2", "quantity": 2}]}`,
	}})
	f.transcriber.transcript = "two hoodies please"

	st := state.New(state.VariantCommerce, "s1")
	resp, err := f.engine.Turn(context.Background(), st, []byte("audio"))
	require.NoError(t, err)

	assert.Contains(t, resp.Reply, "Placing your order now.")
	assert.Contains(t, resp.Reply, "3000 rupees")
	assert.Contains(t, resp.Reply, resp.State.Commerce.LastOrderID)

	orders, err := f.orders.All()
	require.NoError(t, err)
	require.Len(t, orders, 1)
}

func TestTurnCommerceHistoryEmpty(t *testing.T) {
	f := newEngineFixture(t, &fakeLLM{responses: []string{
		`{"reply": "Checking your orders.", "intent": "history"}`,
	}})
	f.transcriber.transcript = "what did I order"

	st := state.New(state.VariantCommerce, "s1")
	resp, err := f.engine.Turn(context.Background(), st, []byte("audio"))
	require.NoError(t, err)
	assert.Contains(t, resp.Reply, "couldn't find any past orders")
}

func TestTurnNoSpeech(t *testing.T) {
	f := newEngineFixture(t, &fakeLLM{responses: []string{"{}"}})
	f.transcriber.transcript = "   "

	st := state.New(state.VariantCommerce, "s1")
	_, err := f.engine.Turn(context.Background(), st, []byte("audio"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoSpeech)
	assert.True(t, IsRetryable(err))
	assert.Zero(t, f.llm.calls, "resolver is never consulted without speech")
}

func TestTurnTranscriberFailure(t *testing.T) {
	f := newEngineFixture(t, &fakeLLM{responses: []string{"{}"}})
	f.transcriber.err = errors.New("upstream 500")

	st := state.New(state.VariantCommerce, "s1")
	_, err := f.engine.Turn(context.Background(), st, []byte("audio"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTranscriber)
	assert.True(t, IsRetryable(err))
}

func TestTurnResolverOutageLeavesStateUntouched(t *testing.T) {
	f := newEngineFixture(t, &fakeLLM{err: errors.New("rate limited")})
	f.transcriber.transcript = "hello"

	st := state.New(state.VariantWellness, "s1")
	st.Wellness.Mood = "calm"

	_, err := f.engine.Turn(context.Background(), st, []byte("audio"))
	require.Error(t, err)
	assert.ErrorIs(t, err, intent.ErrUnavailable)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, "calm", st.Wellness.Mood)
	assert.Empty(t, st.Turns)
}

func TestTurnFraudVerification(t *testing.T) {
	f := newEngineFixture(t, &fakeLLM{responses: []string{
		`{"reply": "Thank you, that matches our records.", "verified": true}`,
	}})
	f.transcriber.transcript = "my code is 42 42"

	st := state.New(state.VariantFraudCheck, "s1")
	st.FraudCheck.CaseID = "case-1001"

	resp, err := f.engine.Turn(context.Background(), st, []byte("audio"))
	require.NoError(t, err)
	assert.Equal(t, state.PhaseVerified, resp.State.Phase)
	assert.Equal(t, guard.OverrideNone, resp.Override)
}

func TestTurnFraudWrongCodeOverridesReply(t *testing.T) {
	f := newEngineFixture(t, &fakeLLM{responses: []string{
		`{"reply": "Great, you're verified!", "verified": true}`,
	}})
	f.transcriber.transcript = "the code is 1234"

	st := state.New(state.VariantFraudCheck, "s1")
	st.FraudCheck.CaseID = "case-1001"

	resp, err := f.engine.Turn(context.Background(), st, []byte("audio"))
	require.NoError(t, err)
	assert.Equal(t, state.PhaseUnverified, resp.State.Phase)
	assert.Equal(t, guard.OverrideSecurityFail, resp.Override)
	assert.NotContains(t, resp.Reply, "verified!")
}

func TestTurnWellnessCompletionWritesLog(t *testing.T) {
	f := newEngineFixture(t, &fakeLLM{responses: []string{
		`{"reply": "All set, have a great day!", "goals": "ship the release"}`,
	}})
	f.transcriber.transcript = "today I want to ship the release"

	st := state.New(state.VariantWellness, "s1")
	st.Wellness.Mood = "calm"
	st.Wellness.Energy = "high"

	resp, err := f.engine.Turn(context.Background(), st, []byte("audio"))
	require.NoError(t, err)
	assert.Equal(t, "ship the release", resp.State.Wellness.Goals)
	assert.NotEmpty(t, resp.State.Wellness.Date)

	entries, err := f.wellness.All()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ship the release", entries[0].Goals)
}

func TestTurnImprovGameToSummary(t *testing.T) {
	f := newEngineFixture(t, &fakeLLM{responses: []string{
		`{"reply": "Nice act! Next scenario coming.", "next_phase": "playing", "next_scenario": 1}`,
	}})
	f.transcriber.transcript = "I act out the scene"

	st := state.New(state.VariantImprov, "s1")
	st.Phase = state.PhasePlaying
	st.Improv.Round = 2
	st.Improv.UsedScenarios = []int{0, 1}

	resp, err := f.engine.Turn(context.Background(), st, []byte("audio"))
	require.NoError(t, err)
	assert.Equal(t, state.PhaseSummary, resp.State.Phase)
	assert.Equal(t, guard.OverrideRoundLimit, resp.Override)
	assert.Equal(t, 3, resp.State.Improv.Round)
}

func TestTurnStoryNarration(t *testing.T) {
	narration := "You slip past the drone into the noodle shop. What do you do?"
	f := newEngineFixture(t, &fakeLLM{responses: []string{narration}})
	f.transcriber.transcript = "I sneak past the drone"

	st := state.New(state.VariantStory, "s1")
	resp, err := f.engine.Turn(context.Background(), st, []byte("audio"))
	require.NoError(t, err)
	assert.Equal(t, narration, resp.Reply)
	assert.Equal(t, state.PhaseNarrating, resp.State.Phase)
}

func TestTurnSynthesisFailureDegradesToText(t *testing.T) {
	f := newEngineFixture(t, &fakeLLM{responses: []string{
		`{"reply": "Hi there!", "intent": "none"}`,
	}})
	f.synthesizer.err = errors.New("tts outage")
	f.transcriber.transcript = "hello"

	st := state.New(state.VariantCommerce, "s1")
	resp, err := f.engine.Turn(context.Background(), st, []byte("audio"))
	require.NoError(t, err)
	assert.Equal(t, "Hi there!", resp.Reply)
	assert.Empty(t, resp.AudioHandle)
}

func TestTurnUnparseableResolverOutputStillReplies(t *testing.T) {
	f := newEngineFixture(t, &fakeLLM{responses: []string{"sorry, no JSON from me"}})
	f.transcriber.transcript = "show me mugs"

	st := state.New(state.VariantCommerce, "s1")
	resp, err := f.engine.Turn(context.Background(), st, []byte("audio"))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Reply)
	assert.Equal(t, state.PhaseBrowsing, resp.State.Phase)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrNoSpeech))
	assert.True(t, IsRetryable(ErrTranscriber))
	assert.True(t, IsRetryable(intent.ErrUnavailable))
	assert.False(t, IsRetryable(errors.New("disk full")))
	assert.False(t, IsRetryable(ErrBadState))
}
