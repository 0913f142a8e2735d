package state

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		variant Variant
		phase   Phase
	}{
		{VariantCommerce, PhaseBrowsing},
		{VariantFraudCheck, PhaseUnverified},
		{VariantWellness, PhaseCheckin},
		{VariantImprov, PhaseIntro},
		{VariantStory, PhaseNarrating},
	}

	for _, tt := range tests {
		t.Run(string(tt.variant), func(t *testing.T) {
			st := New(tt.variant, "s1")

			assert.Equal(t, "s1", st.SessionID)
			assert.Equal(t, tt.variant, st.Variant)
			assert.Equal(t, tt.phase, st.Phase)
			assert.NotNil(t, st.Turns)
			assert.False(t, st.CreatedAt.IsZero())
		})
	}

	t.Run("improv gets default max rounds", func(t *testing.T) {
		st := New(VariantImprov, "s1")
		require.NotNil(t, st.Improv)
		assert.Equal(t, DefaultMaxRounds, st.Improv.MaxRounds)
	})

	t.Run("only the variant payload is set", func(t *testing.T) {
		st := New(VariantCommerce, "s1")
		assert.NotNil(t, st.Commerce)
		assert.Nil(t, st.FraudCheck)
		assert.Nil(t, st.Wellness)
		assert.Nil(t, st.Improv)
	})
}

func TestParse(t *testing.T) {
	t.Run("round trips", func(t *testing.T) {
		orig := New(VariantCommerce, "s1")
		orig.Commerce.LastResults = []string{"p1", "p2"}
		orig.Turns = append(orig.Turns, TurnRecord{Role: "agent", Content: "hello"})

		raw, err := json.Marshal(orig)
		require.NoError(t, err)

		st, err := Parse(raw)
		require.NoError(t, err)

		assert.Equal(t, orig.SessionID, st.SessionID)
		assert.Equal(t, orig.Phase, st.Phase)
		assert.Equal(t, []string{"p1", "p2"}, st.Commerce.LastResults)
		require.Len(t, st.Turns, 1)
		assert.Equal(t, "hello", st.Turns[0].Content)
	})

	t.Run("empty blob", func(t *testing.T) {
		_, err := Parse(nil)
		assert.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := Parse([]byte("{oops"))
		assert.Error(t, err)
	})

	t.Run("unknown variant rejected", func(t *testing.T) {
		_, err := Parse([]byte(`{"session_id": "s1", "variant": "poker"}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown variant")
	})

	t.Run("missing payload filled in", func(t *testing.T) {
		st, err := Parse([]byte(`{"session_id": "s1", "variant": "wellness", "phase": "checkin"}`))
		require.NoError(t, err)
		assert.NotNil(t, st.Wellness)
	})
}

func TestNormalize(t *testing.T) {
	t.Run("empty phase becomes initial", func(t *testing.T) {
		st := &SessionState{Variant: VariantFraudCheck}
		require.NoError(t, st.Normalize())
		assert.Equal(t, PhaseUnverified, st.Phase)
	})

	t.Run("unknown improv phase falls back to playing", func(t *testing.T) {
		st := &SessionState{Variant: VariantImprov, Phase: "warmup"}
		require.NoError(t, st.Normalize())
		assert.Equal(t, PhasePlaying, st.Phase)
	})

	t.Run("unknown phase rejected for other variants", func(t *testing.T) {
		st := &SessionState{Variant: VariantCommerce, Phase: "haggling"}
		assert.Error(t, st.Normalize())
	})

	t.Run("phase from another variant rejected", func(t *testing.T) {
		st := &SessionState{Variant: VariantWellness, Phase: PhaseBrowsing}
		assert.Error(t, st.Normalize())
	})

	t.Run("improv counters clamped", func(t *testing.T) {
		st := &SessionState{
			Variant: VariantImprov,
			Phase:   PhasePlaying,
			Improv:  &ImprovState{Round: -4, MaxRounds: 0},
		}
		require.NoError(t, st.Normalize())
		assert.Equal(t, 0, st.Improv.Round)
		assert.Equal(t, DefaultMaxRounds, st.Improv.MaxRounds)
	})

	t.Run("nil history becomes empty", func(t *testing.T) {
		st := &SessionState{Variant: VariantStory}
		require.NoError(t, st.Normalize())
		assert.NotNil(t, st.Turns)
	})
}

func TestClone(t *testing.T) {
	st := New(VariantImprov, "s1")
	st.Improv.UsedScenarios = []int{0, 2}
	st.Turns = append(st.Turns, TurnRecord{Role: "user", Content: "hi"})

	cp := st.Clone()

	cp.Turns = append(cp.Turns, TurnRecord{Role: "agent", Content: "welcome"})
	cp.Improv.UsedScenarios = append(cp.Improv.UsedScenarios, 4)
	cp.Improv.Round = 2

	assert.Len(t, st.Turns, 1, "original history untouched")
	assert.Equal(t, []int{0, 2}, st.Improv.UsedScenarios, "original scenarios untouched")
	assert.Equal(t, 0, st.Improv.Round)
}

func TestPhaseHelpers(t *testing.T) {
	assert.Equal(t, PhaseIntro, InitialPhase(VariantImprov))
	assert.Equal(t, PhaseEnded, TerminalPhase(VariantImprov))
	assert.Equal(t, PhaseBrowsing, InitialPhase(VariantCommerce))
	assert.Equal(t, PhaseBrowsing, TerminalPhase(VariantCommerce))

	assert.Equal(t, 1, PhaseIndex(VariantImprov, PhasePlaying))
	assert.Equal(t, -1, PhaseIndex(VariantImprov, PhaseBrowsing))
	assert.Equal(t, -1, PhaseIndex(VariantCommerce, "haggling"))
}

func TestValidVariant(t *testing.T) {
	for _, v := range Variants() {
		assert.True(t, ValidVariant(v))
	}
	assert.False(t, ValidVariant("poker"))
	assert.False(t, ValidVariant(""))
}

func TestWellnessComplete(t *testing.T) {
	var nilState *WellnessState
	assert.False(t, nilState.Complete())

	assert.False(t, (&WellnessState{}).Complete())
	assert.False(t, (&WellnessState{Mood: "good", Energy: "high"}).Complete())
	assert.True(t, (&WellnessState{Mood: "good", Energy: "high", Goals: "run"}).Complete())
}
