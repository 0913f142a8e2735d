package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/averith/murmur/pkg/state"
)

func TestBuildPromptCommerce(t *testing.T) {
	st := state.New(state.VariantCommerce, "s1")
	st.Commerce.LastResults = []string{"p1", "p2"}

	prompt := BuildPrompt(PromptConfig{}, st, "show me hoodies")
	assert.Contains(t, prompt, "shopping assistant")
	assert.Contains(t, prompt, "p1, p2")
	assert.Contains(t, prompt, `"show me hoodies"`)
}

func TestBuildPromptFraudCheck(t *testing.T) {
	st := state.New(state.VariantFraudCheck, "s1")
	st.FraudCheck.CaseID = "case-1001"

	prompt := BuildPrompt(PromptConfig{}, st, "my code is 4242")
	assert.Contains(t, prompt, "case-1001")
	assert.Contains(t, prompt, string(state.PhaseUnverified))
}

func TestBuildPromptWellnessCarriesCollectedFields(t *testing.T) {
	st := state.New(state.VariantWellness, "s1")
	st.Wellness.Mood = "calm"

	prompt := BuildPrompt(PromptConfig{}, st, "energy is high")
	assert.Contains(t, prompt, `mood="calm"`)
	assert.Contains(t, prompt, "energy is high")
}

func TestBuildPromptImprovByPhase(t *testing.T) {
	scenarios := []string{"scenario zero", "scenario one", "scenario two"}
	st := state.New(state.VariantImprov, "s1")

	t.Run("intro offers first scenario", func(t *testing.T) {
		prompt := BuildPrompt(PromptConfig{Scenarios: scenarios}, st, "I'm Maya")
		assert.Contains(t, prompt, "scenario zero")
		assert.Contains(t, prompt, "player_name")
	})

	t.Run("mid-game offers next scenario", func(t *testing.T) {
		mid := st.Clone()
		mid.Phase = state.PhasePlaying
		mid.Improv.Round = 0
		mid.Improv.CurrentScenario = "scenario zero"

		prompt := BuildPrompt(PromptConfig{Scenarios: scenarios}, mid, "acting!")
		assert.Contains(t, prompt, "scenario one")
		assert.Contains(t, prompt, `"next_phase": "playing"`)
	})

	t.Run("final round asks for summary", func(t *testing.T) {
		last := st.Clone()
		last.Phase = state.PhasePlaying
		last.Improv.Round = 2

		prompt := BuildPrompt(PromptConfig{Scenarios: scenarios}, last, "final act")
		assert.Contains(t, prompt, "final round")
		assert.Contains(t, prompt, `"next_phase": "summary"`)
	})

	t.Run("summary says goodbye", func(t *testing.T) {
		done := st.Clone()
		done.Phase = state.PhaseSummary

		prompt := BuildPrompt(PromptConfig{Scenarios: scenarios}, done, "bye")
		assert.Contains(t, prompt, "game is over")
	})
}

func TestBuildPromptStory(t *testing.T) {
	st := state.New(state.VariantStory, "s1")
	prompt := BuildPrompt(PromptConfig{}, st, "I hack the terminal")
	assert.Contains(t, prompt, "Neon City")
	assert.Contains(t, prompt, "I hack the terminal")
}

func TestDefaultScenariosNonEmpty(t *testing.T) {
	scenarios := DefaultScenarios()
	require.NotEmpty(t, scenarios)
	for _, s := range scenarios {
		assert.NotEmpty(t, s)
	}
}
