package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/averith/murmur/pkg/state"
)

func TestParseProposalDirect(t *testing.T) {
	raw := `{"reply": "Found two hoodies for you.", "intent": "search", "filters": {"category": "hoodie"}}`

	p := ParseProposal(state.VariantCommerce, state.PhaseBrowsing, raw)
	require.NotNil(t, p)
	assert.False(t, p.Fallback)
	assert.Equal(t, "Found two hoodies for you.", p.Reply)
	assert.Equal(t, IntentSearch, p.Intent)
	require.NotNil(t, p.Filters)
	assert.Equal(t, "hoodie", p.Filters.Category)
}

func TestParseProposalExtractsFromChatterText(t *testing.T) {
	raw := "Sure! Here is the JSON you asked for:\n" +
		`{"reply": "Your code checks out, thanks {Asha}.", "verified": true}` +
		"\nLet me know if you need anything else."

	p := ParseProposal(state.VariantFraudCheck, state.PhaseUnverified, raw)
	require.NotNil(t, p)
	assert.False(t, p.Fallback)
	assert.Equal(t, "Your code checks out, thanks {Asha}.", p.Reply)
	require.NotNil(t, p.Verified)
	assert.True(t, *p.Verified)
}

func TestParseProposalBracesInsideStrings(t *testing.T) {
	// The brace and escaped quote inside the reply must not break the
	// balanced-span scan.
	raw := `noise {"reply": "She said \"hi {there}\" and left.", "intent": "none"} trailing`

	p := ParseProposal(state.VariantCommerce, state.PhaseBrowsing, raw)
	require.NotNil(t, p)
	assert.False(t, p.Fallback)
	assert.Equal(t, `She said "hi {there}" and left.`, p.Reply)
}

func TestParseProposalMalformedFallsBack(t *testing.T) {
	cases := map[string]string{
		"empty":         "",
		"plain text":    "I cannot answer that.",
		"broken json":   `{"reply": "hi"`,
		"missing reply": `{"intent": "search"}`,
		"wrong types":   `{"reply": 42}`,
		"json array":    `["reply"]`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			p := ParseProposal(state.VariantCommerce, state.PhaseBrowsing, raw)
			require.NotNil(t, p)
			assert.True(t, p.Fallback)
			assert.Equal(t, IntentNone, p.Intent)
			assert.Equal(t, string(state.PhaseBrowsing), p.NextPhase)
			assert.NotEmpty(t, p.Reply)
		})
	}
}

func TestParseProposalSchemaRejectsBadIntent(t *testing.T) {
	raw := `{"reply": "ok", "intent": "teleport"}`

	p := ParseProposal(state.VariantCommerce, state.PhaseBrowsing, raw)
	require.NotNil(t, p)
	assert.True(t, p.Fallback)
}

func TestParseProposalImprov(t *testing.T) {
	idx := `{"reply": "Welcome Maya! Your first scenario is the barista bit.", "player_name": "Maya", "next_phase": "playing", "next_scenario": 0}`

	p := ParseProposal(state.VariantImprov, state.PhaseIntro, idx)
	require.NotNil(t, p)
	assert.Equal(t, "Maya", p.PlayerName)
	require.NotNil(t, p.NextScenario)
	assert.Equal(t, 0, *p.NextScenario)
	assert.Equal(t, "playing", p.NextPhase)
}

func TestParseProposalStoryIsRawText(t *testing.T) {
	raw := "The alley hums with neon. A drone spots you. What do you do?"

	p := ParseProposal(state.VariantStory, state.PhaseNarrating, raw)
	require.NotNil(t, p)
	assert.False(t, p.Fallback)
	assert.Equal(t, raw, p.Reply)
	assert.Equal(t, string(state.PhaseNarrating), p.NextPhase)
}

func TestParseProposalStoryEmptyFallsBack(t *testing.T) {
	p := ParseProposal(state.VariantStory, state.PhaseNarrating, "   \n ")
	require.NotNil(t, p)
	assert.True(t, p.Fallback)
}

func TestDefaultProposal(t *testing.T) {
	p := DefaultProposal(state.PhaseVerified)
	assert.True(t, p.Fallback)
	assert.Equal(t, string(state.PhaseVerified), p.NextPhase)
	assert.Equal(t, IntentNone, p.Intent)
}

func TestExtractJSONObject(t *testing.T) {
	t.Run("nested objects", func(t *testing.T) {
		span, ok := extractJSONObject(`x {"a": {"b": 1}} y`)
		require.True(t, ok)
		assert.Equal(t, `{"a": {"b": 1}}`, span)
	})

	t.Run("no object", func(t *testing.T) {
		_, ok := extractJSONObject("nothing here")
		assert.False(t, ok)
	})

	t.Run("unbalanced", func(t *testing.T) {
		_, ok := extractJSONObject(`{"a": 1`)
		assert.False(t, ok)
	})
}
