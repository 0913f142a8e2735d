package intent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/averith/murmur/pkg/state"
)

// DefaultScenarios is the built-in improv scenario pool.
func DefaultScenarios() []string {
	return []string{
		"You are a barista telling a customer their latte is a portal to another dimension.",
		"You are a time-travelling tour guide explaining TikTok to a peasant from 1400 AD.",
		"You are a cat trying to convince a dog to let you blame him for the broken vase.",
		"You are an alien tour guide pretending to be human but getting basic facts wrong.",
		"You are a waiter calmly explaining that the customer's soup is actually a magical potion.",
	}
}

// PromptConfig carries the variant-independent inputs to prompt building.
type PromptConfig struct {
	Scenarios []string
}

// BuildPrompt renders the per-variant instruction prompt for a turn.
func BuildPrompt(cfg PromptConfig, st *state.SessionState, utterance string) string {
	switch st.Variant {
	case state.VariantCommerce:
		return commercePrompt(st, utterance)
	case state.VariantFraudCheck:
		return fraudCheckPrompt(st, utterance)
	case state.VariantWellness:
		return wellnessPrompt(st, utterance)
	case state.VariantImprov:
		return improvPrompt(cfg.Scenarios, st, utterance)
	case state.VariantStory:
		return storyPrompt(st, utterance)
	default:
		return fmt.Sprintf("The user said: %q. Reply briefly and helpfully.", utterance)
	}
}

func historyJSON(st *state.SessionState) string {
	data, err := json.Marshal(st.Turns)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func commercePrompt(st *state.SessionState, utterance string) string {
	lastResults := "none"
	if st.Commerce != nil && len(st.Commerce.LastResults) > 0 {
		lastResults = strings.Join(st.Commerce.LastResults, ", ")
	}

	return fmt.Sprintf(`You are a friendly voice shopping assistant for a small merch store.

CONVERSATION SO FAR: %s
PRODUCT IDS FROM THE LAST SEARCH: %s
CUSTOMER JUST SAID: %q

Decide what the customer wants:
- "search" with filters (category, color, max_price as a string) to browse products.
- "order" with items (product_id, quantity, size) to buy. Only use product ids you have seen.
- "history" to hear about their last order.
- "none" for chit-chat.

Keep the reply short and speakable (1-2 sentences).

OUTPUT JSON ONLY:
{"reply": "...", "intent": "search|order|history|none", "filters": {...}, "items": [...]}`,
		historyJSON(st), lastResults, utterance)
}

func fraudCheckPrompt(st *state.SessionState, utterance string) string {
	caseID := ""
	if st.FraudCheck != nil {
		caseID = st.FraudCheck.CaseID
	}

	return fmt.Sprintf(`You are a calm bank fraud-verification caller handling case %q.

CURRENT STAGE: %s
CONVERSATION SO FAR: %s
CUSTOMER JUST SAID: %q

If the stage is "unverified", ask the customer to read out their
verification code. If they appear to have said a code, acknowledge it.
If the stage is "verified", help them confirm or dispute the flagged
transaction and propose case_status "confirmed_fraud" or "cleared" when
they decide.

Keep the reply short and speakable.

OUTPUT JSON ONLY:
{"reply": "...", "verified": true|false, "case_status": ""}`,
		caseID, st.Phase, historyJSON(st), utterance)
}

func wellnessPrompt(st *state.SessionState, utterance string) string {
	w := st.Wellness
	if w == nil {
		w = &state.WellnessState{}
	}

	return fmt.Sprintf(`You are a warm daily wellness check-in companion.

COLLECTED SO FAR: mood=%q energy=%q goals=%q
CONVERSATION SO FAR: %s
USER JUST SAID: %q

Extract any mood, energy, or goals the user just shared into the output
fields, keeping earlier values if the user did not change them. Ask for
whichever field is still missing. When everything is collected, recap
their day plan warmly.

Keep the reply short and speakable.

OUTPUT JSON ONLY:
{"reply": "...", "mood": "...", "energy": "...", "goals": "..."}`,
		w.Mood, w.Energy, w.Goals, historyJSON(st), utterance)
}

func improvPrompt(scenarios []string, st *state.SessionState, utterance string) string {
	if len(scenarios) == 0 {
		scenarios = DefaultScenarios()
	}

	im := st.Improv
	if im == nil {
		im = &state.ImprovState{MaxRounds: state.DefaultMaxRounds}
	}

	switch st.Phase {
	case state.PhaseIntro:
		return fmt.Sprintf(`You are the host of a chaotic improv game show called 'Improv Battle'.
User Input: %q

GOAL:
1. Extract the player's name.
2. Welcome them.
3. Give the FIRST scenario: %q

OUTPUT JSON ONLY:
{"reply": "Welcome [Name]! Your first scenario is: ...", "player_name": "extracted_name", "next_phase": "playing", "next_scenario": 0}`,
			utterance, scenarios[0])

	case state.PhasePlaying:
		nextRound := im.Round + 1
		gameOver := nextRound >= im.MaxRounds
		nextIdx := nextRound % len(scenarios)

		if gameOver {
			return fmt.Sprintf(`Host of 'Improv Battle'.
SCENARIO: %q
PLAYER'S ACT: %q

GOAL:
1. Rate the performance (witty, funny).
2. This was the final round (%d/%d). Say "That was the final round! Let's see how you did..."

OUTPUT JSON ONLY:
{"reply": "...", "next_phase": "summary"}`,
				im.CurrentScenario, utterance, nextRound, im.MaxRounds)
		}

		return fmt.Sprintf(`Host of 'Improv Battle'.
SCENARIO: %q
PLAYER'S ACT: %q

GOAL:
1. Rate the performance (witty, funny).
2. The game is NOT over (%d/%d). Give the next scenario: %q

OUTPUT JSON ONLY:
{"reply": "Great acting! Next scenario: ...", "next_phase": "playing", "next_scenario": %d}`,
			im.CurrentScenario, utterance, nextRound, im.MaxRounds, scenarios[nextIdx], nextIdx)

	default: // summary and beyond
		return fmt.Sprintf(`Host of 'Improv Battle'. The game is over.
HISTORY: %s

GOAL: Summarize the player's style and say goodbye.

OUTPUT JSON ONLY:
{"reply": "You were hilarious! Thanks for playing.", "next_phase": "ended"}`,
			historyJSON(st))
	}
}

func storyPrompt(st *state.SessionState, utterance string) string {
	return fmt.Sprintf(`You are the Game Master (GM) for a gritty Cyberpunk RPG adventure set in 'Neon City'.

TONE: Noir, high-tech, dangerous, atmospheric.
ROLE: Describe the outcome of the player's actions vividly. Keep
descriptions concise (2-3 sentences) for voice.
ALWAYS END WITH: "What do you do?"

HISTORY OF THIS SESSION: %s

PLAYER JUST SAID: %q

INSTRUCTIONS:
1. If the player's action is impossible, tell them why.
2. If they succeed or fail, describe the consequence.
3. Introduce characters or threats dynamically.
4. Move the plot forward.

Respond with the GM's narration text only.`,
		historyJSON(st), utterance)
}
