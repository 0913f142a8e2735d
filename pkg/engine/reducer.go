package engine

import (
	"time"

	"github.com/averith/murmur/pkg/effect"
	"github.com/averith/murmur/pkg/guard"
	"github.com/averith/murmur/pkg/state"
)

// Reduce merges the prior state, the guard decision, and the effect
// result into the next session state. The previous state is never
// mutated; fields the decision omits keep their prior values; the phase
// never moves backwards in the variant's order.
func Reduce(prev *state.SessionState, transcript string, decision *guard.Decision, result *effect.Result) *state.SessionState {
	next := prev.Clone()

	// Phase can only hold or advance.
	if state.PhaseIndex(next.Variant, decision.Phase) >= state.PhaseIndex(next.Variant, next.Phase) {
		next.Phase = decision.Phase
	}

	// History grows by exactly one exchange per turn.
	next.Turns = append(next.Turns,
		state.TurnRecord{Role: "user", Content: transcript},
		state.TurnRecord{Role: "agent", Content: decision.Reply},
	)

	switch next.Variant {
	case state.VariantCommerce:
		reduceCommerce(next, result)
	case state.VariantWellness:
		reduceWellness(next, decision, result)
	case state.VariantImprov:
		reduceImprov(next, decision)
	}

	return next
}

func reduceCommerce(next *state.SessionState, result *effect.Result) {
	if result == nil || next.Commerce == nil {
		return
	}

	if result.SearchResults != nil {
		ids := make([]string, 0, len(result.SearchResults))
		for _, p := range result.SearchResults {
			ids = append(ids, p.ID)
		}
		next.Commerce.LastResults = ids
	}

	if result.Order != nil {
		next.Commerce.LastOrderID = result.Order.OrderID
	}
}

func reduceWellness(next *state.SessionState, decision *guard.Decision, result *effect.Result) {
	if next.Wellness == nil {
		next.Wellness = &state.WellnessState{}
	}

	if decision.Mood != "" {
		next.Wellness.Mood = decision.Mood
	}
	if decision.Energy != "" {
		next.Wellness.Energy = decision.Energy
	}
	if decision.Goals != "" {
		next.Wellness.Goals = decision.Goals
	}

	if result != nil && result.LogAppended {
		next.Wellness.Date = time.Now().UTC().Format("2006-01-02")
	}
}

func reduceImprov(next *state.SessionState, decision *guard.Decision) {
	if next.Improv == nil {
		next.Improv = &state.ImprovState{MaxRounds: state.DefaultMaxRounds}
	}

	if decision.PlayerName != "" {
		next.Improv.PlayerName = decision.PlayerName
	}

	if decision.AdvanceRound {
		next.Improv.Round++
	}

	if decision.ScenarioText != "" {
		next.Improv.CurrentScenario = decision.ScenarioText

		seen := false
		for _, u := range next.Improv.UsedScenarios {
			if u == decision.ScenarioIndex {
				seen = true
				break
			}
		}
		if !seen {
			next.Improv.UsedScenarios = append(next.Improv.UsedScenarios, decision.ScenarioIndex)
		}
	}
}
