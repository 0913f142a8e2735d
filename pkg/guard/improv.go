package guard

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/averith/murmur/pkg/intent"
	"github.com/averith/murmur/pkg/state"
)

// ImprovGuard enforces the game's phase machine and round bound, and
// keeps scenario selection honest: the resolver may suggest the next
// scenario, but an invalid, missing, or already-used id is replaced by a
// deterministic pick from the unused pool.
type ImprovGuard struct {
	scenarios []string
	logger    zerolog.Logger
}

// NewImprovGuard creates an improv guard over the scenario pool.
func NewImprovGuard(scenarios []string, logger zerolog.Logger) *ImprovGuard {
	if len(scenarios) == 0 {
		scenarios = intent.DefaultScenarios()
	}
	return &ImprovGuard{scenarios: scenarios, logger: logger}
}

// Variant returns the variant this guard serves.
func (g *ImprovGuard) Variant() state.Variant {
	return state.VariantImprov
}

// Check walks the intro, playing, summary, ended machine.
func (g *ImprovGuard) Check(ctx context.Context, st *state.SessionState, utterance string, proposal *intent.Proposal) (*Decision, error) {
	im := st.Improv
	if im == nil {
		im = &state.ImprovState{MaxRounds: state.DefaultMaxRounds}
	}

	decision := &Decision{
		Reply:    proposal.Reply,
		Phase:    st.Phase,
		Override: OverrideNone,
		Action:   ActionNone,
	}

	switch st.Phase {
	case state.PhaseIntro:
		decision.Phase = state.PhasePlaying
		decision.PlayerName = proposal.PlayerName
		g.applyScenario(decision, im, proposal.NextScenario, 0)

	case state.PhasePlaying:
		nextRound := im.Round + 1
		decision.AdvanceRound = true

		if nextRound >= im.MaxRounds {
			// The round bound is authoritative: summary happens now no
			// matter what phase the resolver proposed.
			decision.Phase = state.PhaseSummary
			if proposal.NextPhase != string(state.PhaseSummary) {
				decision.Override = OverrideRoundLimit
				g.logger.Info().
					Int("round", nextRound).
					Int("max_rounds", im.MaxRounds).
					Str("proposed_phase", proposal.NextPhase).
					Msg("Forcing summary at round limit")
			}
			break
		}

		decision.Phase = state.PhasePlaying
		g.applyScenario(decision, im, proposal.NextScenario, nextRound%len(g.scenarios))

	case state.PhaseSummary:
		decision.Phase = state.PhaseEnded

	case state.PhaseEnded:
		decision.Phase = state.PhaseEnded
	}

	return decision, nil
}

// applyScenario sets the decision's next scenario, falling back to the
// deterministic index when the proposal is unusable.
func (g *ImprovGuard) applyScenario(decision *Decision, im *state.ImprovState, proposed *int, fallback int) {
	idx, replaced := g.pickScenario(im, proposed, fallback)
	decision.ScenarioIndex = idx
	decision.ScenarioText = g.scenarios[idx]
	if replaced {
		decision.Override = OverrideInvalidReference
		g.logger.Info().
			Int("scenario", idx).
			Msg("Replaced unusable scenario proposal")
	}
}

// pickScenario validates the proposed scenario index against the unused
// pool. An unusable proposal is replaced by the fallback index, advanced
// to the first unused slot so the game always moves forward. The second
// return value reports whether an explicit proposal was replaced.
func (g *ImprovGuard) pickScenario(im *state.ImprovState, proposed *int, fallback int) (int, bool) {
	used := make(map[int]bool, len(im.UsedScenarios))
	for _, u := range im.UsedScenarios {
		used[u] = true
	}

	if proposed != nil && *proposed >= 0 && *proposed < len(g.scenarios) && !used[*proposed] {
		return *proposed, false
	}

	for i := 0; i < len(g.scenarios); i++ {
		candidate := (fallback + i) % len(g.scenarios)
		if !used[candidate] {
			return candidate, proposed != nil
		}
	}

	// Every scenario has been used; cycle rather than stall.
	return fallback, proposed != nil
}
