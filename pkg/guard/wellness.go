package guard

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/averith/murmur/pkg/intent"
	"github.com/averith/murmur/pkg/state"
)

// WellnessGuard derives check-in completeness from the collected fields
// and permits the log append only on the incomplete-to-complete edge, so
// repeating a finished check-in never writes a second entry.
type WellnessGuard struct {
	logger zerolog.Logger
}

// NewWellnessGuard creates a wellness guard.
func NewWellnessGuard(logger zerolog.Logger) *WellnessGuard {
	return &WellnessGuard{logger: logger}
}

// Variant returns the variant this guard serves.
func (g *WellnessGuard) Variant() state.Variant {
	return state.VariantWellness
}

// Check merges the proposed field deltas over the previous values and
// compares completeness before and after.
func (g *WellnessGuard) Check(ctx context.Context, st *state.SessionState, utterance string, proposal *intent.Proposal) (*Decision, error) {
	prev := st.Wellness
	if prev == nil {
		prev = &state.WellnessState{}
	}
	prevComplete := prev.Complete()

	merged := state.WellnessState{
		Mood:   firstNonEmpty(proposal.Mood, prev.Mood),
		Energy: firstNonEmpty(proposal.Energy, prev.Energy),
		Goals:  firstNonEmpty(proposal.Goals, prev.Goals),
	}

	decision := &Decision{
		Reply:    proposal.Reply,
		Phase:    state.PhaseCheckin,
		Override: OverrideNone,
		Action:   ActionNone,
		Mood:     merged.Mood,
		Energy:   merged.Energy,
		Goals:    merged.Goals,
	}

	switch {
	case !prevComplete && merged.Complete():
		decision.Action = ActionLogAppend
	case prevComplete && merged.Complete():
		// Already logged for this session; suppress the repeat.
		decision.Override = OverrideDuplicateCompletion
		g.logger.Debug().Str("sessionId", st.SessionID).Msg("Duplicate wellness completion suppressed")
	}

	return decision, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
