package guard

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/averith/murmur/pkg/intent"
	"github.com/averith/murmur/pkg/state"
)

const storyStallReply = "The rain hammers the alley while you catch your breath. What do you do?"

// StoryGuard is the lightest guard: the narrative agent's reply passes
// through as-is, with only a non-empty-reply floor and a fixed phase.
type StoryGuard struct {
	logger zerolog.Logger
}

// NewStoryGuard creates a story guard.
func NewStoryGuard(logger zerolog.Logger) *StoryGuard {
	return &StoryGuard{logger: logger}
}

// Variant returns the variant this guard serves.
func (g *StoryGuard) Variant() state.Variant {
	return state.VariantStory
}

// Check passes the narration through.
func (g *StoryGuard) Check(ctx context.Context, st *state.SessionState, utterance string, proposal *intent.Proposal) (*Decision, error) {
	reply := proposal.Reply
	if reply == "" {
		reply = storyStallReply
	}

	return &Decision{
		Reply:    reply,
		Phase:    state.PhaseNarrating,
		Override: OverrideNone,
		Action:   ActionNone,
	}, nil
}
