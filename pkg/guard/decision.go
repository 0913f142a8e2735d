package guard

import (
	"context"

	"github.com/averith/murmur/pkg/catalog"
	"github.com/averith/murmur/pkg/intent"
	"github.com/averith/murmur/pkg/state"
)

// OverrideReason records why the guard corrected the proposal.
type OverrideReason string

const (
	OverrideNone                OverrideReason = "none"
	OverrideSecurityFail        OverrideReason = "security_fail"
	OverrideRoundLimit          OverrideReason = "round_limit"
	OverrideInvalidReference    OverrideReason = "invalid_reference"
	OverrideDuplicateCompletion OverrideReason = "duplicate_completion"
)

// Action names the side effect a decision authorizes.
type Action string

const (
	ActionNone       Action = "none"
	ActionSearch     Action = "search"
	ActionOrder      Action = "order"
	ActionHistory    Action = "history"
	ActionCaseUpdate Action = "case_update"
	ActionLogAppend  Action = "log_append"
)

// Decision is the guard's authoritative output for a turn. Fields left
// at their zero value mean "retain the previous state value"; the
// reducer never resets what a decision omits.
type Decision struct {
	Reply    string
	Phase    state.Phase
	Override OverrideReason
	Action   Action

	// Commerce
	Filters *catalog.Filters
	Items   []intent.ProposedItem

	// FraudCheck
	CaseID     string
	CaseStatus string

	// Wellness
	Mood   string
	Energy string
	Goals  string

	// ImprovGame
	PlayerName    string
	ScenarioIndex int
	ScenarioText  string
	AdvanceRound  bool
}

// GuardRail validates and corrects a proposal for one variant.
type GuardRail interface {
	// Check produces the authoritative decision for a turn.
	Check(ctx context.Context, st *state.SessionState, utterance string, proposal *intent.Proposal) (*Decision, error)

	// Variant returns the variant this guard serves.
	Variant() state.Variant
}
