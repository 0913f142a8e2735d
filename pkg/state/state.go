package state

import (
	"encoding/json"
	"fmt"
	"time"
)

// Variant identifies one of the conversational agents.
type Variant string

const (
	VariantCommerce   Variant = "commerce"
	VariantFraudCheck Variant = "fraud_check"
	VariantWellness   Variant = "wellness"
	VariantImprov     Variant = "improv"
	VariantStory      Variant = "story"
)

// Phase is a variant-specific conversation stage.
type Phase string

const (
	// Commerce has a single browsing phase.
	PhaseBrowsing Phase = "browsing"

	// FraudCheck phases.
	PhaseUnverified Phase = "unverified"
	PhaseVerified   Phase = "verified"

	// Wellness has a single check-in phase; completeness is derived
	// from the mood/energy/goals fields, not from the phase.
	PhaseCheckin Phase = "checkin"

	// ImprovGame phases.
	PhaseIntro   Phase = "intro"
	PhasePlaying Phase = "playing"
	PhaseSummary Phase = "summary"
	PhaseEnded   Phase = "ended"

	// Story has a single narrating phase.
	PhaseNarrating Phase = "narrating"
)

// DefaultMaxRounds bounds the improv game length.
const DefaultMaxRounds = 3

// phaseOrder declares the allowed phase progression per variant.
// A phase may only move to one at the same or a later index.
var phaseOrder = map[Variant][]Phase{
	VariantCommerce:   {PhaseBrowsing},
	VariantFraudCheck: {PhaseUnverified, PhaseVerified},
	VariantWellness:   {PhaseCheckin},
	VariantImprov:     {PhaseIntro, PhasePlaying, PhaseSummary, PhaseEnded},
	VariantStory:      {PhaseNarrating},
}

// TurnRecord is one entry in the append-only conversation history.
type TurnRecord struct {
	Role    string `json:"role"` // "user" or "agent"
	Content string `json:"content"`
}

// CommerceState holds the shopping assistant's variant payload.
// LastResults is a point-in-time snapshot of the most recent search,
// kept so the guard can resolve spoken product references.
type CommerceState struct {
	LastResults []string `json:"last_results,omitempty"` // product ids
	LastOrderID string   `json:"last_order_id,omitempty"`
}

// FraudCheckState holds a reference to the case under verification.
// The authoritative verification code lives in the case store, never here.
type FraudCheckState struct {
	CaseID string `json:"case_id"`
}

// WellnessState accumulates the check-in fields across turns.
type WellnessState struct {
	Mood   string `json:"mood,omitempty"`
	Energy string `json:"energy,omitempty"`
	Goals  string `json:"goals,omitempty"`
	Date   string `json:"date,omitempty"` // set when the log entry is written
}

// Complete reports whether all check-in fields have been collected.
func (w *WellnessState) Complete() bool {
	if w == nil {
		return false
	}
	return w.Mood != "" && w.Energy != "" && w.Goals != ""
}

// ImprovState tracks game progress for the improv host.
type ImprovState struct {
	PlayerName      string `json:"player_name,omitempty"`
	Round           int    `json:"round"`
	MaxRounds       int    `json:"max_rounds"`
	CurrentScenario string `json:"current_scenario,omitempty"`
	UsedScenarios   []int  `json:"used_scenarios,omitempty"` // indices into the pool
}

// SessionState is the complete, serializable conversation state carried
// by the client between turns. Exactly one variant payload is populated.
type SessionState struct {
	SessionID string       `json:"session_id"`
	Variant   Variant      `json:"variant"`
	Phase     Phase        `json:"phase"`
	Turns     []TurnRecord `json:"history"`
	CreatedAt time.Time    `json:"created_at"`

	Commerce   *CommerceState   `json:"commerce,omitempty"`
	FraudCheck *FraudCheckState `json:"fraud_check,omitempty"`
	Wellness   *WellnessState   `json:"wellness,omitempty"`
	Improv     *ImprovState     `json:"improv,omitempty"`
}

// New creates a fresh session state in the variant's initial phase.
func New(variant Variant, sessionID string) *SessionState {
	st := &SessionState{
		SessionID: sessionID,
		Variant:   variant,
		Phase:     InitialPhase(variant),
		Turns:     []TurnRecord{},
		CreatedAt: time.Now().UTC(),
	}

	switch variant {
	case VariantCommerce:
		st.Commerce = &CommerceState{}
	case VariantFraudCheck:
		st.FraudCheck = &FraudCheckState{}
	case VariantWellness:
		st.Wellness = &WellnessState{}
	case VariantImprov:
		st.Improv = &ImprovState{MaxRounds: DefaultMaxRounds}
	}

	return st
}

// Parse decodes and normalizes a client-supplied state blob. Unknown
// variants are rejected; missing payloads and counters are normalized to
// safe defaults rather than trusted as-is.
func Parse(raw []byte) (*SessionState, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty state")
	}

	var st SessionState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("failed to parse state: %w", err)
	}

	if err := st.Normalize(); err != nil {
		return nil, err
	}

	return &st, nil
}

// Normalize validates the variant and phase and fills variant payload
// defaults. An unknown improv phase falls back to playing, matching the
// forgiving behavior the host needs mid-game; other variants reject
// unknown phases outright.
func (s *SessionState) Normalize() error {
	order, ok := phaseOrder[s.Variant]
	if !ok {
		return fmt.Errorf("unknown variant: %q", s.Variant)
	}

	if s.Phase == "" {
		s.Phase = order[0]
	}
	if PhaseIndex(s.Variant, s.Phase) < 0 {
		if s.Variant == VariantImprov {
			s.Phase = PhasePlaying
		} else {
			return fmt.Errorf("unknown phase %q for variant %q", s.Phase, s.Variant)
		}
	}

	if s.Turns == nil {
		s.Turns = []TurnRecord{}
	}

	switch s.Variant {
	case VariantCommerce:
		if s.Commerce == nil {
			s.Commerce = &CommerceState{}
		}
	case VariantFraudCheck:
		if s.FraudCheck == nil {
			s.FraudCheck = &FraudCheckState{}
		}
	case VariantWellness:
		if s.Wellness == nil {
			s.Wellness = &WellnessState{}
		}
	case VariantImprov:
		if s.Improv == nil {
			s.Improv = &ImprovState{}
		}
		if s.Improv.MaxRounds <= 0 {
			s.Improv.MaxRounds = DefaultMaxRounds
		}
		if s.Improv.Round < 0 {
			s.Improv.Round = 0
		}
	}

	return nil
}

// Clone returns a deep copy of the state. The reducer works on a copy so
// a failed turn never leaves a half-mutated state behind.
func (s *SessionState) Clone() *SessionState {
	cp := *s

	cp.Turns = make([]TurnRecord, len(s.Turns))
	copy(cp.Turns, s.Turns)

	if s.Commerce != nil {
		c := *s.Commerce
		c.LastResults = append([]string(nil), s.Commerce.LastResults...)
		cp.Commerce = &c
	}
	if s.FraudCheck != nil {
		f := *s.FraudCheck
		cp.FraudCheck = &f
	}
	if s.Wellness != nil {
		w := *s.Wellness
		cp.Wellness = &w
	}
	if s.Improv != nil {
		i := *s.Improv
		i.UsedScenarios = append([]int(nil), s.Improv.UsedScenarios...)
		cp.Improv = &i
	}

	return &cp
}

// InitialPhase returns the first phase of the variant's order.
func InitialPhase(variant Variant) Phase {
	order := phaseOrder[variant]
	if len(order) == 0 {
		return ""
	}
	return order[0]
}

// TerminalPhase returns the last phase of the variant's order.
func TerminalPhase(variant Variant) Phase {
	order := phaseOrder[variant]
	if len(order) == 0 {
		return ""
	}
	return order[len(order)-1]
}

// PhaseIndex returns the position of phase in the variant's order, or -1
// if the phase does not belong to the variant.
func PhaseIndex(variant Variant, phase Phase) int {
	for i, p := range phaseOrder[variant] {
		if p == phase {
			return i
		}
	}
	return -1
}

// ValidVariant reports whether v names a known variant.
func ValidVariant(v Variant) bool {
	_, ok := phaseOrder[v]
	return ok
}

// Variants lists all known variants in a stable order.
func Variants() []Variant {
	return []Variant{
		VariantCommerce,
		VariantFraudCheck,
		VariantWellness,
		VariantImprov,
		VariantStory,
	}
}
