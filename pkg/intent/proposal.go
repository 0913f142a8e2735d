package intent

import (
	"encoding/json"
	"strings"

	"github.com/averith/murmur/pkg/catalog"
	"github.com/averith/murmur/pkg/state"
)

// Intent names the action a proposal requests. Only the guard decides
// whether the action actually runs.
const (
	IntentNone    = "none"
	IntentSearch  = "search"
	IntentOrder   = "order"
	IntentHistory = "history"
)

// ProposedItem is one order line the model asked for.
type ProposedItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity,omitempty"`
	Size      string `json:"size,omitempty"`
}

// Proposal is the resolver's untrusted suggestion for a turn: reply
// text, a phase, field deltas, and a requested action. It is never
// persisted; the guard reads it, corrects it, and discards it.
type Proposal struct {
	Reply     string `json:"reply"`
	NextPhase string `json:"next_phase,omitempty"`

	// Commerce
	Intent  string           `json:"intent,omitempty"`
	Filters *catalog.Filters `json:"filters,omitempty"`
	Items   []ProposedItem   `json:"items,omitempty"`

	// FraudCheck. Verified is the model's self-reported claim; the
	// guard always discards it and recomputes from the case record.
	Verified   *bool  `json:"verified,omitempty"`
	CaseStatus string `json:"case_status,omitempty"`

	// Wellness
	Mood   string `json:"mood,omitempty"`
	Energy string `json:"energy,omitempty"`
	Goals  string `json:"goals,omitempty"`

	// ImprovGame
	PlayerName   string `json:"player_name,omitempty"`
	NextScenario *int   `json:"next_scenario,omitempty"`

	// Fallback marks a proposal substituted after a total parse failure.
	Fallback bool `json:"-"`
}

const fallbackReply = "Sorry, I didn't quite catch that. Could you say it again?"

// DefaultProposal returns the safe proposal used when the model's output
// cannot be parsed: an apologetic reply and no state change.
func DefaultProposal(current state.Phase) *Proposal {
	return &Proposal{
		Reply:     fallbackReply,
		NextPhase: string(current),
		Intent:    IntentNone,
		Fallback:  true,
	}
}

// ParseProposal decodes raw model output for the given variant. The
// chain is: direct parse, then the first balanced {...} span, then the
// default proposal. It never returns an error for malformed text.
func ParseProposal(variant state.Variant, currentPhase state.Phase, raw string) *Proposal {
	// The story variant speaks free text; the whole output is the reply.
	if variant == state.VariantStory {
		reply := strings.TrimSpace(raw)
		if reply == "" {
			return DefaultProposal(currentPhase)
		}
		return &Proposal{Reply: reply, NextPhase: string(state.PhaseNarrating)}
	}

	trimmed := strings.TrimSpace(raw)

	if p := tryParse(variant, trimmed); p != nil {
		return p
	}

	if span, ok := extractJSONObject(trimmed); ok {
		if p := tryParse(variant, span); p != nil {
			return p
		}
	}

	return DefaultProposal(currentPhase)
}

// tryParse decodes and schema-validates a candidate JSON document.
func tryParse(variant state.Variant, candidate string) *Proposal {
	if candidate == "" || !strings.HasPrefix(candidate, "{") {
		return nil
	}

	if !validateProposal(variant, candidate) {
		return nil
	}

	var p Proposal
	if err := json.Unmarshal([]byte(candidate), &p); err != nil {
		return nil
	}
	if p.Reply == "" {
		return nil
	}

	return &p
}

// extractJSONObject finds the first balanced top-level {...} span in s,
// tracking string literals so braces inside quoted text don't count.
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if escaped {
			escaped = false
			continue
		}

		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}

	return "", false
}
