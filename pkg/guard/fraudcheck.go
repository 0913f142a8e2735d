package guard

import (
	"context"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/averith/murmur/pkg/intent"
	"github.com/averith/murmur/pkg/state"
	"github.com/averith/murmur/pkg/store"
)

const codeRetryReply = "I'm sorry, that code doesn't match our records. Please read out the verification code from your card statement, digit by digit."

// CaseLookup resolves a fraud case to its authoritative record.
type CaseLookup interface {
	Lookup(id string) (store.CaseRecord, bool, error)
}

// allowedCaseStatuses are the statuses a verified customer may set.
var allowedCaseStatuses = map[string]bool{
	"confirmed_fraud": true,
	"cleared":         true,
}

// FraudCheckGuard owns the unverified to verified transition. The check
// runs against the raw utterance and the code stored on the case record;
// whatever the resolver claimed about verification is discarded.
type FraudCheckGuard struct {
	cases  CaseLookup
	logger zerolog.Logger
}

// NewFraudCheckGuard creates a fraud-check guard over the case store.
func NewFraudCheckGuard(cases CaseLookup, logger zerolog.Logger) *FraudCheckGuard {
	return &FraudCheckGuard{cases: cases, logger: logger}
}

// Variant returns the variant this guard serves.
func (g *FraudCheckGuard) Variant() state.Variant {
	return state.VariantFraudCheck
}

// Check recomputes verification from ground truth. On a failed check the
// reply is hard-overridden to re-request the code and any proposed case
// change is blocked; this path never defers to the resolver.
func (g *FraudCheckGuard) Check(ctx context.Context, st *state.SessionState, utterance string, proposal *intent.Proposal) (*Decision, error) {
	decision := &Decision{
		Reply:    proposal.Reply,
		Phase:    st.Phase,
		Override: OverrideNone,
		Action:   ActionNone,
	}

	if st.Phase == state.PhaseUnverified {
		if !g.utteranceCarriesCode(st, utterance) {
			decision.Phase = state.PhaseUnverified
			decision.Reply = codeRetryReply
			decision.Override = OverrideSecurityFail
			g.logger.Info().
				Str("sessionId", st.SessionID).
				Msg("Verification failed, blocking case access")
			return decision, nil
		}
		decision.Phase = state.PhaseVerified
	}

	// Case changes are only reachable once verified.
	if decision.Phase == state.PhaseVerified && proposal.CaseStatus != "" {
		if allowedCaseStatuses[proposal.CaseStatus] && st.FraudCheck != nil && st.FraudCheck.CaseID != "" {
			decision.Action = ActionCaseUpdate
			decision.CaseID = st.FraudCheck.CaseID
			decision.CaseStatus = proposal.CaseStatus
		} else {
			g.logger.Debug().
				Str("proposed_status", proposal.CaseStatus).
				Msg("Ignoring unknown case status proposal")
		}
	}

	return decision, nil
}

// utteranceCarriesCode strips all whitespace from the utterance and
// checks for the case's verification code as a contiguous substring.
// Any failure to load the record fails closed.
func (g *FraudCheckGuard) utteranceCarriesCode(st *state.SessionState, utterance string) bool {
	if st.FraudCheck == nil || st.FraudCheck.CaseID == "" {
		return false
	}

	record, found, err := g.cases.Lookup(st.FraudCheck.CaseID)
	if err != nil {
		g.logger.Error().Err(err).Str("caseId", st.FraudCheck.CaseID).Msg("Case lookup failed, failing verification closed")
		return false
	}
	if !found || record.VerificationCode == "" {
		return false
	}

	stripped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, utterance)

	return strings.Contains(stripped, record.VerificationCode)
}
