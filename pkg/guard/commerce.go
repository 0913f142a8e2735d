package guard

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/averith/murmur/pkg/catalog"
	"github.com/averith/murmur/pkg/intent"
	"github.com/averith/murmur/pkg/state"
)

const orderClarification = "I couldn't match that to anything in our catalog. Could you tell me the product name or pick one from the results I read out?"

// CommerceGuard gates the shopping assistant's search, order, and
// history intents. Ordering requires every referenced product to resolve
// against the catalog or the last search context.
type CommerceGuard struct {
	catalog *catalog.Catalog
	logger  zerolog.Logger
}

// NewCommerceGuard creates a commerce guard over the catalog.
func NewCommerceGuard(c *catalog.Catalog, logger zerolog.Logger) *CommerceGuard {
	return &CommerceGuard{catalog: c, logger: logger}
}

// Variant returns the variant this guard serves.
func (g *CommerceGuard) Variant() state.Variant {
	return state.VariantCommerce
}

// Check validates the proposed intent. There is no phase machinery here;
// commerce stays in browsing forever.
func (g *CommerceGuard) Check(ctx context.Context, st *state.SessionState, utterance string, proposal *intent.Proposal) (*Decision, error) {
	decision := &Decision{
		Reply:    proposal.Reply,
		Phase:    state.PhaseBrowsing,
		Override: OverrideNone,
		Action:   ActionNone,
	}

	switch proposal.Intent {
	case intent.IntentSearch:
		decision.Action = ActionSearch
		if proposal.Filters != nil {
			decision.Filters = proposal.Filters
		} else {
			decision.Filters = &catalog.Filters{}
		}

	case intent.IntentOrder:
		resolved := g.resolveItems(st, proposal.Items)
		if len(resolved) == 0 {
			// Nothing the model asked for exists; ask instead of ordering.
			decision.Override = OverrideInvalidReference
			decision.Reply = orderClarification
			g.logger.Info().
				Int("requested_items", len(proposal.Items)).
				Msg("Order suppressed: no referenced product resolved")
			break
		}
		decision.Action = ActionOrder
		decision.Items = resolved

	case intent.IntentHistory:
		decision.Action = ActionHistory
	}

	return decision, nil
}

// resolveItems keeps the order lines whose product id exists in the
// catalog or appeared in the last search results.
func (g *CommerceGuard) resolveItems(st *state.SessionState, items []intent.ProposedItem) []intent.ProposedItem {
	var lastResults []string
	if st.Commerce != nil {
		lastResults = st.Commerce.LastResults
	}

	inLastResults := func(id string) bool {
		for _, r := range lastResults {
			if r == id {
				return true
			}
		}
		return false
	}

	var resolved []intent.ProposedItem
	for _, item := range items {
		if item.ProductID == "" {
			continue
		}
		if _, ok := g.catalog.Lookup(item.ProductID); !ok && !inLastResults(item.ProductID) {
			continue
		}
		if item.Quantity <= 0 {
			item.Quantity = 1
		}
		resolved = append(resolved, item)
	}

	return resolved
}
