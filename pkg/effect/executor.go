// Package effect executes the domain side effects a guard decision
// authorizes: catalog searches, order placement, case updates, and
// wellness log appends.
//
// Effects run strictly after the guard decision and before the reducer
// finalizes state. A failed effect is logged and the turn still returns
// a conversational reply; only the case-status write, the one
// compliance-relevant action, fails the turn after a retry.
package effect

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/averith/murmur/pkg/catalog"
	"github.com/averith/murmur/pkg/guard"
	"github.com/averith/murmur/pkg/state"
	"github.com/averith/murmur/pkg/store"
)

// Result carries what the effects produced for the reducer and the
// response assembler. BestEffortErr records a non-fatal failure.
type Result struct {
	SearchResults []catalog.Product
	Order         *store.Order
	LastOrder     *store.Order
	LastOrderOK   bool
	CaseUpdated   bool
	LogAppended   bool
	BestEffortErr error
}

// Executor runs guarded side effects against the catalog and stores.
type Executor struct {
	catalog  *catalog.Catalog
	orders   *store.OrdersJournal
	cases    *store.CaseFile
	wellness *store.WellnessLog
	logger   zerolog.Logger
}

// NewExecutor creates an effect executor.
func NewExecutor(c *catalog.Catalog, orders *store.OrdersJournal, cases *store.CaseFile, wellness *store.WellnessLog, logger zerolog.Logger) *Executor {
	return &Executor{
		catalog:  c,
		orders:   orders,
		cases:    cases,
		wellness: wellness,
		logger:   logger,
	}
}

// Execute runs the decision's action. Only the case update can fail the
// turn; every other failure is recorded and swallowed so the reply still
// reaches the user.
func (e *Executor) Execute(ctx context.Context, st *state.SessionState, decision *guard.Decision) (*Result, error) {
	result := &Result{}

	switch decision.Action {
	case guard.ActionSearch:
		filters := catalog.Filters{}
		if decision.Filters != nil {
			filters = *decision.Filters
		}
		result.SearchResults = e.catalog.Search(filters)

	case guard.ActionOrder:
		order := e.buildOrder(st, decision)
		if len(order.Items) == 0 {
			// Every line was dropped during resolution; nothing to persist.
			break
		}
		if err := e.orders.Append(order); err != nil {
			e.logger.Error().Err(err).Str("orderId", order.OrderID).Msg("Order persistence failed")
			result.BestEffortErr = err
			break
		}
		result.Order = &order

	case guard.ActionHistory:
		last, ok, err := e.orders.Last()
		if err != nil {
			e.logger.Error().Err(err).Msg("Order history read failed")
			result.BestEffortErr = err
			break
		}
		if ok {
			result.LastOrder = &last
			result.LastOrderOK = true
		}

	case guard.ActionCaseUpdate:
		if err := e.updateCaseWithRetry(decision.CaseID, decision.CaseStatus); err != nil {
			// Compliance-relevant write: surface instead of swallowing.
			return nil, fmt.Errorf("case status update failed: %w", err)
		}
		result.CaseUpdated = true

	case guard.ActionLogAppend:
		entryID, _ := gonanoid.New()
		entry := store.WellnessEntry{
			ID:        entryID,
			Date:      time.Now().UTC().Format("2006-01-02"),
			SessionID: st.SessionID,
			Mood:      decision.Mood,
			Energy:    decision.Energy,
			Goals:     decision.Goals,
		}
		if err := e.wellness.Append(entry); err != nil {
			e.logger.Error().Err(err).Msg("Wellness log append failed")
			result.BestEffortErr = err
			break
		}
		result.LogAppended = true
	}

	return result, nil
}

// buildOrder resolves decision items into priced order lines. Lines
// whose product id no longer resolves are dropped without aborting.
func (e *Executor) buildOrder(st *state.SessionState, decision *guard.Decision) store.Order {
	var items []store.OrderLine
	total := 0

	for _, item := range decision.Items {
		product, ok := e.catalog.Lookup(item.ProductID)
		if !ok {
			e.logger.Debug().Str("productId", item.ProductID).Msg("Dropping unresolved order line")
			continue
		}

		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		size := item.Size
		if size == "" {
			size = "N/A"
		}

		subtotal := product.Price * quantity
		total += subtotal

		items = append(items, store.OrderLine{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    quantity,
			Size:        size,
			Price:       product.Price,
			Subtotal:    subtotal,
			Image:       product.Image,
		})
	}

	return store.Order{
		OrderID:     NewOrderID(),
		Timestamp:   time.Now().UTC(),
		SessionID:   st.SessionID,
		Items:       items,
		TotalAmount: total,
		Currency:    "INR",
		Status:      "confirmed",
	}
}

// updateCaseWithRetry retries the snapshot write once before giving up.
func (e *Executor) updateCaseWithRetry(caseID, status string) error {
	err := e.cases.UpdateStatus(caseID, status)
	if err == nil {
		return nil
	}

	e.logger.Warn().Err(err).Str("caseId", caseID).Msg("Case update failed, retrying once")
	return e.cases.UpdateStatus(caseID, status)
}

// NewOrderID mints an order id in the ORD-XXXXXX format.
func NewOrderID() string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "ORD-" + strings.ToUpper(hex[:6])
}
