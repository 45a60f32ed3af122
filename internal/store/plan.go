package store

import "lapakponsel/backend/internal/domain"

// PlanStockDeltas folds the old and desired line sets of a transaction edit
// into one signed stock adjustment per product: every old line credits its
// quantity back, every desired line debits its quantity. A product kept
// across the edit therefore nets out to a single delta (qty 5 -> 3 yields
// +2) instead of a separate credit and debit. The result is a pure plan;
// callers validate feasibility against current stock before applying any of
// it.
func PlanStockDeltas(existing []domain.LineItem, desired []domain.SaleItemInput) map[string]int {
	deltas := make(map[string]int, len(existing)+len(desired))
	for _, line := range existing {
		deltas[line.ProductID] += line.Qty
	}
	for _, item := range desired {
		deltas[item.ProductID] -= item.Qty
	}
	for productID, delta := range deltas {
		if delta == 0 {
			delete(deltas, productID)
		}
	}
	return deltas
}
