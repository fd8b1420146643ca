package match

import (
	"math"
	"strings"

	"bankpay/internal/core"
)

// Match finds the bank transaction that settles the given order, or nil if
// none qualifies. Pure function; safe and cheap to recompute on every poll.
//
// A transaction qualifies when it is a credit, the order's reference token
// appears in its description or reference number (case-insensitive), and the
// credit amount is within sub-unit rounding tolerance of the expected amount.
// Orders with no expected amount (Amount == 0) skip the amount filter.
func Match(order core.Order, txs []core.Transaction) *core.Transaction {
	needle := strings.ToLower(strings.TrimSpace(order.Reference))
	if needle == "" {
		return nil
	}

	var candidates []core.Transaction
	for _, tx := range txs {
		if tx.CreditAmount <= 0 {
			continue // debit or own outgoing transfer
		}
		desc := strings.ToLower(strings.TrimSpace(tx.Description))
		refNo := strings.ToLower(strings.TrimSpace(tx.RefNo))
		if !strings.Contains(desc, needle) && !strings.Contains(refNo, needle) {
			continue
		}
		if order.Amount > 0 && math.Abs(tx.CreditAmount-float64(order.Amount)) >= 1 {
			continue
		}
		candidates = append(candidates, tx)
	}
	if len(candidates) == 0 {
		return nil
	}

	// Multiple candidates are rare; prefer the latest transaction, then the
	// lowest reference number so the pick stays deterministic.
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Date.After(best.Date) || (c.Date.Equal(best.Date) && c.RefNo < best.RefNo) {
			best = c
		}
	}
	return &best
}
