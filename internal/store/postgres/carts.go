package postgres

import (
	"context"

	"bankpay/internal/store/repositories"
)

var _ repositories.CartStore = (*Repo)(nil)

// Clear removes the cart items behind a paid order. Runs once, from the
// poller that won the paid transition.
func (r *Repo) Clear(ctx context.Context, orderID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE order_id=$1`, orderID)
	return err
}
