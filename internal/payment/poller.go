package payment

import (
	"context"
	"errors"
	"time"

	"bankpay/internal/bank"
	"bankpay/internal/core"
	"bankpay/internal/match"
	"bankpay/internal/store/repositories"

	"github.com/rs/zerolog/log"
)

// Poller is the reconciliation loop for one payment session: on a fixed
// interval it asks the bank for recent transactions, runs the matcher, and
// attempts the pending -> paid transition. The Order Store's conditional
// update is the only arbiter; whichever caller wins it runs the side effects
// exactly once, no matter how many pollers race.
type Poller struct {
	orders   repositories.OrderStore
	carts    repositories.CartStore
	bank     TransactionLister
	notify   Notifier
	nav      Navigator
	interval time.Duration
	now      func() time.Time
}

func NewPoller(orders repositories.OrderStore, carts repositories.CartStore, lister TransactionLister, notify Notifier, nav Navigator, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Poller{
		orders:   orders,
		carts:    carts,
		bank:     lister,
		notify:   notify,
		nav:      nav,
		interval: interval,
		now:      time.Now,
	}
}

// Run polls until the order reaches a terminal state or ctx is cancelled.
// Bank failures leave the order pending until the next tick; store failures
// flip the order to error and stop the loop, since the store is the source of
// truth and nothing useful can happen without it.
func (p *Poller) Run(ctx context.Context, sess *Session) {
	t := time.NewTicker(p.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			status, _, err := p.CheckOnce(ctx, sess)
			switch {
			case err == nil && status.Terminal():
				sess.Stop()
				return
			case err == nil:
				// still pending, keep ticking
			case errors.Is(err, context.Canceled):
				return
			case errors.Is(err, bank.ErrUnavailable), errors.Is(err, bank.ErrAuthFailed):
				log.Warn().Err(err).Str("order_id", sess.Order.ID).Msg("poll skipped, bank unavailable")
			default:
				// Store fault: surface as the error state and stop. A later
				// status request re-derives from the store.
				log.Error().Err(err).Str("order_id", sess.Order.ID).Msg("poll failed")
				if _, markErr := p.orders.MarkError(ctx, sess.Order.ID); markErr != nil {
					log.Error().Err(markErr).Str("order_id", sess.Order.ID).Msg("mark error failed")
				}
				sess.Stop()
				return
			}
		}
	}
}

// CheckOnce runs a single reconciliation pass and returns the order's status
// after it. Idempotent under concurrent callers: losing the paid transition
// means another caller already ran the side effects.
func (p *Poller) CheckOnce(ctx context.Context, sess *Session) (core.PaymentStatus, *core.Transaction, error) {
	cur, err := p.orders.Get(ctx, sess.Order.ID)
	if err != nil {
		return core.PaymentError, nil, err
	}
	if cur.Status.Terminal() {
		return cur.Status, cur.PaidWith, nil
	}

	txs, err := p.bank.ListTransactions(ctx, cur.AccountNumber, sess.CreatedAt, p.now())
	if err != nil {
		return cur.Status, nil, err
	}

	tx := match.Match(*cur, txs)
	if tx == nil {
		return cur.Status, nil, nil
	}

	won, err := p.orders.MarkPaid(ctx, cur.ID, *tx)
	if err != nil {
		return cur.Status, nil, err
	}
	if won {
		p.settle(ctx, cur.ID, *tx)
	}
	return core.PaymentPaid, tx, nil
}

// settle fires the once-only downstream effects for the poller that won the
// paid transition.
func (p *Poller) settle(ctx context.Context, orderID string, tx core.Transaction) {
	if err := p.carts.Clear(ctx, orderID); err != nil {
		// The order is already paid; a stale cart is an inconvenience, not a
		// reason to fail the transition.
		log.Error().Err(err).Str("order_id", orderID).Msg("cart clear failed")
	}
	p.notify.PaymentReceived(orderID, tx)
	p.nav.ToOrderComplete(orderID)
	log.Info().Str("order_id", orderID).Str("ref_no", tx.RefNo).Msg("order marked paid")
}
