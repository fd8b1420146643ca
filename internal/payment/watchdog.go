package payment

import (
	"context"
	"time"

	"bankpay/internal/store/repositories"

	"github.com/rs/zerolog/log"
)

// Watchdog enforces the payment window. Remaining time is always derived from
// the session's server-recorded CreatedAt, so client clock drift cannot
// stretch or shrink the window.
type Watchdog struct {
	orders repositories.OrderStore
	notify Notifier
	nav    Navigator
	tick   time.Duration
	now    func() time.Time
}

func NewWatchdog(orders repositories.OrderStore, notify Notifier, nav Navigator) *Watchdog {
	return &Watchdog{
		orders: orders,
		notify: notify,
		nav:    nav,
		tick:   time.Second,
		now:    time.Now,
	}
}

// Run ticks until the window elapses or ctx is cancelled. When the window
// hits zero it attempts the pending -> expired transition; the conditional
// update never overrides paid, so a payment observed at the last second wins.
func (w *Watchdog) Run(ctx context.Context, sess *Session) {
	t := time.NewTicker(w.tick)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if sess.Remaining(w.now()) > 0 {
				continue
			}
			w.expire(ctx, sess)
			return
		}
	}
}

// expire fires the terminal expired transition at most once and always stops
// the session's poller.
func (w *Watchdog) expire(ctx context.Context, sess *Session) {
	won, err := w.orders.MarkExpired(ctx, sess.Order.ID)
	if err != nil {
		log.Error().Err(err).Str("order_id", sess.Order.ID).Msg("expire failed")
	}
	if won {
		w.notify.PaymentExpired(sess.Order.ID)
		w.nav.ToCheckout(sess.Order.ID)
		log.Info().Str("order_id", sess.Order.ID).Msg("order expired")
	}
	sess.Stop()
}
