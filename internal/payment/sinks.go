package payment

import (
	"bankpay/internal/core"

	"github.com/rs/zerolog/log"
)

// Notifier receives user-facing payment events. The service only guarantees
// at-most-once invocation per order; delivery is the implementation's problem.
type Notifier interface {
	PaymentReceived(orderID string, tx core.Transaction)
	PaymentExpired(orderID string)
}

// Navigator triggers client navigation after a terminal transition.
type Navigator interface {
	ToOrderComplete(orderID string)
	ToCheckout(orderID string)
}

// LogSink is the default Notifier/Navigator: it just logs. Real deployments
// plug a websocket or push gateway here.
type LogSink struct{}

func (LogSink) PaymentReceived(orderID string, tx core.Transaction) {
	log.Info().Str("order_id", orderID).Str("ref_no", tx.RefNo).
		Float64("amount", tx.CreditAmount).Msg("payment received")
}

func (LogSink) PaymentExpired(orderID string) {
	log.Info().Str("order_id", orderID).Msg("payment window expired")
}

func (LogSink) ToOrderComplete(orderID string) {
	log.Info().Str("order_id", orderID).Msg("navigate: order complete")
}

func (LogSink) ToCheckout(orderID string) {
	log.Info().Str("order_id", orderID).Msg("navigate: back to checkout")
}
