package repositories

import (
	"context"
	"errors"

	"bankpay/internal/core"
)

// ErrOrderNotFound is returned when the order id is unknown to the store.
var ErrOrderNotFound = errors.New("order not found")

// OrderStore defines the contract for order data access. It is the single
// source of truth for payment state: the conditional transitions below are
// the only synchronization primitive between concurrent pollers, watchdogs
// and server instances.
type OrderStore interface {
	Get(ctx context.Context, id string) (*core.Order, error)

	// CreatePending inserts the order as pending if it does not exist and
	// returns the stored row either way, so session creation is idempotent.
	CreatePending(ctx context.Context, o core.Order) (*core.Order, error)

	// MarkPaid transitions the order to paid and records the matched
	// transaction, only if the order is not already terminal. Returns true
	// for the one caller that won the transition.
	MarkPaid(ctx context.Context, id string, tx core.Transaction) (bool, error)

	// MarkExpired transitions pending -> expired. Never overrides paid.
	MarkExpired(ctx context.Context, id string) (bool, error)

	// MarkError transitions pending -> error. Error is not terminal; a later
	// poll may still settle the order.
	MarkError(ctx context.Context, id string) (bool, error)
}

// CartStore clears a buyer's cart once the owning order is paid.
type CartStore interface {
	Clear(ctx context.Context, orderID string) error
}
