package payment

import (
	"context"
	"sync"
	"time"

	"bankpay/internal/core"
	"bankpay/internal/store/repositories"
)

// fakeOrders is an in-memory OrderStore whose conditional transitions mimic
// the atomic row updates of the real store.
type fakeOrders struct {
	mu     sync.Mutex
	orders map[string]*core.Order
	getErr error
}

func newFakeOrders(seed ...core.Order) *fakeOrders {
	f := &fakeOrders{orders: make(map[string]*core.Order)}
	for _, o := range seed {
		cp := o
		f.orders[o.ID] = &cp
	}
	return f
}

func (f *fakeOrders) Get(ctx context.Context, id string) (*core.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	o, ok := f.orders[id]
	if !ok {
		return nil, repositories.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrders) CreatePending(ctx context.Context, o core.Order) (*core.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.orders[o.ID]; ok {
		cp := *existing
		return &cp, nil
	}
	cp := o
	f.orders[o.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeOrders) MarkPaid(ctx context.Context, id string, tx core.Transaction) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return false, repositories.ErrOrderNotFound
	}
	if o.Status != core.PaymentPending && o.Status != core.PaymentError {
		return false, nil
	}
	o.Status = core.PaymentPaid
	cp := tx
	o.PaidWith = &cp
	return true, nil
}

func (f *fakeOrders) MarkExpired(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return false, repositories.ErrOrderNotFound
	}
	if o.Status != core.PaymentPending {
		return false, nil
	}
	o.Status = core.PaymentExpired
	return true, nil
}

func (f *fakeOrders) MarkError(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return false, repositories.ErrOrderNotFound
	}
	if o.Status != core.PaymentPending {
		return false, nil
	}
	o.Status = core.PaymentError
	return true, nil
}

func (f *fakeOrders) status(id string) core.PaymentStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.orders[id]; ok {
		return o.Status
	}
	return ""
}

type fakeCarts struct {
	mu      sync.Mutex
	cleared []string
	err     error
}

func (f *fakeCarts) Clear(ctx context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.cleared = append(f.cleared, orderID)
	return nil
}

func (f *fakeCarts) clearedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cleared)
}

type fakeBank struct {
	mu    sync.Mutex
	txs   []core.Transaction
	err   error
	calls int
}

func (f *fakeBank) ListTransactions(ctx context.Context, account string, from, to time.Time) ([]core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.txs, nil
}

func (f *fakeBank) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// recordSink counts every Notifier/Navigator invocation.
type recordSink struct {
	mu       sync.Mutex
	received []string
	expired  []string
	complete []string
	checkout []string
}

func (s *recordSink) PaymentReceived(orderID string, tx core.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = append(s.received, orderID)
}

func (s *recordSink) PaymentExpired(orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expired = append(s.expired, orderID)
}

func (s *recordSink) ToOrderComplete(orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.complete = append(s.complete, orderID)
}

func (s *recordSink) ToCheckout(orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkout = append(s.checkout, orderID)
}

func (s *recordSink) counts() (received, expired, complete, checkout int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.received), len(s.expired), len(s.complete), len(s.checkout)
}
