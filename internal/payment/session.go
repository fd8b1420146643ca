package payment

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"bankpay/internal/config"
	"bankpay/internal/core"
	"bankpay/internal/store/repositories"

	"github.com/rs/zerolog/log"
)

// TransactionLister is the slice of the bank client the payment pipeline
// needs. Satisfied by *bank.Client.
type TransactionLister interface {
	ListTransactions(ctx context.Context, account string, from, to time.Time) ([]core.Transaction, error)
}

// TransferInfo is everything the buyer needs to make the transfer by hand.
type TransferInfo struct {
	BankName      string `json:"bankName"`
	AccountNumber string `json:"accountNumber"`
	AccountName   string `json:"accountName"`
	Amount        int64  `json:"amount"`
	Description   string `json:"description"`
}

// QuickLink returns a VietQR quick-link URL for the transfer, the renderable
// form of the payload. Rendering the actual image is the client's job.
func (t TransferInfo) QuickLink(bankCode string) string {
	return fmt.Sprintf("https://img.vietqr.io/image/%s-%s-compact2.png?amount=%d&addInfo=%s&accountName=%s",
		bankCode, t.AccountNumber, t.Amount,
		url.QueryEscape(t.Description), url.QueryEscape(t.AccountName))
}

// Session is one open payment screen: the pending order plus its validity
// window and the two timer tasks watching it. CreatedAt always comes from the
// service clock, never from the client.
type Session struct {
	Order      core.Order
	CreatedAt  time.Time
	ValidUntil time.Time
	Transfer   TransferInfo

	stopOnce sync.Once
	stop     func()
}

// Remaining reports how much of the validity window is left at now. Never
// negative.
func (s *Session) Remaining(now time.Time) time.Duration {
	if r := s.ValidUntil.Sub(now); r > 0 {
		return r
	}
	return 0
}

// Stop cancels the session's poller and watchdog and releases it from the
// manager. Safe to call multiple times and from multiple goroutines.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		if s.stop != nil {
			s.stop()
		}
	})
}

// Manager owns payment sessions: it creates them against the Order Store,
// starts the per-session poller and watchdog, and garbage-collects once a
// terminal state is observed.
type Manager struct {
	cfg    config.PaymentCfg
	bank   config.BankCfg
	orders repositories.OrderStore
	poller *Poller
	dog    *Watchdog
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(cfg config.PaymentCfg, bankCfg config.BankCfg, orders repositories.OrderStore, poller *Poller, dog *Watchdog) *Manager {
	return &Manager{
		cfg:      cfg,
		bank:     bankCfg,
		orders:   orders,
		poller:   poller,
		dog:      dog,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Reference builds the free-text token embedded in the bank transfer so the
// matcher can later tie the credit back to the order.
func (m *Manager) Reference(orderID string) string {
	return m.cfg.ReferencePrefix + "-" + orderID
}

// CreateSession creates (or returns) the payment session for an order.
// Idempotent: re-requesting a session for an order already in a terminal
// state returns that state without starting timers, and re-requesting while a
// session is live returns the live session.
func (m *Manager) CreateSession(ctx context.Context, orderID string, amount int64) (*Session, error) {
	m.mu.Lock()
	if s, ok := m.sessions[orderID]; ok {
		m.mu.Unlock()
		return s, nil
	}
	m.mu.Unlock()

	now := m.now()
	stored, err := m.orders.CreatePending(ctx, core.Order{
		ID:            orderID,
		AccountNumber: m.bank.AccountNumber,
		AccountName:   m.bank.AccountName,
		Amount:        amount,
		Reference:     m.Reference(orderID),
		Status:        core.PaymentPending,
		CreatedAt:     now,
	})
	if err != nil {
		return nil, err
	}

	sess := &Session{
		Order:      *stored,
		CreatedAt:  stored.CreatedAt,
		ValidUntil: stored.CreatedAt.Add(time.Duration(m.cfg.WindowSeconds) * time.Second),
		Transfer: TransferInfo{
			BankName:      m.bank.BankName,
			AccountNumber: stored.AccountNumber,
			AccountName:   stored.AccountName,
			Amount:        stored.Amount,
			Description:   stored.Reference,
		},
	}
	if stored.Status.Terminal() {
		// Existing terminal order: hand back its state, no timers.
		return sess, nil
	}

	m.mu.Lock()
	if live, ok := m.sessions[orderID]; ok {
		// Lost the race with a concurrent create; reuse the live session.
		m.mu.Unlock()
		return live, nil
	}
	taskCtx, cancel := context.WithCancel(context.Background())
	sess.stop = func() {
		cancel()
		m.remove(orderID)
	}
	m.sessions[orderID] = sess
	m.mu.Unlock()

	go m.poller.Run(taskCtx, sess)
	go m.dog.Run(taskCtx, sess)

	log.Info().Str("order_id", orderID).Int64("amount", amount).
		Time("valid_until", sess.ValidUntil).Msg("payment session created")
	return sess, nil
}

// Session returns the live session for an order, if any.
func (m *Manager) Session(orderID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[orderID]
	return s, ok
}

// Status re-derives the order's current state from the Order Store.
func (m *Manager) Status(ctx context.Context, orderID string) (*core.Order, error) {
	return m.orders.Get(ctx, orderID)
}

// StopAll cancels every live session. Used at shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	live := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		live = append(live, s)
	}
	m.mu.Unlock()
	for _, s := range live {
		s.Stop()
	}
}

func (m *Manager) remove(orderID string) {
	m.mu.Lock()
	delete(m.sessions, orderID)
	m.mu.Unlock()
}
