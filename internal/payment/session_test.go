package payment

import (
	"context"
	"strings"
	"testing"
	"time"

	"bankpay/internal/config"
	"bankpay/internal/core"
)

func testManager(orders *fakeOrders) *Manager {
	cfg := config.PaymentCfg{WindowSeconds: 600, PollInterval: time.Hour, ReferencePrefix: "MBPAY"}
	bankCfg := config.BankCfg{
		BankName:      "MBBank",
		BankCode:      "MB",
		AccountNumber: "0123456789",
		AccountName:   "SHOP JSC",
	}
	sink := &recordSink{}
	poller := NewPoller(orders, &fakeCarts{}, &fakeBank{}, sink, sink, time.Hour)
	dog := NewWatchdog(orders, sink, sink)
	dog.tick = time.Hour
	return NewManager(cfg, bankCfg, orders, poller, dog)
}

func TestCreateSessionUsesServerClock(t *testing.T) {
	orders := newFakeOrders()
	m := testManager(orders)
	fixed := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	sess, err := m.CreateSession(context.Background(), "ORD-1", 150000)
	if err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}
	defer sess.Stop()

	if !sess.CreatedAt.Equal(fixed) {
		t.Fatalf("CreatedAt = %v, want the service clock %v", sess.CreatedAt, fixed)
	}
	if want := fixed.Add(600 * time.Second); !sess.ValidUntil.Equal(want) {
		t.Fatalf("ValidUntil = %v, want %v", sess.ValidUntil, want)
	}
}

func TestCreateSessionTransferPayload(t *testing.T) {
	orders := newFakeOrders()
	m := testManager(orders)

	sess, err := m.CreateSession(context.Background(), "ORD123", 150000)
	if err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}
	defer sess.Stop()

	tr := sess.Transfer
	if tr.BankName != "MBBank" || tr.AccountNumber != "0123456789" || tr.AccountName != "SHOP JSC" {
		t.Fatalf("unexpected destination in payload: %+v", tr)
	}
	if tr.Amount != 150000 {
		t.Fatalf("payload amount = %d, want 150000", tr.Amount)
	}
	if tr.Description != "MBPAY-ORD123" {
		t.Fatalf("payload reference = %q, want MBPAY-ORD123", tr.Description)
	}
	link := tr.QuickLink("MB")
	if !strings.Contains(link, "amount=150000") || !strings.Contains(link, "MBPAY-ORD123") {
		t.Fatalf("quick link missing amount or reference: %s", link)
	}
	if !strings.HasPrefix(link, "https://img.vietqr.io/image/MB-0123456789") {
		t.Fatalf("quick link has wrong account path: %s", link)
	}
}

func TestCreateSessionIdempotentWhileLive(t *testing.T) {
	orders := newFakeOrders()
	m := testManager(orders)

	a, err := m.CreateSession(context.Background(), "ORD-1", 100)
	if err != nil {
		t.Fatalf("first CreateSession: %v", err)
	}
	defer a.Stop()
	b, err := m.CreateSession(context.Background(), "ORD-1", 100)
	if err != nil {
		t.Fatalf("second CreateSession: %v", err)
	}
	if a != b {
		t.Fatal("re-requesting a live session must return the same session")
	}
}

func TestCreateSessionReturnsTerminalState(t *testing.T) {
	paid := pendingOrder("ORD-1", 100)
	paid.Status = core.PaymentPaid
	orders := newFakeOrders(paid)
	m := testManager(orders)

	sess, err := m.CreateSession(context.Background(), "ORD-1", 100)
	if err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}
	if sess.Order.Status != core.PaymentPaid {
		t.Fatalf("session status = %s, want the existing paid state", sess.Order.Status)
	}
	if _, live := m.Session("ORD-1"); live {
		t.Fatal("terminal order must not get a live session with timers")
	}
	if got := orders.status("ORD-1"); got != core.PaymentPaid {
		t.Fatalf("stored status = %s, want paid", got)
	}
}

func TestSessionStopRemovesFromManager(t *testing.T) {
	orders := newFakeOrders()
	m := testManager(orders)

	sess, err := m.CreateSession(context.Background(), "ORD-1", 100)
	if err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}
	if _, ok := m.Session("ORD-1"); !ok {
		t.Fatal("session should be registered while live")
	}
	sess.Stop()
	sess.Stop() // second call is a no-op
	if _, ok := m.Session("ORD-1"); ok {
		t.Fatal("stopped session should be garbage-collected")
	}
}

func TestStopAllCancelsEverySession(t *testing.T) {
	orders := newFakeOrders()
	m := testManager(orders)

	for _, id := range []string{"ORD-1", "ORD-2", "ORD-3"} {
		if _, err := m.CreateSession(context.Background(), id, 100); err != nil {
			t.Fatalf("CreateSession(%s): %v", id, err)
		}
	}
	m.StopAll()
	for _, id := range []string{"ORD-1", "ORD-2", "ORD-3"} {
		if _, ok := m.Session(id); ok {
			t.Fatalf("session %s survived StopAll", id)
		}
	}
}
