package core

import "time"

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentExpired PaymentStatus = "expired"
	PaymentError   PaymentStatus = "error"
)

// Terminal reports whether a status can never change again. Once an order is
// paid or expired no caller may observe it as pending.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentPaid || s == PaymentExpired
}

// Order is a pending payment obligation. Amount is in the smallest currency
// unit; 0 means the order carries no expected amount and the matcher skips
// the amount filter.
type Order struct {
	ID            string
	AccountNumber string
	AccountName   string
	Amount        int64
	Reference     string
	Status        PaymentStatus
	CreatedAt     time.Time

	// PaidWith is the bank transaction that settled the order, set once the
	// status reaches paid.
	PaidWith *Transaction
}

// Transaction is one row of the bank's ledger as the bank reports it.
// Read-only to this service; never persisted beyond the current poll except
// for the single matched row recorded on the order.
type Transaction struct {
	RefNo        string    `json:"refNo"`
	Description  string    `json:"description"`
	CreditAmount float64   `json:"creditAmount"`
	DebitAmount  float64   `json:"debitAmount"`
	Date         time.Time `json:"date"`
}
