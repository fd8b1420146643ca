package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"bankpay/internal/bank"
	"bankpay/internal/config"
	"bankpay/internal/core"
	"bankpay/internal/match"
	"bankpay/internal/store/repositories"

	"github.com/rs/zerolog/log"
)

// BankClient is the slice of *bank.Client the diagnostic endpoints need.
type BankClient interface {
	Balance(ctx context.Context, account string) (float64, error)
	ListTransactions(ctx context.Context, account string, from, to time.Time) ([]core.Transaction, error)
}

// writeBankError maps bank failures to a degraded 503; internal bank detail
// never reaches the caller verbatim.
func writeBankError(w http.ResponseWriter, err error) {
	if errors.Is(err, bank.ErrAuthFailed) || errors.Is(err, bank.ErrUnavailable) {
		http.Error(w, "payment service unavailable", http.StatusServiceUnavailable)
		return
	}
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// BankBalance is a diagnostic passthrough to the bank session client.
func BankBalance(client BankClient, cfg config.BankCfg) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		balance, err := client.Balance(r.Context(), cfg.AccountNumber)
		if err != nil {
			log.Warn().Err(err).Msg("balance check failed")
			writeBankError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"accountNumber": cfg.AccountNumber,
			"balance":       balance,
		})
	}
}

type listTxReq struct {
	AccountNumber string `json:"accountNumber"`
	FromDate      string `json:"fromDate"` // dd/mm/yyyy
	ToDate        string `json:"toDate"`   // dd/mm/yyyy
}

// BankTransactions is a diagnostic passthrough listing ledger rows in a date
// window.
func BankTransactions(client BankClient, cfg config.BankCfg) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in listTxReq
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		account := in.AccountNumber
		if account == "" {
			account = cfg.AccountNumber
		}
		from, err := time.Parse(bank.DateLayout, in.FromDate)
		if err != nil {
			http.Error(w, "fromDate must be dd/mm/yyyy", http.StatusBadRequest)
			return
		}
		to, err := time.Parse(bank.DateLayout, in.ToDate)
		if err != nil {
			http.Error(w, "toDate must be dd/mm/yyyy", http.StatusBadRequest)
			return
		}

		txs, err := client.ListTransactions(r.Context(), account, from, to)
		if err != nil {
			log.Warn().Err(err).Msg("transaction list failed")
			writeBankError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"transactions": txs})
	}
}

type checkPaymentReq struct {
	OrderID       string `json:"orderId"`
	AccountNumber string `json:"accountNumber"`
	Amount        int64  `json:"amount"`
	FromDate      string `json:"fromDate"` // dd/mm/yyyy, defaults to the order's creation day
}

type checkPaymentResp struct {
	Paid        bool      `json:"paid"`
	Transaction *statusTx `json:"transaction,omitempty"`
}

// CheckPayment runs the matcher directly against live bank transactions.
// Diagnostic only: it never transitions the order.
func CheckPayment(client BankClient, orders repositories.OrderStore, cfg config.BankCfg) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in checkPaymentReq
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if in.OrderID == "" {
			http.Error(w, "missing orderId", http.StatusBadRequest)
			return
		}

		o, err := orders.Get(r.Context(), in.OrderID)
		if errors.Is(err, repositories.ErrOrderNotFound) {
			http.Error(w, "order not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		account := in.AccountNumber
		if account == "" {
			account = o.AccountNumber
		}
		if account == "" {
			account = cfg.AccountNumber
		}
		from := o.CreatedAt
		if in.FromDate != "" {
			if from, err = time.Parse(bank.DateLayout, in.FromDate); err != nil {
				http.Error(w, "fromDate must be dd/mm/yyyy", http.StatusBadRequest)
				return
			}
		}

		txs, err := client.ListTransactions(r.Context(), account, from, time.Now())
		if err != nil {
			log.Warn().Err(err).Str("order_id", in.OrderID).Msg("check-payment list failed")
			writeBankError(w, err)
			return
		}

		probe := *o
		if in.Amount > 0 {
			probe.Amount = in.Amount
		}
		out := checkPaymentResp{}
		if tx := match.Match(probe, txs); tx != nil {
			out.Paid = true
			out.Transaction = &statusTx{
				ID:          tx.RefNo,
				Amount:      tx.CreditAmount,
				Description: tx.Description,
				Date:        tx.Date.Format(bank.DateLayout),
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}
