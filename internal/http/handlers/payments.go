package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"bankpay/internal/bank"
	"bankpay/internal/config"
	"bankpay/internal/core"
	"bankpay/internal/payment"
	"bankpay/internal/store/repositories"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type initiateReq struct {
	OrderID     string `json:"orderId"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

type initiateResp struct {
	Success     bool                 `json:"success"`
	Status      string               `json:"status"`
	PaymentInfo payment.TransferInfo `json:"paymentInfo"`
	QRLink      string               `json:"qrLink"`
	ExpiresAt   string               `json:"expiresAt,omitempty"`
}

// InitiatePayment creates a payment session and returns the transfer payload
// the buyer needs, plus its renderable QR quick-link.
func InitiatePayment(mgr *payment.Manager, cfg config.BankCfg) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in initiateReq
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if in.OrderID == "" || in.Amount < 0 {
			http.Error(w, "missing orderId or negative amount", http.StatusBadRequest)
			return
		}

		sess, err := mgr.CreateSession(r.Context(), in.OrderID, in.Amount)
		if err != nil {
			log.Error().Err(err).Str("order_id", in.OrderID).Msg("create session failed")
			http.Error(w, "failed to create payment session", http.StatusInternalServerError)
			return
		}

		out := initiateResp{
			Success:     true,
			Status:      string(sess.Order.Status),
			PaymentInfo: sess.Transfer,
			QRLink:      sess.Transfer.QuickLink(cfg.BankCode),
		}
		if !sess.Order.Status.Terminal() {
			out.ExpiresAt = sess.ValidUntil.UTC().Format(time.RFC3339)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}

type statusTx struct {
	ID          string  `json:"id"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
}

type statusResp struct {
	Paid        bool      `json:"paid"`
	Expired     bool      `json:"expired"`
	Status      string    `json:"status"`
	Transaction *statusTx `json:"transaction,omitempty"`
}

// PaymentStatus reports the order's current payment state, re-derived from
// the Order Store on every request.
func PaymentStatus(mgr *payment.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID := chi.URLParam(r, "orderID")
		o, err := mgr.Status(r.Context(), orderID)
		if errors.Is(err, repositories.ErrOrderNotFound) {
			http.Error(w, "order not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		out := statusResp{
			Paid:    o.Status == core.PaymentPaid,
			Expired: o.Status == core.PaymentExpired,
			Status:  string(o.Status),
		}
		if o.PaidWith != nil {
			out.Transaction = &statusTx{
				ID:          o.PaidWith.RefNo,
				Amount:      o.PaidWith.CreditAmount,
				Description: o.PaidWith.Description,
				Date:        o.PaidWith.Date.Format(bank.DateLayout),
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}
