package httpx

import (
	"encoding/json"
	"net/http"

	"bankpay/internal/config"
	"bankpay/internal/http/handlers"
	middlewarex "bankpay/internal/http/middleware"
	"bankpay/internal/payment"
	"bankpay/internal/store/repositories"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// RouterDependencies holds everything the HTTP surface needs.
type RouterDependencies struct {
	Config  config.Cfg
	Manager *payment.Manager
	Bank    handlers.BankClient
	Orders  repositories.OrderStore
}

func NewRouter(deps RouterDependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	// Health check (public)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	})

	// Everything else requires the shared secret.
	r.Group(func(r chi.Router) {
		r.Use(middlewarex.APIKeyAuth(deps.Config.Sec.APIKey))

		r.Route("/payments", func(r chi.Router) {
			r.Post("/initiate", handlers.InitiatePayment(deps.Manager, deps.Config.Bank))
			r.Get("/status/{orderID}", handlers.PaymentStatus(deps.Manager))
		})

		r.Route("/bank", func(r chi.Router) {
			r.Get("/balance", handlers.BankBalance(deps.Bank, deps.Config.Bank))
			r.Post("/transactions", handlers.BankTransactions(deps.Bank, deps.Config.Bank))
			r.Post("/check-payment", handlers.CheckPayment(deps.Bank, deps.Orders, deps.Config.Bank))
		})
	})

	return r
}
