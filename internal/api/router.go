// internal/api/router.go
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"sparkwallet/internal/api/handler"
)

// NewRouter sets up and returns a new HTTP router.
func NewRouter(
	walletHandler *handler.WalletHandler,
	membershipHandler *handler.MembershipHandler,
	billingHandler *handler.BillingHandler,
	adminHandler *handler.AdminHandler,
	webhookHandler *handler.WebhookHandler,
	logger *logrus.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(handler.DefaultTimeout))

	// Health check and metrics endpoints
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// User-facing wallet, entitlement, membership and billing routes
	r.Route("/users/{userID}", func(r chi.Router) {
		r.Get("/wallet", walletHandler.GetBalance)
		r.Get("/wallet/transactions", walletHandler.GetTransactionHistory)
		r.Post("/wallet/spend", walletHandler.Spend)
		r.Get("/entitlements/{action}", walletHandler.GetEntitlement)
		r.Get("/membership", membershipHandler.GetMembership)
		r.Get("/billing/history", billingHandler.GetHistory)
	})

	// Privileged support path; sits behind the admin console's auth proxy
	r.Post("/admin/users/{userID}/wallet/adjust", adminHandler.Adjust)

	// Provider callbacks
	r.Post("/webhooks/payment", webhookHandler.HandlePayment)
	r.Post("/webhooks/subscription", webhookHandler.HandleSubscription)

	return r
}
