package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/bala007/stripe-connect-rocketrides/internal/onboarding"
	"github.com/bala007/stripe-connect-rocketrides/internal/repository"
	"github.com/bala007/stripe-connect-rocketrides/internal/settlement"
)

// NewRouter creates the Chi router with all API routes mounted.
func NewRouter(
	providerRepo *repository.ProviderRepo,
	txnRepo *repository.TransactionRepo,
	payoutRepo *repository.PayoutRepo,
	orch *onboarding.Orchestrator,
	engine *settlement.Engine,
	log *zap.Logger,
) http.Handler {
	h := &Handlers{
		providerRepo: providerRepo,
		txnRepo:      txnRepo,
		payoutRepo:   payoutRepo,
		orch:         orch,
		engine:       engine,
		log:          log,
	}

	r := chi.NewRouter()

	// Middleware.
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		// Providers.
		r.Post("/providers", h.CreateProvider)
		r.Get("/providers", h.ListProviders)
		r.Get("/providers/{id}", h.GetProvider)

		// Onboarding.
		r.Get("/providers/{id}/onboarding/authorize", h.Authorize)
		r.Get("/providers/{id}/onboarding/callback", h.Callback)
		r.Post("/providers/{id}/onboarding/enroll", h.DirectEnroll)
		r.Get("/providers/{id}/onboarding/verify", h.Verify)
		r.Post("/providers/{id}/onboarding/confirm-verified", h.ConfirmVerified)

		// Dashboard and payouts.
		r.Get("/providers/{id}/dashboard", h.Dashboard)
		r.Post("/providers/{id}/payouts", h.InstantPayout)

		// Transactions and settlement.
		r.Post("/transactions", h.CreateTransaction)
		r.Get("/transactions/{id}", h.GetTransaction)
		r.Get("/transactions/{id}/settlement", h.GetSettlement)
	})

	return r
}
