package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bala007/stripe-connect-rocketrides/internal/domain"
	"github.com/bala007/stripe-connect-rocketrides/internal/onboarding"
	"github.com/bala007/stripe-connect-rocketrides/internal/repository"
	"github.com/bala007/stripe-connect-rocketrides/internal/settlement"
)

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	providerRepo *repository.ProviderRepo
	txnRepo      *repository.TransactionRepo
	payoutRepo   *repository.PayoutRepo
	orch         *onboarding.Orchestrator
	engine       *settlement.Engine
	log          *zap.Logger
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var e *domain.Error
	if !errors.As(err, &e) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	body := map[string]string{
		"error": e.Error(),
		"kind":  string(e.Kind),
	}
	if e.Field != "" {
		body["field"] = e.Field
	}
	writeJSON(w, statusForKind(e.Kind), body)
}

// statusForKind maps the failure taxonomy to the request boundary.
// Every kind is recoverable here; nothing crashes the process.
func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindCsrfValidationFailed, domain.KindSessionAlreadyConsumed:
		return http.StatusForbidden
	case domain.KindExternalAuthorizationDenied:
		return http.StatusBadGateway
	case domain.KindUpstreamUnavailable,
		domain.KindAuthorizationUnavailable,
		domain.KindVerificationLinkUnavailable,
		domain.KindDashboardLinkUnavailable:
		return http.StatusServiceUnavailable
	case domain.KindProviderNotOnboarded:
		return http.StatusConflict
	case domain.KindPayoutRejected:
		return http.StatusPaymentRequired
	case domain.KindFeeExceedsAmount:
		return http.StatusUnprocessableEntity
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// --- providers ---

type createProviderRequest struct {
	BusinessType string `json:"business_type"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	BusinessName string `json:"business_name"`
	Email        string `json:"email"`
	Country      string `json:"country"`
	Currency     string `json:"currency"`
	Address      string `json:"address"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
}

func (h *Handlers) CreateProvider(w http.ResponseWriter, r *http.Request) {
	var req createProviderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.E(domain.KindInvalidInput, "body", "invalid JSON body"))
		return
	}

	businessType := domain.BusinessType(strings.ToLower(req.BusinessType))
	if businessType == "" {
		businessType = domain.BusinessIndividual
	}
	if businessType != domain.BusinessIndividual && businessType != domain.BusinessCompany {
		writeError(w, domain.E(domain.KindInvalidInput, "business_type", "must be individual or company"))
		return
	}
	if req.Email == "" {
		writeError(w, domain.E(domain.KindInvalidInput, "email", "email is required"))
		return
	}
	if req.Country == "" {
		writeError(w, domain.E(domain.KindInvalidInput, "country", "country is required"))
		return
	}
	if businessType == domain.BusinessCompany && req.BusinessName == "" {
		writeError(w, domain.E(domain.KindInvalidInput, "business_name", "company providers need a business name"))
		return
	}

	now := time.Now().UTC()
	p := &domain.Provider{
		ID:              uuid.NewString(),
		BusinessType:    businessType,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		BusinessName:    req.BusinessName,
		Email:           req.Email,
		Country:         strings.ToUpper(req.Country),
		Currency:        strings.ToLower(req.Currency),
		Address:         req.Address,
		City:            req.City,
		State:           req.State,
		PostalCode:      req.PostalCode,
		OnboardingState: domain.StateUnregistered,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if p.Currency == "" {
		p.Currency = h.engine.SettlementCurrency(p.Country)
	}

	if err := h.providerRepo.Insert(r.Context(), p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handlers) GetProvider(w http.ResponseWriter, r *http.Request) {
	p, err := h.providerRepo.GetProvider(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) ListProviders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	providers, total, err := h.providerRepo.List(r.Context(), repository.ProviderFilter{
		Country: strings.ToUpper(q.Get("country")),
		State:   q.Get("state"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"providers": providers,
		"total":     total,
	})
}

// --- onboarding ---

func (h *Handlers) Authorize(w http.ResponseWriter, r *http.Request) {
	redirect, err := h.orch.BeginAuthorization(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	http.Redirect(w, r, redirect, http.StatusFound)
}

func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id := chi.URLParam(r, "id")

	err := h.orch.HandleCallback(r.Context(), id, q.Get("state"), q.Get("code"), q.Get("error"))
	if err != nil {
		writeError(w, err)
		return
	}

	p, err := h.providerRepo.GetProvider(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"onboarding_state":    string(p.OnboardingState),
		"external_account_id": p.ExternalAccountID,
	})
}

func (h *Handlers) DirectEnroll(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.orch.BeginDirectEnrollment(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	p, err := h.providerRepo.GetProvider(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"onboarding_state":    string(p.OnboardingState),
		"external_account_id": p.ExternalAccountID,
	})
}

func (h *Handlers) Verify(w http.ResponseWriter, r *http.Request) {
	link, err := h.orch.BeginVerification(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	http.Redirect(w, r, link, http.StatusFound)
}

func (h *Handlers) ConfirmVerified(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.orch.ConfirmVerified(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"onboarding_state": string(domain.StateVerified),
	})
}

func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	deepLink := r.URL.Query().Get("account") != ""
	link, err := h.orch.RequestDashboardAccess(r.Context(), chi.URLParam(r, "id"), deepLink)
	if err != nil {
		writeError(w, err)
		return
	}
	http.Redirect(w, r, link, http.StatusFound)
}

func (h *Handlers) InstantPayout(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.orch.RequestImmediatePayout(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// --- transactions & settlement ---

type createTransactionRequest struct {
	ProviderID       string `json:"provider_id"`
	AmountMinorUnits int64  `json:"amount_minor_units"`
	Currency         string `json:"currency"`
	Description      string `json:"description"`
}

func (h *Handlers) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.E(domain.KindInvalidInput, "body", "invalid JSON body"))
		return
	}
	if req.AmountMinorUnits < 0 {
		writeError(w, domain.E(domain.KindInvalidInput, "amount_minor_units", "amount must be non-negative"))
		return
	}
	if req.Currency == "" {
		writeError(w, domain.E(domain.KindInvalidInput, "currency", "currency is required"))
		return
	}

	// The provider must exist before settlement can reference it.
	if _, err := h.providerRepo.GetProvider(r.Context(), req.ProviderID); err != nil {
		writeError(w, err)
		return
	}

	txn := &domain.Transaction{
		ID:               uuid.NewString(),
		ProviderID:       req.ProviderID,
		AmountMinorUnits: req.AmountMinorUnits,
		Currency:         strings.ToLower(req.Currency),
		Description:      req.Description,
		CreatedAt:        time.Now().UTC(),
	}
	if err := h.txnRepo.Insert(r.Context(), txn); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, txn)
}

func (h *Handlers) GetTransaction(w http.ResponseWriter, r *http.Request) {
	txn, err := h.txnRepo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

// GetSettlement computes the three-way split for a transaction and
// persists it as the transaction's payout record.
func (h *Handlers) GetSettlement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	txn, err := h.txnRepo.GetByID(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := h.providerRepo.GetProvider(ctx, txn.ProviderID)
	if err != nil {
		writeError(w, err)
		return
	}

	breakdown, err := h.engine.Settle(txn.AmountMinorUnits, p.Country, txn.Currency)
	if err != nil {
		writeError(w, err)
		return
	}

	payout := &domain.Payout{
		ID:             uuid.NewString(),
		TransactionID:  txn.ID,
		ProviderID:     p.ID,
		Currency:       txn.Currency,
		ProcessorCost:  breakdown.ProcessorCost,
		PlatformFee:    breakdown.PlatformFee,
		ProviderPayout: breakdown.ProviderPayout,
		CreatedAt:      time.Now().UTC(),
	}
	if err := h.payoutRepo.Insert(ctx, payout); err != nil {
		writeError(w, err)
		return
	}

	h.log.Info("transaction settled",
		zap.String("transaction_id", txn.ID),
		zap.String("provider_id", p.ID),
		zap.Int64("amount", txn.AmountMinorUnits),
		zap.Int64("provider_payout", breakdown.ProviderPayout))

	writeJSON(w, http.StatusOK, map[string]any{
		"transaction_id":     txn.ID,
		"provider_id":        p.ID,
		"amount_minor_units": txn.AmountMinorUnits,
		"currency":           txn.Currency,
		"settlement":         breakdown,
	})
}

// --- health ---

func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
