// Package onboarding drives a provider from unregistered to
// payout-capable against the payments platform, reconciling redirect
// callbacks into the provider record without ever letting a forged or
// replayed callback mutate state.
package onboarding

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"

	"go.uber.org/zap"

	"github.com/bala007/stripe-connect-rocketrides/internal/domain"
	"github.com/bala007/stripe-connect-rocketrides/internal/platform"
	"github.com/bala007/stripe-connect-rocketrides/internal/session"
)

// ProviderStore is the persistence collaborator. UpdateOnboarding must
// write (state, externalAccountID) atomically so the connected-account
// invariant never tears.
type ProviderStore interface {
	GetProvider(ctx context.Context, id string) (*domain.Provider, error)
	UpdateOnboarding(ctx context.Context, id string, state domain.OnboardingState, externalAccountID string) error
}

// PlatformAPI is the slice of the platform client the orchestrator
// uses. platform.Client satisfies it.
type PlatformAPI interface {
	AuthorizeURL(p platform.AuthorizeParams) (string, error)
	ExchangeAuthorizationCode(ctx context.Context, code string) (string, error)
	CreateAccount(ctx context.Context, p platform.AccountParams) (string, error)
	CreateAccountLink(ctx context.Context, accountID, successURL, failureURL string) (string, error)
	CreateLoginLink(ctx context.Context, accountID, redirectURL string) (string, error)
	RetrieveBalance(ctx context.Context, accountID string) (platform.Balance, error)
	CreatePayout(ctx context.Context, accountID string, amountMinorUnits int64, currency, statementDescriptor string) (string, error)
}

// Config carries the orchestrator's own settings; platform credentials
// live in the platform client.
type Config struct {
	// PublicDomain is the externally reachable base URL used to build
	// redirect and return addresses, e.g. "https://rides.example.com".
	PublicDomain string

	// AppName appears as the statement descriptor on payouts.
	AppName string
}

// Orchestrator owns the onboarding state machine. Operations on one
// provider serialize on a per-provider lock; distinct providers run
// concurrently.
type Orchestrator struct {
	cfg       Config
	providers ProviderStore
	sessions  session.Store
	platform  PlatformAPI
	log       *zap.Logger

	locks [lockStripes]sync.Mutex
}

// lockStripes bounds the per-provider lock table: providers hash onto a
// fixed set of mutexes instead of one entry per ID ever seen.
const lockStripes = 64

func NewOrchestrator(cfg Config, providers ProviderStore, sessions session.Store, api PlatformAPI, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		providers: providers,
		sessions:  sessions,
		platform:  api,
		log:       log,
	}
}

func (o *Orchestrator) lockProvider(id string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	m := &o.locks[h.Sum32()%lockStripes]
	m.Lock()
	return m.Unlock
}

// CallbackURL is the return address the platform redirects to after
// the hosted authorization flow.
func (o *Orchestrator) CallbackURL(providerID string) string {
	return fmt.Sprintf("%s/api/v1/providers/%s/onboarding/callback", o.cfg.PublicDomain, providerID)
}

func (o *Orchestrator) dashboardURL() string {
	return o.cfg.PublicDomain + "/dashboard"
}

// BeginAuthorization starts (or restarts) the redirect-based
// authorization flow. It generates a fresh CSRF token, stores it as the
// provider's only live session, and returns the authorize URL. Any
// prior in-flight session is superseded.
func (o *Orchestrator) BeginAuthorization(ctx context.Context, providerID string) (string, error) {
	defer o.lockProvider(providerID)()

	p, err := o.providers.GetProvider(ctx, providerID)
	if err != nil {
		return "", err
	}
	if p.OnboardingState == domain.StateVerified {
		return "", domain.E(domain.KindInvalidInput, "onboarding_state", "provider is already verified")
	}

	token, err := newCSRFToken()
	if err != nil {
		return "", fmt.Errorf("generate csrf token: %w", err)
	}

	params := platform.AuthorizeParams{
		State:        token,
		RedirectURI:  o.CallbackURL(p.ID),
		BusinessType: p.BusinessType,
		BusinessName: p.BusinessName,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		Email:        p.Email,
		Country:      p.Country,
	}
	redirect, err := o.platform.AuthorizeURL(params)
	if err != nil {
		// A failed redirect construction never reaches persistence.
		return "", domain.Wrap(domain.KindAuthorizationUnavailable, "authorize_uri",
			"cannot construct authorization redirect", err)
	}

	if err := o.sessions.Put(ctx, p.ID, token); err != nil {
		return "", fmt.Errorf("store authorization session: %w", err)
	}

	// A provider that already holds a connected account keeps it while
	// re-authorizing; only a fresh provider moves to awaiting_callback.
	if !p.OnboardingState.Connected() && p.OnboardingState != domain.StateAwaitingCallback {
		if err := o.providers.UpdateOnboarding(ctx, p.ID, domain.StateAwaitingCallback, ""); err != nil {
			return "", fmt.Errorf("mark awaiting callback: %w", err)
		}
	}

	o.log.Info("authorization started",
		zap.String("provider_id", p.ID),
		zap.String("redirect_uri", params.RedirectURI))
	return redirect, nil
}

// HandleCallback consumes the platform's redirect back to us. The
// returned state must match the stored CSRF token exactly once; a
// mismatch restarts an in-flight flow without touching the network,
// and a provider that already holds a connected account is left alone.
func (o *Orchestrator) HandleCallback(ctx context.Context, providerID, returnedState, returnedCode, errorIndicator string) error {
	defer o.lockProvider(providerID)()

	p, err := o.providers.GetProvider(ctx, providerID)
	if err != nil {
		return err
	}

	if errorIndicator != "" {
		// The denial is terminal for this attempt: retire the session
		// so its token cannot reach the exchange endpoint later.
		if stored, live, gerr := o.sessions.Get(ctx, p.ID); gerr == nil && live {
			if cerr := o.sessions.Consume(ctx, p.ID, stored); cerr != nil {
				o.log.Warn("consume session after denial", zap.Error(cerr))
			}
		}
		if err := o.revert(ctx, p); err != nil {
			return err
		}
		o.log.Warn("authorization denied upstream",
			zap.String("provider_id", p.ID),
			zap.String("error", errorIndicator))
		return domain.E(domain.KindExternalAuthorizationDenied, "error", errorIndicator)
	}

	stored, live, err := o.sessions.Get(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("load authorization session: %w", err)
	}
	if !live || !tokensEqual(stored, returnedState) {
		replayed, cerr := o.sessions.Consumed(ctx, p.ID, returnedState)
		if cerr != nil {
			return fmt.Errorf("check consumed session: %w", cerr)
		}
		if replayed {
			// The matching callback already ran; the provider record
			// has advanced and must not be disturbed.
			return domain.E(domain.KindSessionAlreadyConsumed, "state", "callback already processed")
		}
		if err := o.revert(ctx, p); err != nil {
			return err
		}
		o.log.Warn("csrf validation failed", zap.String("provider_id", p.ID))
		return domain.E(domain.KindCsrfValidationFailed, "state", "state does not match stored token")
	}

	accountID, err := o.platform.ExchangeAuthorizationCode(ctx, returnedCode)
	if err != nil {
		var apiErr *platform.APIError
		if errors.As(err, &apiErr) {
			// A definitive refusal: the flow has to restart.
			if rerr := o.revert(ctx, p); rerr != nil {
				return rerr
			}
			if cerr := o.sessions.Consume(ctx, p.ID, stored); cerr != nil {
				o.log.Warn("consume session after denial", zap.Error(cerr))
			}
			return domain.Wrap(domain.KindExternalAuthorizationDenied, "code",
				"platform rejected authorization code", err)
		}
		// Transport failure: the session stays live so the same
		// callback can be retried.
		return err
	}

	if err := o.providers.UpdateOnboarding(ctx, p.ID, domain.StateAccountCreated, accountID); err != nil {
		return fmt.Errorf("record connected account: %w", err)
	}
	if err := o.sessions.Consume(ctx, p.ID, stored); err != nil {
		return fmt.Errorf("consume authorization session: %w", err)
	}

	o.log.Info("connected account linked",
		zap.String("provider_id", p.ID),
		zap.String("external_account_id", accountID))
	return nil
}

// BeginDirectEnrollment creates the connected account server-side,
// skipping the hosted redirect flow. Idempotent once an account exists.
func (o *Orchestrator) BeginDirectEnrollment(ctx context.Context, providerID string) error {
	defer o.lockProvider(providerID)()

	p, err := o.providers.GetProvider(ctx, providerID)
	if err != nil {
		return err
	}
	if p.ExternalAccountID != "" {
		return nil
	}

	accountID, err := o.platform.CreateAccount(ctx, platform.AccountParams{
		Business:   p.Business(),
		Email:      p.Email,
		Country:    p.Country,
		Currency:   p.Currency,
		Address:    p.Address,
		City:       p.City,
		State:      p.State,
		PostalCode: p.PostalCode,
	})
	if err != nil {
		var apiErr *platform.APIError
		if errors.As(err, &apiErr) {
			return domain.Wrap(domain.KindAuthorizationUnavailable, "account",
				"platform refused account creation", err)
		}
		return err
	}

	if err := o.providers.UpdateOnboarding(ctx, p.ID, domain.StateAccountCreated, accountID); err != nil {
		return fmt.Errorf("record connected account: %w", err)
	}
	o.log.Info("connected account created directly",
		zap.String("provider_id", p.ID),
		zap.String("external_account_id", accountID))
	return nil
}

// BeginVerification requests a time-boxed identity-verification link
// for the connected account. Safe to retry: local state is untouched on
// failure.
func (o *Orchestrator) BeginVerification(ctx context.Context, providerID string) (string, error) {
	defer o.lockProvider(providerID)()

	p, err := o.providers.GetProvider(ctx, providerID)
	if err != nil {
		return "", err
	}
	if !p.OnboardingState.Connected() {
		return "", domain.E(domain.KindProviderNotOnboarded, "external_account_id",
			"provider has no connected account")
	}

	link, err := o.platform.CreateAccountLink(ctx, p.ExternalAccountID,
		o.dashboardURL()+"?verified=1", o.dashboardURL())
	if err != nil {
		var apiErr *platform.APIError
		if errors.As(err, &apiErr) {
			return "", domain.Wrap(domain.KindVerificationLinkUnavailable, "external_account_id",
				"platform refused verification link", err)
		}
		return "", err
	}

	if p.OnboardingState == domain.StateAccountCreated {
		if err := o.providers.UpdateOnboarding(ctx, p.ID, domain.StatePendingVerification, p.ExternalAccountID); err != nil {
			return "", fmt.Errorf("mark pending verification: %w", err)
		}
	}
	return link, nil
}

// ConfirmVerified records that the platform reported the account
// verified. No-op when already verified.
func (o *Orchestrator) ConfirmVerified(ctx context.Context, providerID string) error {
	defer o.lockProvider(providerID)()

	p, err := o.providers.GetProvider(ctx, providerID)
	if err != nil {
		return err
	}
	if p.OnboardingState == domain.StateVerified {
		return nil
	}
	if !p.OnboardingState.Connected() {
		return domain.E(domain.KindProviderNotOnboarded, "external_account_id",
			"provider has no connected account")
	}

	if err := o.providers.UpdateOnboarding(ctx, p.ID, domain.StateVerified, p.ExternalAccountID); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	o.log.Info("provider verified", zap.String("provider_id", p.ID))
	return nil
}

// RequestDashboardAccess returns a single-use login link to the
// provider's hosted dashboard. Never touches the network when the
// provider has no connected account.
func (o *Orchestrator) RequestDashboardAccess(ctx context.Context, providerID string, deepLinkAccount bool) (string, error) {
	p, err := o.providers.GetProvider(ctx, providerID)
	if err != nil {
		return "", err
	}
	if p.ExternalAccountID == "" {
		return "", domain.E(domain.KindProviderNotOnboarded, "external_account_id",
			"provider has no connected account")
	}

	link, err := o.platform.CreateLoginLink(ctx, p.ExternalAccountID, o.dashboardURL())
	if err != nil {
		var apiErr *platform.APIError
		if errors.As(err, &apiErr) {
			// The account exists but the platform declined the link,
			// which is a different failure than never having onboarded.
			return "", domain.Wrap(domain.KindDashboardLinkUnavailable, "external_account_id",
				"platform declined to issue a login link", err)
		}
		return "", err
	}
	if deepLinkAccount {
		link += "#/account"
	}
	return link, nil
}

// PayoutReceipt reports a completed immediate payout.
type PayoutReceipt struct {
	PayoutID string `json:"payout_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// RequestImmediatePayout pays out the provider's full available balance
// in its native currency. Declines are reported, not retried: repeating
// the call without a balance change repeats the failure.
func (o *Orchestrator) RequestImmediatePayout(ctx context.Context, providerID string) (*PayoutReceipt, error) {
	defer o.lockProvider(providerID)()

	p, err := o.providers.GetProvider(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if p.ExternalAccountID == "" {
		return nil, domain.E(domain.KindProviderNotOnboarded, "external_account_id",
			"provider has no connected account")
	}
	if p.OnboardingState != domain.StateVerified {
		return nil, domain.E(domain.KindProviderNotOnboarded, "onboarding_state",
			"provider is not verified for payouts")
	}

	balance, err := o.platform.RetrieveBalance(ctx, p.ExternalAccountID)
	if err != nil {
		var apiErr *platform.APIError
		if errors.As(err, &apiErr) {
			return nil, domain.Wrap(domain.KindPayoutRejected, "external_account_id",
				"cannot retrieve balance", err)
		}
		return nil, err
	}
	if len(balance.Available) == 0 || balance.Available[0].Amount <= 0 {
		return nil, domain.E(domain.KindPayoutRejected, "balance", "no available balance")
	}
	available := balance.Available[0]

	payoutID, err := o.platform.CreatePayout(ctx, p.ExternalAccountID,
		available.Amount, available.Currency, o.cfg.AppName)
	if err != nil {
		var apiErr *platform.APIError
		if errors.As(err, &apiErr) {
			return nil, domain.Wrap(domain.KindPayoutRejected, "amount",
				"platform declined payout", err)
		}
		return nil, err
	}

	o.log.Info("instant payout issued",
		zap.String("provider_id", p.ID),
		zap.String("payout_id", payoutID),
		zap.Int64("amount", available.Amount),
		zap.String("currency", available.Currency))
	return &PayoutReceipt{PayoutID: payoutID, Amount: available.Amount, Currency: available.Currency}, nil
}

// revert returns a provider whose redirect flow failed to unregistered.
// Only a provider still waiting on its callback is touched: the
// callback endpoint is unauthenticated, so a failed (or forged) hit
// must never demote a provider that already holds a connected account.
func (o *Orchestrator) revert(ctx context.Context, p *domain.Provider) error {
	if p.OnboardingState != domain.StateAwaitingCallback || p.ExternalAccountID != "" {
		return nil
	}
	if err := o.providers.UpdateOnboarding(ctx, p.ID, domain.StateUnregistered, ""); err != nil {
		return fmt.Errorf("revert provider: %w", err)
	}
	return nil
}

func newCSRFToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func tokensEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
