// Package platform is the outbound client for the payments platform's
// connect and payout API: OAuth code exchange, connected-account
// creation, verification and login links, balances, and payouts.
//
// Transport failures and timeouts surface as UpstreamUnavailable; the
// platform's own declines surface as *APIError so callers can map them
// to operation-specific failures.
package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bala007/stripe-connect-rocketrides/internal/domain"
)

// Config carries the platform credentials and endpoints. These are
// explicit construction-time values, never process-wide state.
type Config struct {
	SecretKey    string
	ClientID     string
	AuthorizeURI string
	TokenURI     string
	APIBase      string
	Timeout      time.Duration
}

// APIError is a decline returned by the platform itself, as opposed to
// a transport failure.
type APIError struct {
	StatusCode int    `json:"-"`
	Type       string `json:"type"`
	Code       string `json:"code"`
	Param      string `json:"param"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("platform error (%s): %s", e.Type, e.Message)
	}
	return fmt.Sprintf("platform error (%s)", e.Type)
}

// Client talks to the platform over form-encoded REST.
type Client struct {
	cfg  Config
	http *http.Client
	log  *zap.Logger
}

func NewClient(cfg Config, log *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

// AuthorizeParams describes one redirect to the platform's OAuth
// authorize endpoint, including the prefill fields for the hosted form.
type AuthorizeParams struct {
	State        string
	RedirectURI  string
	BusinessType domain.BusinessType
	BusinessName string
	FirstName    string
	LastName     string
	Email        string
	Country      string
}

// AuthorizeURL builds the redirect target for the OAuth onboarding
// flow. Pure URL construction; no network call.
func (c *Client) AuthorizeURL(p AuthorizeParams) (string, error) {
	if c.cfg.AuthorizeURI == "" {
		return "", fmt.Errorf("authorize URI not configured")
	}
	if c.cfg.ClientID == "" {
		return "", fmt.Errorf("platform client ID not configured")
	}

	v := url.Values{}
	v.Set("client_id", c.cfg.ClientID)
	v.Set("state", p.State)
	v.Set("response_type", "code")
	v.Set("scope", "read_write")
	v.Set("redirect_uri", p.RedirectURI)
	v.Set("stripe_user[business_type]", string(p.BusinessType))
	setIfPresent(v, "stripe_user[business_name]", p.BusinessName)
	setIfPresent(v, "stripe_user[first_name]", p.FirstName)
	setIfPresent(v, "stripe_user[last_name]", p.LastName)
	setIfPresent(v, "stripe_user[email]", p.Email)
	setIfPresent(v, "stripe_user[country]", p.Country)
	v.Add("suggested_capabilities[]", "card_payments")
	v.Add("suggested_capabilities[]", "transfers")

	return c.cfg.AuthorizeURI + "?" + v.Encode(), nil
}

// ExchangeAuthorizationCode posts the callback code to the token
// endpoint and returns the connected account ID.
func (c *Client) ExchangeAuthorizationCode(ctx context.Context, code string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.SecretKey)
	form.Set("code", code)

	var resp struct {
		StripeUserID     string `json:"stripe_user_id"`
		ErrorCode        string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := c.postForm(ctx, c.cfg.TokenURI, "", form, &resp); err != nil {
		return "", err
	}
	if resp.ErrorCode != "" {
		return "", &APIError{Type: "oauth_error", Code: resp.ErrorCode, Message: resp.ErrorDescription}
	}
	if resp.StripeUserID == "" {
		return "", &APIError{Type: "oauth_error", Message: "token response missing connected account id"}
	}
	return resp.StripeUserID, nil
}

// AccountParams describes a connected account to create directly,
// bypassing the hosted OAuth flow.
type AccountParams struct {
	Business   domain.Business
	Email      string
	Country    string
	Currency   string
	Address    string
	City       string
	State      string
	PostalCode string
}

// CreateAccount creates a connected account for an individual or a
// company. The business variant is dispatched once, here.
func (c *Client) CreateAccount(ctx context.Context, p AccountParams) (string, error) {
	form := url.Values{}
	form.Set("type", "custom")
	form.Set("country", p.Country)
	form.Set("email", p.Email)
	setIfPresent(form, "default_currency", p.Currency)
	form.Add("requested_capabilities[]", "card_payments")
	form.Add("requested_capabilities[]", "transfers")

	switch b := p.Business.(type) {
	case domain.Individual:
		form.Set("business_type", "individual")
		form.Set("individual[email]", p.Email)
		form.Set("individual[first_name]", b.FirstName)
		form.Set("individual[last_name]", b.LastName)
		setIfPresent(form, "individual[address][line1]", p.Address)
		setIfPresent(form, "individual[address][city]", p.City)
		setIfPresent(form, "individual[address][state]", p.State)
		setIfPresent(form, "individual[address][postal_code]", p.PostalCode)
		setIfPresent(form, "individual[address][country]", p.Country)
	case domain.Company:
		form.Set("business_type", "company")
		form.Set("company[name]", b.Name)
		setIfPresent(form, "company[address][line1]", p.Address)
		setIfPresent(form, "company[address][city]", p.City)
		setIfPresent(form, "company[address][state]", p.State)
		setIfPresent(form, "company[address][postal_code]", p.PostalCode)
		setIfPresent(form, "company[address][country]", p.Country)
	default:
		return "", fmt.Errorf("unsupported business variant %T", p.Business)
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.postForm(ctx, c.cfg.APIBase+"/v1/accounts", "", form, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// CreateAccountLink requests a single-use, time-boxed verification link
// collecting the fields currently due for the account.
func (c *Client) CreateAccountLink(ctx context.Context, accountID, successURL, failureURL string) (string, error) {
	form := url.Values{}
	form.Set("type", "custom_account_verification")
	form.Set("account", accountID)
	form.Set("collect", "currently_due")
	form.Set("success_url", successURL)
	form.Set("failure_url", failureURL)

	var resp struct {
		URL string `json:"url"`
	}
	if err := c.postForm(ctx, c.cfg.APIBase+"/v1/account_links", "", form, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

// CreateLoginLink requests a short-lived, single-use login link to the
// account's hosted dashboard.
func (c *Client) CreateLoginLink(ctx context.Context, accountID, redirectURL string) (string, error) {
	form := url.Values{}
	setIfPresent(form, "redirect_url", redirectURL)

	endpoint := c.cfg.APIBase + "/v1/accounts/" + url.PathEscape(accountID) + "/login_links"
	var resp struct {
		URL string `json:"url"`
	}
	if err := c.postForm(ctx, endpoint, "", form, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

// BalanceAmount is one available balance in a single currency.
type BalanceAmount struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Balance is the connected account's funds by currency.
type Balance struct {
	Available []BalanceAmount `json:"available"`
}

// RetrieveBalance fetches the available balance of a connected account.
func (c *Client) RetrieveBalance(ctx context.Context, accountID string) (Balance, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.APIBase+"/v1/balance", nil)
	if err != nil {
		return Balance{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)
	req.Header.Set("Stripe-Account", accountID)

	var balance Balance
	if err := c.do(req, &balance); err != nil {
		return Balance{}, err
	}
	return balance, nil
}

// CreatePayout issues an immediate payout on the connected account.
func (c *Client) CreatePayout(ctx context.Context, accountID string, amountMinorUnits int64, currency, statementDescriptor string) (string, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountMinorUnits, 10))
	form.Set("currency", currency)
	setIfPresent(form, "statement_descriptor", statementDescriptor)

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.postForm(ctx, c.cfg.APIBase+"/v1/payouts", accountID, form, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// --- transport helpers ---

func (c *Client) postForm(ctx context.Context, endpoint, scopedAccount string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)
	if scopedAccount != "" {
		req.Header.Set("Stripe-Account", scopedAccount)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("platform request failed",
			zap.String("url", req.URL.Path),
			zap.Error(err))
		return domain.Wrap(domain.KindUpstreamUnavailable, "", "platform unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.Wrap(domain.KindUpstreamUnavailable, "", "read platform response", err)
	}

	if resp.StatusCode >= 500 {
		return domain.E(domain.KindUpstreamUnavailable, "",
			fmt.Sprintf("platform returned %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		var wrapper struct {
			Error APIError `json:"error"`
		}
		apiErr := &APIError{StatusCode: resp.StatusCode, Type: "api_error"}
		if err := json.Unmarshal(body, &wrapper); err == nil && wrapper.Error.Type != "" {
			*apiErr = wrapper.Error
			apiErr.StatusCode = resp.StatusCode
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode platform response: %w", err)
	}
	return nil
}

func setIfPresent(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}
