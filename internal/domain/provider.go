package domain

import "time"

type OnboardingState string

const (
	StateUnregistered        OnboardingState = "unregistered"
	StateAwaitingCallback    OnboardingState = "awaiting_callback"
	StateAccountCreated      OnboardingState = "account_created"
	StatePendingVerification OnboardingState = "pending_verification"
	StateVerified            OnboardingState = "verified"
)

// Connected reports whether the state implies an external account exists.
// ExternalAccountID must be non-empty exactly when this returns true.
func (s OnboardingState) Connected() bool {
	switch s {
	case StateAccountCreated, StatePendingVerification, StateVerified:
		return true
	}
	return false
}

type BusinessType string

const (
	BusinessIndividual BusinessType = "individual"
	BusinessCompany    BusinessType = "company"
)

// Business is the legal-entity variant for a provider: either an
// individual with a first/last name or a company with a trading name.
// It is dispatched once when building account-creation or prefill
// parameters instead of comparing type strings at every call site.
type Business interface {
	Type() BusinessType
}

type Individual struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (Individual) Type() BusinessType { return BusinessIndividual }

type Company struct {
	Name string `json:"name"`
}

func (Company) Type() BusinessType { return BusinessCompany }

// Provider is a marketplace participant who receives payouts.
type Provider struct {
	ID           string       `json:"id"`
	BusinessType BusinessType `json:"business_type"`
	FirstName    string       `json:"first_name,omitempty"`
	LastName     string       `json:"last_name,omitempty"`
	BusinessName string       `json:"business_name,omitempty"`
	Email        string       `json:"email"`
	Country      string       `json:"country"`
	Currency     string       `json:"currency"`
	Address      string       `json:"address,omitempty"`
	City         string       `json:"city,omitempty"`
	State        string       `json:"state,omitempty"`
	PostalCode   string       `json:"postal_code,omitempty"`

	// ExternalAccountID is the connected account on the payments
	// platform. Empty until onboarding reaches account_created.
	ExternalAccountID string          `json:"external_account_id,omitempty"`
	OnboardingState   OnboardingState `json:"onboarding_state"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Business returns the tagged legal-entity variant for the provider.
func (p *Provider) Business() Business {
	if p.BusinessType == BusinessCompany {
		return Company{Name: p.BusinessName}
	}
	return Individual{FirstName: p.FirstName, LastName: p.LastName}
}
