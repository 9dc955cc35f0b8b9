package domain

import "time"

// Transaction is a completed service event awaiting settlement. Amounts
// are integers in the smallest currency unit; fee components are derived
// by the settlement engine, never stored here.
type Transaction struct {
	ID               string    `json:"id"`
	ProviderID       string    `json:"provider_id"`
	AmountMinorUnits int64     `json:"amount_minor_units"`
	Currency         string    `json:"currency"`
	Description      string    `json:"description,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Payout is a persisted settlement split for one transaction.
// Invariant: ProcessorCost + PlatformFee + ProviderPayout equals the
// transaction amount exactly.
type Payout struct {
	ID             string    `json:"id"`
	TransactionID  string    `json:"transaction_id"`
	ProviderID     string    `json:"provider_id"`
	Currency       string    `json:"currency"`
	ProcessorCost  int64     `json:"processor_cost"`
	PlatformFee    int64     `json:"platform_fee"`
	ProviderPayout int64     `json:"provider_payout"`
	CreatedAt      time.Time `json:"created_at"`
}
