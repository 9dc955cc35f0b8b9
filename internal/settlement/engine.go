// Package settlement computes the three-way split of a transaction
// amount between processor cost, platform fee, and provider payout.
//
// All arithmetic is on integer minor units. Each percentage term is
// rounded to the nearest minor unit with ties away from zero, and the
// payout is derived as the remainder of the amount after the total
// application fee, so the split always sums back to the amount exactly.
package settlement

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bala007/stripe-connect-rocketrides/internal/domain"
)

// Tariff is the processor's pricing for one country: a fixed charge in
// minor units plus a percentage of the transaction amount.
type Tariff struct {
	FixedMinorUnits int64
	Percent         decimal.Decimal
}

// defaultBasePercent is the platform's cut of every transaction.
var defaultBasePercent = decimal.NewFromFloat(0.08)

// defaultTariff applies to countries without an explicit entry.
var defaultTariff = Tariff{FixedMinorUnits: 30, Percent: decimal.NewFromFloat(0.029)}

var defaultTariffs = map[string]Tariff{
	"US": {FixedMinorUnits: 30, Percent: decimal.NewFromFloat(0.029)},
	"HK": {FixedMinorUnits: 235, Percent: decimal.NewFromFloat(0.034)},
}

// defaultSettlementCurrencies maps a provider country to the currency
// its payouts settle in. Countries not listed settle in usd.
var defaultSettlementCurrencies = map[string]string{
	"US": "usd",
	"HK": "hkd",
	"SG": "sgd",
	"GB": "gbp",
}

// defaultBuffers holds the per-country conversion buffer multiplier
// applied to the base fee when the transaction currency differs from
// the settlement currency. Unlisted countries use 1 (no buffer).
var defaultBuffers = map[string]decimal.Decimal{
	"HK": decimal.NewFromInt(3),
	"SG": decimal.NewFromFloat(1.5),
}

// Breakdown is the settled split of one transaction amount.
type Breakdown struct {
	ProcessorCost  int64 `json:"processor_cost"`
	PlatformFee    int64 `json:"platform_fee"`
	ProviderPayout int64 `json:"provider_payout"`
}

// Total returns the sum of the three components.
func (b Breakdown) Total() int64 {
	return b.ProcessorCost + b.PlatformFee + b.ProviderPayout
}

// Engine derives settlement splits from country/currency tariff tables.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	basePercent          decimal.Decimal
	tariffs              map[string]Tariff
	settlementCurrencies map[string]string
	buffers              map[string]decimal.Decimal
}

// NewEngine returns an engine loaded with the default tariff tables.
func NewEngine() *Engine {
	return &Engine{
		basePercent:          defaultBasePercent,
		tariffs:              defaultTariffs,
		settlementCurrencies: defaultSettlementCurrencies,
		buffers:              defaultBuffers,
	}
}

// Tariff returns the processor tariff for a country, falling back to
// the default pair for unlisted countries.
func (e *Engine) Tariff(country string) Tariff {
	if t, ok := e.tariffs[normalizeCountry(country)]; ok {
		return t
	}
	return defaultTariff
}

// SettlementCurrency returns the currency payouts settle in for the
// given provider country.
func (e *Engine) SettlementCurrency(country string) string {
	if c, ok := e.settlementCurrencies[normalizeCountry(country)]; ok {
		return c
	}
	return "usd"
}

func (e *Engine) buffer(country string) decimal.Decimal {
	if b, ok := e.buffers[normalizeCountry(country)]; ok {
		return b
	}
	return decimal.NewFromInt(1)
}

// ProcessorCost is the processor's charge for the transaction:
// fixed(country) + round(amount * percent(country)).
func (e *Engine) ProcessorCost(amountMinorUnits int64, country string) (int64, error) {
	if amountMinorUnits < 0 {
		return 0, domain.E(domain.KindInvalidInput, "amount_minor_units", "amount must be non-negative")
	}
	t := e.Tariff(country)
	variable := roundMinor(decimal.NewFromInt(amountMinorUnits).Mul(t.Percent))
	return t.FixedMinorUnits + variable, nil
}

// ApplicationFee is the total amount withheld from the provider:
// processor cost plus round(amount * basePercent * buffer). The buffer
// multiplier applies only when the transaction currency differs from
// the country's settlement currency.
func (e *Engine) ApplicationFee(amountMinorUnits int64, country, transactionCurrency string) (int64, error) {
	cost, err := e.ProcessorCost(amountMinorUnits, country)
	if err != nil {
		return 0, err
	}
	if transactionCurrency == "" {
		return 0, domain.E(domain.KindInvalidInput, "currency", "transaction currency is required")
	}

	pct := e.basePercent
	if normalizeCurrency(transactionCurrency) != e.SettlementCurrency(country) {
		pct = pct.Mul(e.buffer(country))
	}
	base := roundMinor(decimal.NewFromInt(amountMinorUnits).Mul(pct))

	return cost + base, nil
}

// PlatformFee is the platform's revenue on the transaction: the
// application fee net of the processor's cost.
func (e *Engine) PlatformFee(amountMinorUnits int64, country, transactionCurrency string) (int64, error) {
	fee, err := e.ApplicationFee(amountMinorUnits, country, transactionCurrency)
	if err != nil {
		return 0, err
	}
	cost, err := e.ProcessorCost(amountMinorUnits, country)
	if err != nil {
		return 0, err
	}
	return fee - cost, nil
}

// ProviderPayout is the remainder due to the provider after the
// application fee. Fails with FeeExceedsAmount when the fee would
// leave a negative payout; the result is never clamped.
func (e *Engine) ProviderPayout(amountMinorUnits int64, country, transactionCurrency string) (int64, error) {
	b, err := e.Settle(amountMinorUnits, country, transactionCurrency)
	if err != nil {
		return 0, err
	}
	return b.ProviderPayout, nil
}

// Settle computes the full split for one transaction. The payout is
// the remainder after the application fee, so the three components sum
// to the amount exactly.
func (e *Engine) Settle(amountMinorUnits int64, country, transactionCurrency string) (Breakdown, error) {
	fee, err := e.ApplicationFee(amountMinorUnits, country, transactionCurrency)
	if err != nil {
		return Breakdown{}, err
	}
	if fee > amountMinorUnits {
		return Breakdown{}, domain.E(domain.KindFeeExceedsAmount, "amount_minor_units",
			"computed fee exceeds transaction amount")
	}
	cost, err := e.ProcessorCost(amountMinorUnits, country)
	if err != nil {
		return Breakdown{}, err
	}
	return Breakdown{
		ProcessorCost:  cost,
		PlatformFee:    fee - cost,
		ProviderPayout: amountMinorUnits - fee,
	}, nil
}

// roundMinor rounds to the nearest integer minor unit, ties away from
// zero. decimal.Round carries exactly that tie-break.
func roundMinor(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

func normalizeCountry(country string) string {
	return strings.ToUpper(strings.TrimSpace(country))
}

func normalizeCurrency(currency string) string {
	return strings.ToLower(strings.TrimSpace(currency))
}
