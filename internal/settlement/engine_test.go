package settlement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bala007/stripe-connect-rocketrides/internal/domain"
)

func TestSettle_USDomesticExample(t *testing.T) {
	e := NewEngine()

	// 100.00 USD from a US provider, no conversion buffer.
	b, err := e.Settle(10000, "US", "usd")
	require.NoError(t, err)

	assert.Equal(t, int64(320), b.ProcessorCost)  // 30 + round(10000*0.029)
	assert.Equal(t, int64(800), b.PlatformFee)    // round(10000*0.08)
	assert.Equal(t, int64(8880), b.ProviderPayout)
	assert.Equal(t, int64(10000), b.Total())
}

func TestSettle_HKCrossCurrencyExample(t *testing.T) {
	e := NewEngine()

	// HK provider settles in hkd; a usd transaction triggers the 3x buffer.
	b, err := e.Settle(10000, "HK", "usd")
	require.NoError(t, err)

	assert.Equal(t, int64(575), b.ProcessorCost)  // 235 + round(10000*0.034)
	assert.Equal(t, int64(2400), b.PlatformFee)   // round(10000*0.08*3)
	assert.Equal(t, int64(7025), b.ProviderPayout)
	assert.Equal(t, int64(10000), b.Total())
}

func TestSettle_HKSameCurrencyNoBuffer(t *testing.T) {
	e := NewEngine()

	b, err := e.Settle(10000, "HK", "hkd")
	require.NoError(t, err)

	assert.Equal(t, int64(575), b.ProcessorCost)
	assert.Equal(t, int64(800), b.PlatformFee)
	assert.Equal(t, int64(8625), b.ProviderPayout)
}

func TestSettle_UnlistedCountryUsesDefaultTariff(t *testing.T) {
	e := NewEngine()

	us, err := e.Settle(10000, "US", "usd")
	require.NoError(t, err)
	de, err := e.Settle(10000, "DE", "usd")
	require.NoError(t, err)

	// DE falls back to the default (US) tariff and settles in usd.
	assert.Equal(t, us, de)
}

func TestSettle_NormalizesCountryAndCurrency(t *testing.T) {
	e := NewEngine()

	upper, err := e.Settle(10000, "HK", "USD")
	require.NoError(t, err)
	lower, err := e.Settle(10000, "hk", "usd")
	require.NoError(t, err)

	assert.Equal(t, upper, lower)
}

func TestSettle_Conservation(t *testing.T) {
	e := NewEngine()

	amounts := []int64{1000, 1001, 1763, 5000, 9999, 10000, 123456, 999999999}
	countries := []string{"US", "HK", "SG", "GB", "FR"}
	currencies := []string{"usd", "hkd", "sgd", "eur"}

	for _, amount := range amounts {
		for _, country := range countries {
			for _, currency := range currencies {
				b, err := e.Settle(amount, country, currency)
				require.NoError(t, err, "amount=%d country=%s currency=%s", amount, country, currency)

				assert.Equal(t, amount, b.Total(),
					"conservation violated: amount=%d country=%s currency=%s split=%+v",
					amount, country, currency, b)
				assert.GreaterOrEqual(t, b.ProviderPayout, int64(0))
			}
		}
	}
}

func TestSettle_FeeExceedsAmount(t *testing.T) {
	e := NewEngine()

	// The fixed processor component alone exceeds a 10-unit transaction.
	_, err := e.Settle(10, "US", "usd")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindFeeExceedsAmount), "got %v", err)

	_, err = e.ProviderPayout(10, "US", "usd")
	assert.True(t, domain.IsKind(err, domain.KindFeeExceedsAmount))
}

func TestSettle_ZeroAmount(t *testing.T) {
	e := NewEngine()

	// Zero amount still carries the fixed fee, so it must be rejected,
	// never settled to a negative payout.
	_, err := e.Settle(0, "US", "usd")
	assert.True(t, domain.IsKind(err, domain.KindFeeExceedsAmount))
}

func TestSettle_InvalidInputs(t *testing.T) {
	e := NewEngine()

	_, err := e.Settle(-1, "US", "usd")
	assert.True(t, domain.IsKind(err, domain.KindInvalidInput))

	_, err = e.Settle(1000, "US", "")
	assert.True(t, domain.IsKind(err, domain.KindInvalidInput))
}

func TestProcessorCost_RoundsHalfAwayFromZero(t *testing.T) {
	e := NewEngine()

	// 2.9% of 1050 is 30.45 -> 30; of 1052 is 30.508 -> 31.
	cost, err := e.ProcessorCost(1050, "US")
	require.NoError(t, err)
	assert.Equal(t, int64(60), cost) // 30 fixed + 30

	cost, err = e.ProcessorCost(1052, "US")
	require.NoError(t, err)
	assert.Equal(t, int64(61), cost) // 30 fixed + 31

	// 2.9% of 250 is 7.25 -> 7; of 2500 is 72.5, a tie, -> 73.
	cost, err = e.ProcessorCost(2500, "US")
	require.NoError(t, err)
	assert.Equal(t, int64(103), cost)
}

func TestPlatformFee_IsApplicationFeeNetOfProcessorCost(t *testing.T) {
	e := NewEngine()

	fee, err := e.ApplicationFee(10000, "HK", "usd")
	require.NoError(t, err)
	cost, err := e.ProcessorCost(10000, "HK")
	require.NoError(t, err)
	platform, err := e.PlatformFee(10000, "HK", "usd")
	require.NoError(t, err)

	assert.Equal(t, fee-cost, platform)
	assert.Equal(t, int64(2975), fee)
}

func TestSettlementCurrency(t *testing.T) {
	e := NewEngine()

	assert.Equal(t, "usd", e.SettlementCurrency("US"))
	assert.Equal(t, "hkd", e.SettlementCurrency("HK"))
	assert.Equal(t, "usd", e.SettlementCurrency("BR"))
}
