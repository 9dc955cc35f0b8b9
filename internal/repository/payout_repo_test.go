package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bala007/stripe-connect-rocketrides/internal/domain"
)

func TestTransactionAndPayoutRepos(t *testing.T) {
	db, err := InitDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	providers := NewProviderRepo(db)
	txns := NewTransactionRepo(db)
	payouts := NewPayoutRepo(db)
	ctx := context.Background()

	require.NoError(t, providers.Insert(ctx, sampleProvider("p1")))

	now := time.Now().UTC().Truncate(time.Second)
	txn := &domain.Transaction{
		ID:               "txn1",
		ProviderID:       "p1",
		AmountMinorUnits: 10000,
		Currency:         "usd",
		Description:      "ride downtown",
		CreatedAt:        now,
	}
	require.NoError(t, txns.Insert(ctx, txn))

	got, err := txns.GetByID(ctx, "txn1")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), got.AmountMinorUnits)
	assert.Equal(t, "usd", got.Currency)

	byProvider, err := txns.ListByProvider(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, byProvider, 1)

	_, err = txns.GetByID(ctx, "missing")
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	payout := &domain.Payout{
		ID:             "po1",
		TransactionID:  "txn1",
		ProviderID:     "p1",
		Currency:       "usd",
		ProcessorCost:  320,
		PlatformFee:    800,
		ProviderPayout: 8880,
		CreatedAt:      now,
	}
	require.NoError(t, payouts.Insert(ctx, payout))

	stored, err := payouts.GetByTransactionID(ctx, "txn1")
	require.NoError(t, err)
	assert.Equal(t, payout.ProcessorCost+payout.PlatformFee+payout.ProviderPayout,
		txn.AmountMinorUnits)
	assert.Equal(t, int64(8880), stored.ProviderPayout)

	// Re-settling replaces the previous split for the transaction.
	payout.ID = "po2"
	require.NoError(t, payouts.Insert(ctx, payout))
	stored, err = payouts.GetByTransactionID(ctx, "txn1")
	require.NoError(t, err)
	assert.Equal(t, "po2", stored.ID)

	list, err := payouts.ListByProvider(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
