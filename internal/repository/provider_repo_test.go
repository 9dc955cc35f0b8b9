package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bala007/stripe-connect-rocketrides/internal/domain"
)

func newTestDB(t *testing.T) *ProviderRepo {
	t.Helper()
	db, err := InitDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewProviderRepo(db)
}

func sampleProvider(id string) *domain.Provider {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.Provider{
		ID:              id,
		BusinessType:    domain.BusinessIndividual,
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Email:           "ada@example.com",
		Country:         "US",
		Currency:        "usd",
		OnboardingState: domain.StateUnregistered,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestProviderRepo_InsertAndGet(t *testing.T) {
	repo := newTestDB(t)
	ctx := context.Background()

	p := sampleProvider("p1")
	require.NoError(t, repo.Insert(ctx, p))

	got, err := repo.GetProvider(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, p.Email, got.Email)
	assert.Equal(t, domain.StateUnregistered, got.OnboardingState)
	assert.Empty(t, got.ExternalAccountID)
}

func TestProviderRepo_GetMissing(t *testing.T) {
	repo := newTestDB(t)

	_, err := repo.GetProvider(context.Background(), "nope")
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestProviderRepo_UpdateOnboarding(t *testing.T) {
	repo := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, sampleProvider("p1")))
	require.NoError(t, repo.UpdateOnboarding(ctx, "p1", domain.StateAccountCreated, "acct_1"))

	got, err := repo.GetProvider(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateAccountCreated, got.OnboardingState)
	assert.Equal(t, "acct_1", got.ExternalAccountID)

	// Reset clears both fields together.
	require.NoError(t, repo.UpdateOnboarding(ctx, "p1", domain.StateUnregistered, ""))
	got, err = repo.GetProvider(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateUnregistered, got.OnboardingState)
	assert.Empty(t, got.ExternalAccountID)
}

func TestProviderRepo_UpdateOnboardingMissing(t *testing.T) {
	repo := newTestDB(t)

	err := repo.UpdateOnboarding(context.Background(), "nope", domain.StateVerified, "acct_1")
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestProviderRepo_List(t *testing.T) {
	repo := newTestDB(t)
	ctx := context.Background()

	a := sampleProvider("p1")
	b := sampleProvider("p2")
	b.Country = "HK"
	require.NoError(t, repo.Insert(ctx, a))
	require.NoError(t, repo.Insert(ctx, b))

	all, total, err := repo.List(ctx, ProviderFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, all, 2)

	hk, total, err := repo.List(ctx, ProviderFilter{Country: "HK"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, hk, 1)
	assert.Equal(t, "p2", hk[0].ID)
}
