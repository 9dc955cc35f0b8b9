package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bala007/stripe-connect-rocketrides/internal/domain"
)

type PayoutRepo struct {
	db *sql.DB
}

func NewPayoutRepo(db *sql.DB) *PayoutRepo {
	return &PayoutRepo{db: db}
}

// Insert records a settlement split. The transaction_id unique
// constraint makes re-settling a transaction idempotent at the store.
func (r *PayoutRepo) Insert(ctx context.Context, p *domain.Payout) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO payouts
		(id, transaction_id, provider_id, currency, processor_cost,
		 platform_fee, provider_payout, created_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		p.ID, p.TransactionID, p.ProviderID, p.Currency, p.ProcessorCost,
		p.PlatformFee, p.ProviderPayout, p.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert payout: %w", err)
	}
	return nil
}

func (r *PayoutRepo) GetByTransactionID(ctx context.Context, txnID string) (*domain.Payout, error) {
	row := r.db.QueryRowContext(ctx, "SELECT * FROM payouts WHERE transaction_id = ?", txnID)

	var p domain.Payout
	var createdAt string
	err := row.Scan(&p.ID, &p.TransactionID, &p.ProviderID, &p.Currency,
		&p.ProcessorCost, &p.PlatformFee, &p.ProviderPayout, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.E(domain.KindNotFound, "transaction_id", "payout not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get payout: %w", err)
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &p, nil
}

func (r *PayoutRepo) ListByProvider(ctx context.Context, providerID string) ([]domain.Payout, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT * FROM payouts WHERE provider_id = ? ORDER BY created_at DESC", providerID)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var payouts []domain.Payout
	for rows.Next() {
		var p domain.Payout
		var createdAt string
		if err := rows.Scan(&p.ID, &p.TransactionID, &p.ProviderID, &p.Currency,
			&p.ProcessorCost, &p.PlatformFee, &p.ProviderPayout, &createdAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		payouts = append(payouts, p)
	}
	return payouts, rows.Err()
}
