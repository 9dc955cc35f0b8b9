package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bala007/stripe-connect-rocketrides/internal/domain"
)

type TransactionRepo struct {
	db *sql.DB
}

func NewTransactionRepo(db *sql.DB) *TransactionRepo {
	return &TransactionRepo{db: db}
}

func (r *TransactionRepo) Insert(ctx context.Context, tx *domain.Transaction) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions
		(id, provider_id, amount_minor_units, currency, description, created_at)
		VALUES (?,?,?,?,?,?)`,
		tx.ID, tx.ProviderID, tx.AmountMinorUnits, tx.Currency,
		tx.Description, tx.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepo) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx, "SELECT * FROM transactions WHERE id = ?", id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.E(domain.KindNotFound, "id", "transaction not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

func (r *TransactionRepo) ListByProvider(ctx context.Context, providerID string) ([]domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT * FROM transactions WHERE provider_id = ? ORDER BY created_at DESC", providerID)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		tx, err := scanTransactionRows(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		txns = append(txns, *tx)
	}
	return txns, rows.Err()
}

type transactionScanner interface {
	Scan(dest ...any) error
}

func scanTransactionFrom(sc transactionScanner) (*domain.Transaction, error) {
	var tx domain.Transaction
	var description sql.NullString
	var createdAt string

	err := sc.Scan(&tx.ID, &tx.ProviderID, &tx.AmountMinorUnits, &tx.Currency,
		&description, &createdAt)
	if err != nil {
		return nil, err
	}
	tx.Description = description.String
	tx.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &tx, nil
}

func scanTransaction(row *sql.Row) (*domain.Transaction, error) {
	return scanTransactionFrom(row)
}

func scanTransactionRows(rows *sql.Rows) (*domain.Transaction, error) {
	return scanTransactionFrom(rows)
}
