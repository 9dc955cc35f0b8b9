package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bala007/stripe-connect-rocketrides/internal/domain"
)

type ProviderRepo struct {
	db *sql.DB
}

func NewProviderRepo(db *sql.DB) *ProviderRepo {
	return &ProviderRepo{db: db}
}

func (r *ProviderRepo) Insert(ctx context.Context, p *domain.Provider) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO providers
		(id, business_type, first_name, last_name, business_name, email,
		 country, currency, address, city, state, postal_code,
		 external_account_id, onboarding_state, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, string(p.BusinessType), p.FirstName, p.LastName, p.BusinessName,
		p.Email, p.Country, p.Currency, p.Address, p.City, p.State, p.PostalCode,
		nullableString(p.ExternalAccountID), string(p.OnboardingState),
		p.CreatedAt.Format(time.RFC3339), p.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert provider: %w", err)
	}
	return nil
}

func (r *ProviderRepo) GetProvider(ctx context.Context, id string) (*domain.Provider, error) {
	row := r.db.QueryRowContext(ctx, "SELECT * FROM providers WHERE id = ?", id)
	p, err := scanProvider(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.E(domain.KindNotFound, "id", "provider not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get provider: %w", err)
	}
	return p, nil
}

// UpdateOnboarding moves the onboarding state and the external account
// identifier in one statement so the pair never tears.
func (r *ProviderRepo) UpdateOnboarding(ctx context.Context, id string, state domain.OnboardingState, externalAccountID string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE providers SET onboarding_state = ?, external_account_id = ?, updated_at = ? WHERE id = ?",
		string(state), nullableString(externalAccountID),
		time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("update onboarding: %w", err)
	}
	ra, _ := res.RowsAffected()
	if ra == 0 {
		return domain.E(domain.KindNotFound, "id", "provider not found")
	}
	return nil
}

type ProviderFilter struct {
	Country string
	State   string
	Page    int
	Limit   int
}

func (r *ProviderRepo) List(ctx context.Context, f ProviderFilter) ([]domain.Provider, int, error) {
	where := ""
	var args []any
	if f.Country != "" {
		where = " WHERE country = ?"
		args = append(args, f.Country)
	}
	if f.State != "" {
		if where == "" {
			where = " WHERE onboarding_state = ?"
		} else {
			where += " AND onboarding_state = ?"
		}
		args = append(args, f.State)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM providers"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count: %w", err)
	}

	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	args = append(args, f.Limit, (f.Page-1)*f.Limit)

	rows, err := r.db.QueryContext(ctx,
		"SELECT * FROM providers"+where+" ORDER BY created_at DESC LIMIT ? OFFSET ?", args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var providers []domain.Provider
	for rows.Next() {
		p, err := scanProviderRows(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan: %w", err)
		}
		providers = append(providers, *p)
	}
	return providers, total, rows.Err()
}

// --- helpers ---

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type providerScanner interface {
	Scan(dest ...any) error
}

func scanProviderFrom(sc providerScanner) (*domain.Provider, error) {
	var p domain.Provider
	var businessType, state, createdAt, updatedAt string
	var firstName, lastName, businessName, address, city, st, postalCode, accountID sql.NullString

	err := sc.Scan(
		&p.ID, &businessType, &firstName, &lastName, &businessName, &p.Email,
		&p.Country, &p.Currency, &address, &city, &st, &postalCode,
		&accountID, &state, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.BusinessType = domain.BusinessType(businessType)
	p.OnboardingState = domain.OnboardingState(state)
	p.FirstName = firstName.String
	p.LastName = lastName.String
	p.BusinessName = businessName.String
	p.Address = address.String
	p.City = city.String
	p.State = st.String
	p.PostalCode = postalCode.String
	p.ExternalAccountID = accountID.String
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return &p, nil
}

func scanProvider(row *sql.Row) (*domain.Provider, error) {
	return scanProviderFrom(row)
}

func scanProviderRows(rows *sql.Rows) (*domain.Provider, error) {
	return scanProviderFrom(rows)
}
