package repository

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB opens (or creates) a SQLite database at the given path and ensures
// all required tables exist. Pass ":memory:" for an in-memory database.
func InitDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS providers (
			id TEXT PRIMARY KEY,
			business_type TEXT NOT NULL,
			first_name TEXT,
			last_name TEXT,
			business_name TEXT,
			email TEXT NOT NULL,
			country TEXT NOT NULL,
			currency TEXT NOT NULL,
			address TEXT,
			city TEXT,
			state TEXT,
			postal_code TEXT,
			external_account_id TEXT,
			onboarding_state TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_providers_state ON providers(onboarding_state)`,
		`CREATE INDEX IF NOT EXISTS idx_providers_country ON providers(country)`,

		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			provider_id TEXT NOT NULL,
			amount_minor_units INTEGER NOT NULL,
			currency TEXT NOT NULL,
			description TEXT,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (provider_id) REFERENCES providers(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_provider ON transactions(provider_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions(created_at)`,

		`CREATE TABLE IF NOT EXISTS payouts (
			id TEXT PRIMARY KEY,
			transaction_id TEXT UNIQUE NOT NULL,
			provider_id TEXT NOT NULL,
			currency TEXT NOT NULL,
			processor_cost INTEGER NOT NULL,
			platform_fee INTEGER NOT NULL,
			provider_payout INTEGER NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (transaction_id) REFERENCES transactions(id),
			FOREIGN KEY (provider_id) REFERENCES providers(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_payouts_provider ON payouts(provider_id)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:60], err)
		}
	}

	return nil
}
