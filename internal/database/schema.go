package database

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// schemaStatements is plain SQL accepted by both Postgres and SQLite.
// Money is stored in integer minor units.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		document VARCHAR(14) NOT NULL UNIQUE,
		password VARCHAR(255) NOT NULL,
		name VARCHAR(100) NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tokens (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token VARCHAR(1024) NOT NULL UNIQUE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		branch VARCHAR(3) NOT NULL,
		account VARCHAR(9) NOT NULL UNIQUE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS cards (
		id TEXT PRIMARY KEY,
		type VARCHAR(8) NOT NULL CHECK (type IN ('physical', 'virtual')),
		number VARCHAR(19) NOT NULL,
		cvv VARCHAR(3) NOT NULL,
		account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS unique_physical_card_per_account
		ON cards (account_id) WHERE type = 'physical'`,
	`CREATE TABLE IF NOT EXISTS balances (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
		value_cents BIGINT NOT NULL DEFAULT 0 CONSTRAINT balances_value_non_negative CHECK (value_cents >= 0),
		description VARCHAR(255) NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		type VARCHAR(6) NOT NULL CHECK (type IN ('credit', 'debit')),
		value_cents BIGINT NOT NULL CHECK (value_cents > 0),
		description VARCHAR(255) NOT NULL,
		account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		balance_id_source TEXT NOT NULL REFERENCES balances(id) ON DELETE CASCADE,
		balance_id_destination TEXT REFERENCES balances(id) ON DELETE CASCADE,
		reversed_from_id TEXT UNIQUE REFERENCES transactions(id) ON DELETE SET NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_account_created
		ON transactions (account_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_balance_source
		ON transactions (balance_id_source)`,
	`CREATE INDEX IF NOT EXISTS idx_accounts_user_id ON accounts (user_id)`,
}

// Migrate creates the ledger schema if it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	zap.L().Info("Database schema ready", zap.Int("statements", len(schemaStatements)))
	return nil
}
