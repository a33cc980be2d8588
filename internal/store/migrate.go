/**
 * @description
 * Schema bootstrap for the ledger database. EnsureSchema runs idempotent
 * CREATE TABLE IF NOT EXISTS statements at startup so a fresh database is
 * usable without an external migration step.
 */

package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		email TEXT NOT NULL,
		phone TEXT NOT NULL,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		id UUID PRIMARY KEY,
		owner_id UUID NOT NULL REFERENCES users(id),
		balance DOUBLE PRECISION NOT NULL DEFAULT 0,
		variant TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL,
		interest_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
		min_balance DOUBLE PRECISION NOT NULL DEFAULT 0,
		overdraft_limit DOUBLE PRECISION NOT NULL DEFAULT 0,
		term_months INTEGER NOT NULL DEFAULT 0,
		maturity_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_accounts_owner ON accounts(owner_id)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id UUID PRIMARY KEY,
		account_id UUID NOT NULL REFERENCES accounts(id),
		amount DOUBLE PRECISION NOT NULL,
		kind TEXT NOT NULL,
		ts TIMESTAMPTZ NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		related_account_id UUID
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account_id, ts)`,
	`CREATE TABLE IF NOT EXISTS loans (
		id UUID PRIMARY KEY,
		owner_id UUID NOT NULL REFERENCES users(id),
		principal DOUBLE PRECISION NOT NULL,
		interest_rate DOUBLE PRECISION NOT NULL,
		term_months INTEGER NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		remaining_amount DOUBLE PRECISION NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_loans_owner ON loans(owner_id)`,
	`CREATE INDEX IF NOT EXISTS idx_loans_status ON loans(status)`,
	`CREATE TABLE IF NOT EXISTS fraud_flags (
		id UUID PRIMARY KEY,
		transaction_id UUID NOT NULL REFERENCES transactions(id),
		reasons TEXT[] NOT NULL,
		ts TIMESTAMPTZ NOT NULL,
		status TEXT NOT NULL
	)`,
}

// EnsureSchema creates the ledger tables when they do not exist yet.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
