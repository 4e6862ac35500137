package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS account_links (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		provider TEXT NOT NULL,
		provider_id TEXT NOT NULL,
		entity_data JSONB NOT NULL DEFAULT '{}',
		metadata JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (user_id, provider, provider_id)
	)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		enrollment_id TEXT NOT NULL DEFAULT '',
		institution_id TEXT NOT NULL DEFAULT '',
		institution_name TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		last_four TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL,
		subtype TEXT NOT NULL DEFAULT '',
		currency TEXT NOT NULL DEFAULT 'USD',
		status TEXT NOT NULL DEFAULT 'open',
		ledger NUMERIC(14,2) NOT NULL DEFAULT 0,
		available NUMERIC(14,2) NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		date DATE NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		amount NUMERIC(14,2) NOT NULL,
		status TEXT NOT NULL DEFAULT 'posted',
		type TEXT NOT NULL DEFAULT '',
		running_balance NUMERIC(14,2),
		category TEXT NOT NULL DEFAULT '',
		processing_status TEXT NOT NULL DEFAULT 'complete'
	)`,
	`CREATE INDEX IF NOT EXISTS transactions_user_date_idx ON transactions (user_id, date DESC)`,
}

// Migrate crea las tablas si no existen. Es idempotente.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i, err)
		}
	}
	return nil
}
