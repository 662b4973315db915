package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Connect opens a pgx pool and verifies it with a ping.
func Connect(ctx context.Context, dsn string, log *zap.Logger) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	log.Info("connected to postgres")
	return pool, nil
}

// EnsureSchema creates any missing tables and indexes. Every statement is
// idempotent so it runs on each start.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, log *zap.Logger) error {
	steps := []struct {
		name string
		fn   func(context.Context, *pgxpool.Pool) error
	}{
		{"users", ensureUsersTable},
		{"wallets", ensureWalletsTable},
		{"transactions", ensureTransactionsTable},
		{"kyc_documents", ensureKYCDocumentsTable},
		{"crypto_prices", ensureCryptoPricesTable},
	}
	for _, step := range steps {
		if err := step.fn(ctx, pool); err != nil {
			return fmt.Errorf("ensure %s: %w", step.name, err)
		}
		log.Debug("schema ensured", zap.String("table", step.name))
	}
	return nil
}

func ensureUsersTable(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS users (
            id UUID PRIMARY KEY,
            username TEXT NOT NULL UNIQUE,
            email TEXT NOT NULL UNIQUE,
            password TEXT NOT NULL,
            first_name TEXT NOT NULL DEFAULT '',
            last_name TEXT NOT NULL DEFAULT '',
            phone TEXT NOT NULL DEFAULT '',
            role TEXT NOT NULL DEFAULT 'user',
            is_kyc_verified BOOLEAN NOT NULL DEFAULT FALSE,
            two_factor_enabled BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`)
	return err
}

func ensureWalletsTable(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS wallets (
            id UUID PRIMARY KEY,
            user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            currency TEXT NOT NULL,
            balance NUMERIC(38,18) NOT NULL DEFAULT 0 CHECK (balance >= 0),
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            UNIQUE (user_id, currency)
        )`)
	return err
}

func ensureTransactionsTable(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS transactions (
            id UUID PRIMARY KEY,
            user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            transaction_type TEXT NOT NULL,
            from_currency TEXT NOT NULL,
            to_currency TEXT NOT NULL,
            amount NUMERIC(38,18) NOT NULL CHECK (amount > 0),
            rate NUMERIC(38,18) NOT NULL,
            fee NUMERIC(38,18) NOT NULL DEFAULT 0,
            status TEXT NOT NULL,
            recipient_address TEXT NOT NULL DEFAULT '',
            correlation_id UUID NOT NULL,
            note TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            completed_at TIMESTAMPTZ
        )`); err != nil {
		return err
	}
	_, err := pool.Exec(ctx, `
        CREATE INDEX IF NOT EXISTS transactions_user_created_idx
        ON transactions (user_id, created_at DESC)`)
	return err
}

func ensureKYCDocumentsTable(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS kyc_documents (
            id UUID PRIMARY KEY,
            user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            document_type TEXT NOT NULL,
            document_number TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            reviewed_by TEXT NOT NULL DEFAULT '',
            rejection_reason TEXT NOT NULL DEFAULT '',
            uploaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            verified_at TIMESTAMPTZ
        )`); err != nil {
		return err
	}
	_, err := pool.Exec(ctx, `
        CREATE INDEX IF NOT EXISTS kyc_documents_user_uploaded_idx
        ON kyc_documents (user_id, uploaded_at DESC)`)
	return err
}

func ensureCryptoPricesTable(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS crypto_prices (
            symbol TEXT PRIMARY KEY,
            price_usd NUMERIC(38,18) NOT NULL,
            price_inr NUMERIC(38,18) NOT NULL,
            change_24h NUMERIC(20,8) NOT NULL DEFAULT 0,
            market_cap NUMERIC(38,2) NOT NULL DEFAULT 0,
            volume_24h NUMERIC(38,2) NOT NULL DEFAULT 0,
            last_updated TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`)
	return err
}
