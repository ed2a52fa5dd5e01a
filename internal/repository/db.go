package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx so repositories can run
// inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewDB creates a new PostgreSQL connection pool. The first ping is retried
// with exponential backoff so the API can start alongside the database.
func NewDB(ctx context.Context, databaseURL string, logger *slog.Logger) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 30 * time.Second
	ping := func() error { return pool.Ping(ctx) }
	notify := func(err error, wait time.Duration) {
		logger.Warn("database not reachable yet", "err", err, "retry_in", wait)
	}

	if err := backoff.RetryNotify(ping, backoff.WithContext(policy, ctx), notify); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// RunMigrations executes the schema migration.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	query := `
		CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			email      TEXT NOT NULL UNIQUE,
			password   TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS expenses (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			amount       NUMERIC(12,2) NOT NULL CHECK (amount > 0),
			date         TIMESTAMPTZ NOT NULL,
			category     TEXT NOT NULL,
			category_key TEXT NOT NULL,
			title        TEXT NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_expenses_user_date ON expenses(user_id, date DESC);
		CREATE INDEX IF NOT EXISTS idx_expenses_user_category ON expenses(user_id, category_key);

		CREATE TABLE IF NOT EXISTS balances (
			user_id    TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			amount     NUMERIC(12,2) NOT NULL CHECK (amount >= 0),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS membership_plans (
			id         TEXT PRIMARY KEY,
			tier       TEXT NOT NULL CHECK (tier IN ('pro', 'ultra', 'max')),
			price      NUMERIC(10,2) NOT NULL,
			tenure     TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS orders (
			id                 TEXT PRIMARY KEY,
			user_id            TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			plan_id            TEXT NOT NULL REFERENCES membership_plans(id),
			gateway_order_id   TEXT UNIQUE,
			gateway_payment_id TEXT,
			amount             BIGINT NOT NULL,
			currency           TEXT NOT NULL,
			status             TEXT NOT NULL DEFAULT 'pending'
			                   CHECK (status IN ('pending', 'succeeded', 'failed', 'refunded')),
			metadata           JSONB,
			created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders(user_id);

		CREATE TABLE IF NOT EXISTS memberships (
			id                   TEXT PRIMARY KEY,
			user_id              TEXT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
			tier                 TEXT NOT NULL,
			status               TEXT NOT NULL
			                     CHECK (status IN ('active', 'canceled', 'expired', 'past_due')),
			current_period_start TIMESTAMPTZ NOT NULL,
			current_period_end   TIMESTAMPTZ NOT NULL,
			auto_renew           BOOLEAN NOT NULL DEFAULT TRUE,
			created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_memberships_status_end ON memberships(status, current_period_end);
	`
	_, err := pool.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
