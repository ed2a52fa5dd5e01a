package repository

import (
	"context"
	"fmt"

	"github.com/monetra/backend/internal/domain"
)

// BalanceRepository handles the per-user opening balance.
type BalanceRepository struct {
	db DBTX
}

// NewBalanceRepository creates a new BalanceRepository.
func NewBalanceRepository(db DBTX) *BalanceRepository {
	return &BalanceRepository{db: db}
}

// Set inserts or replaces the user's opening balance.
func (r *BalanceRepository) Set(ctx context.Context, userID string, amount float64) error {
	query := `
		INSERT INTO balances (user_id, amount, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET amount = EXCLUDED.amount, updated_at = NOW()
	`
	if _, err := r.db.Exec(ctx, query, userID, amount); err != nil {
		return fmt.Errorf("failed to set balance: %w", err)
	}
	return nil
}

// Get returns the opening balance, total spending and what remains. Users
// without a balance row start at zero.
func (r *BalanceRepository) Get(ctx context.Context, userID string) (*domain.Balance, error) {
	query := `
		SELECT
			COALESCE(b.amount, 0)::numeric(14,2)::text,
			COALESCE(s.spent, 0)::numeric(14,2)::text,
			(COALESCE(b.amount, 0) - COALESCE(s.spent, 0))::numeric(14,2)::text,
			COALESCE(b.updated_at, 'epoch'::timestamptz)
		FROM (SELECT $1::text AS user_id) u
		LEFT JOIN balances b ON b.user_id = u.user_id
		LEFT JOIN (SELECT user_id, SUM(amount) AS spent FROM expenses WHERE user_id = $1 GROUP BY user_id) s
			ON s.user_id = u.user_id
	`
	var bal domain.Balance
	if err := r.db.QueryRow(ctx, query, userID).Scan(&bal.Balance, &bal.Spent, &bal.Remaining, &bal.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to read balance: %w", err)
	}
	return &bal, nil
}
