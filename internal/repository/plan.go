package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/monetra/backend/internal/domain"
)

// PlanRepository reads the membership plan catalog.
type PlanRepository struct {
	db DBTX
}

// NewPlanRepository creates a new PlanRepository.
func NewPlanRepository(db DBTX) *PlanRepository {
	return &PlanRepository{db: db}
}

// List returns every plan, cheapest first.
func (r *PlanRepository) List(ctx context.Context) ([]*domain.MembershipPlan, error) {
	query := `
		SELECT id, tier, price::text, tenure, created_at, updated_at
		FROM membership_plans ORDER BY price ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query plans: %w", err)
	}
	defer rows.Close()

	plans := []*domain.MembershipPlan{}
	for rows.Next() {
		var p domain.MembershipPlan
		if err := rows.Scan(&p.ID, &p.Tier, &p.Price, &p.Tenure, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan plan row: %w", err)
		}
		plans = append(plans, &p)
	}
	return plans, rows.Err()
}

// FindByID returns a plan, or nil if it does not exist.
func (r *PlanRepository) FindByID(ctx context.Context, id string) (*domain.MembershipPlan, error) {
	query := `
		SELECT id, tier, price::text, tenure, created_at, updated_at
		FROM membership_plans WHERE id = $1
	`
	var p domain.MembershipPlan
	err := r.db.QueryRow(ctx, query, id).Scan(&p.ID, &p.Tier, &p.Price, &p.Tenure, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find plan: %w", err)
	}
	return &p, nil
}

// SeedDefaults inserts the default catalog. Existing rows are left alone so
// prices edited in the database survive restarts.
func (r *PlanRepository) SeedDefaults(ctx context.Context) (int, error) {
	query := `
		INSERT INTO membership_plans (id, tier, price, tenure)
		VALUES ($1, $2, $3::numeric, $4)
		ON CONFLICT (id) DO NOTHING
	`
	inserted := 0
	for _, p := range domain.DefaultPlans() {
		tag, err := r.db.Exec(ctx, query, p.ID, p.Tier, p.Price, p.Tenure)
		if err != nil {
			return inserted, fmt.Errorf("failed to seed plan %s: %w", p.ID, err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}
