package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/monetra/backend/internal/domain"
)

const membershipColumns = `id, user_id, tier, status, current_period_start, current_period_end, auto_renew, created_at, updated_at`

// MembershipRepository handles database operations for memberships.
type MembershipRepository struct {
	db DBTX
}

// NewMembershipRepository creates a new MembershipRepository.
func NewMembershipRepository(db DBTX) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// FindByUserID returns the user's membership regardless of status, or nil.
func (r *MembershipRepository) FindByUserID(ctx context.Context, userID string) (*domain.Membership, error) {
	m, err := scanMembership(r.db.QueryRow(ctx, `SELECT `+membershipColumns+` FROM memberships WHERE user_id = $1`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find membership: %w", err)
	}
	return m, nil
}

// Upsert creates the user's membership or overwrites the existing row in
// place. The row ID and created_at of an existing membership are kept; m is
// updated with the stored values.
func (r *MembershipRepository) Upsert(ctx context.Context, m *domain.Membership) error {
	query := `
		INSERT INTO memberships (id, user_id, tier, status, current_period_start, current_period_end, auto_renew, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE
		SET tier = EXCLUDED.tier,
		    status = EXCLUDED.status,
		    current_period_start = EXCLUDED.current_period_start,
		    current_period_end = EXCLUDED.current_period_end,
		    auto_renew = EXCLUDED.auto_renew,
		    updated_at = EXCLUDED.updated_at
		RETURNING ` + membershipColumns
	stored, err := scanMembership(r.db.QueryRow(ctx, query,
		m.ID, m.UserID, m.Tier, m.Status, m.CurrentPeriodStart, m.CurrentPeriodEnd,
		m.AutoRenew, m.CreatedAt, m.UpdatedAt,
	))
	if err != nil {
		return fmt.Errorf("failed to upsert membership: %w", err)
	}
	*m = *stored
	return nil
}

// ExpireLapsed moves active memberships whose period ended before now to
// past_due (auto-renewing) or expired. It returns the number of rows changed.
func (r *MembershipRepository) ExpireLapsed(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE memberships
		SET status = CASE WHEN auto_renew THEN 'past_due' ELSE 'expired' END,
		    updated_at = $1
		WHERE status = 'active' AND current_period_end <= $1
	`
	tag, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire memberships: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanMembership(row pgx.Row) (*domain.Membership, error) {
	var m domain.Membership
	err := row.Scan(
		&m.ID, &m.UserID, &m.Tier, &m.Status,
		&m.CurrentPeriodStart, &m.CurrentPeriodEnd, &m.AutoRenew,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
