package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monetra/backend/internal/domain"
)

// recordingDB captures the statements a repository sends.
type recordingDB struct {
	sql  []string
	args [][]any
	row  pgx.Row
	tag  pgconn.CommandTag
}

func (d *recordingDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	d.record(sql, args)
	return d.tag, nil
}

func (d *recordingDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	d.record(sql, args)
	return nil, errors.New("query not supported")
}

func (d *recordingDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	d.record(sql, args)
	return d.row
}

func (d *recordingDB) record(sql string, args []any) {
	d.sql = append(d.sql, strings.Join(strings.Fields(sql), " "))
	d.args = append(d.args, args)
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

func TestMarkSucceededOnlyFromPending(t *testing.T) {
	db := &recordingDB{row: errRow{err: pgx.ErrNoRows}}
	repo := NewOrderRepository(db)

	ok, err := repo.MarkSucceeded(context.Background(), &domain.Order{ID: "ord_1"}, "pay_1")
	require.NoError(t, err)
	assert.False(t, ok, "no row returned means the order was not pending")

	require.Len(t, db.sql, 1)
	assert.Contains(t, db.sql[0], "UPDATE orders SET status = 'succeeded', gateway_payment_id = $1")
	assert.Contains(t, db.sql[0], "WHERE id = $2 AND status = 'pending'")
	assert.Equal(t, []any{"pay_1", "ord_1"}, db.args[0])
}

func TestMarkSucceededWrapsErrors(t *testing.T) {
	db := &recordingDB{row: errRow{err: errors.New("connection reset")}}

	ok, err := NewOrderRepository(db).MarkSucceeded(context.Background(), &domain.Order{ID: "ord_1"}, "pay_1")
	assert.False(t, ok)
	assert.ErrorContains(t, err, "connection reset")
}

func TestOrderLocksUseForUpdate(t *testing.T) {
	db := &recordingDB{row: errRow{err: pgx.ErrNoRows}}
	repo := NewOrderRepository(db)
	ctx := context.Background()

	o, err := repo.LockByID(ctx, "ord_1")
	require.NoError(t, err)
	assert.Nil(t, o)
	o, err = repo.LockByGatewayOrderID(ctx, "order_1")
	require.NoError(t, err)
	assert.Nil(t, o)

	require.Len(t, db.sql, 2)
	assert.True(t, strings.HasSuffix(db.sql[0], "FROM orders WHERE id = $1 FOR UPDATE"), db.sql[0])
	assert.True(t, strings.HasSuffix(db.sql[1], "FROM orders WHERE gateway_order_id = $1 FOR UPDATE"), db.sql[1])
}

func TestMembershipUpsertKeepsRowIdentity(t *testing.T) {
	db := &recordingDB{row: errRow{err: errors.New("stop")}}
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	err := NewMembershipRepository(db).Upsert(context.Background(), &domain.Membership{
		ID: "m1", UserID: "u1", Tier: domain.TierPro, Status: domain.MembershipActive,
		CurrentPeriodStart: now, CurrentPeriodEnd: now.AddDate(1, 0, 0), CreatedAt: now, UpdatedAt: now,
	})
	require.Error(t, err)

	require.Len(t, db.sql, 1)
	q := db.sql[0]
	assert.Contains(t, q, "ON CONFLICT (user_id) DO UPDATE")
	set := q[strings.Index(q, "DO UPDATE"):]
	assert.NotContains(t, set, "id = EXCLUDED.id")
	assert.NotContains(t, set, "created_at = EXCLUDED.created_at")
	assert.Contains(t, set, "current_period_end = EXCLUDED.current_period_end")
	assert.Contains(t, q, "RETURNING "+membershipColumns)
}

func TestExpireLapsedStatement(t *testing.T) {
	db := &recordingDB{tag: pgconn.NewCommandTag("UPDATE 2")}
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	n, err := NewMembershipRepository(db).ExpireLapsed(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.Len(t, db.sql, 1)
	assert.Contains(t, db.sql[0], "SET status = CASE WHEN auto_renew THEN 'past_due' ELSE 'expired' END")
	assert.Contains(t, db.sql[0], "WHERE status = 'active' AND current_period_end <= $1")
	assert.Equal(t, []any{now}, db.args[0])
}
