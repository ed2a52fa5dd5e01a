//go:build integration

package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monetra/backend/internal/domain"
)

// Run with: DATABASE_URL=postgres://... go test -tags integration ./internal/repository/
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, RunMigrations(ctx, pool))
	_, err = NewPlanRepository(pool).SeedDefaults(ctx)
	require.NoError(t, err)
	return pool
}

func createTestUser(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()
	now := time.Now().UTC()
	u := &domain.User{ID: domain.NewID(), Email: domain.NewID() + "@example.com", Password: "x", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, NewUserRepository(pool).Create(context.Background(), u))
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, u.ID)
	})
	return u.ID
}

func TestOrderSettlesOnce(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	userID := createTestUser(t, pool)
	repo := NewOrderRepository(pool)

	gatewayID := "order_" + domain.NewID()
	now := time.Now().UTC()
	o := &domain.Order{
		ID: "ord_" + domain.NewID(), UserID: userID, PlanID: "pro_plan", GatewayOrderID: &gatewayID,
		Amount: 49900, Currency: "INR", Status: domain.OrderPending, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, repo.Create(ctx, o))

	ok, err := repo.MarkSucceeded(ctx, o, "pay_1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.OrderSucceeded, o.Status)

	ok, err = repo.MarkSucceeded(ctx, o, "pay_2")
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := repo.FindByGatewayOrderID(ctx, gatewayID)
	require.NoError(t, err)
	require.NotNil(t, stored.GatewayPaymentID)
	assert.Equal(t, "pay_1", *stored.GatewayPaymentID)

	err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		locked, err := NewOrderRepository(tx).LockByGatewayOrderID(ctx, gatewayID)
		require.NoError(t, err)
		assert.Equal(t, o.ID, locked.ID)
		return nil
	})
	require.NoError(t, err)
}

func TestMembershipUpsertAndExpire(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	userID := createTestUser(t, pool)
	repo := NewMembershipRepository(pool)

	start := time.Now().UTC().Add(-48 * time.Hour).Truncate(time.Microsecond)
	first := &domain.Membership{
		ID: domain.NewID(), UserID: userID, Tier: domain.TierPro, Status: domain.MembershipActive,
		CurrentPeriodStart: start, CurrentPeriodEnd: start.AddDate(1, 0, 0), AutoRenew: true,
		CreatedAt: start, UpdatedAt: start,
	}
	require.NoError(t, repo.Upsert(ctx, first))
	keptID, keptCreated := first.ID, first.CreatedAt

	now := time.Now().UTC().Truncate(time.Microsecond)
	upgrade := &domain.Membership{
		ID: domain.NewID(), UserID: userID, Tier: domain.TierMax, Status: domain.MembershipActive,
		CurrentPeriodStart: now, CurrentPeriodEnd: now.Add(-time.Hour), AutoRenew: false,
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, repo.Upsert(ctx, upgrade))
	assert.Equal(t, keptID, upgrade.ID)
	assert.True(t, keptCreated.Equal(upgrade.CreatedAt))
	assert.Equal(t, domain.TierMax, upgrade.Tier)

	n, err := repo.ExpireLapsed(ctx, now)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))

	m, err := repo.FindByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, domain.MembershipExpired, m.Status)

	_, err = repo.ExpireLapsed(ctx, now)
	require.NoError(t, err)
	m, err = repo.FindByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, domain.MembershipExpired, m.Status, "already lapsed rows are left alone")
}
