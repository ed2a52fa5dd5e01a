package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/monetra/backend/internal/domain"
	"github.com/monetra/backend/internal/repository"
)

// UserStore persists accounts.
type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

// ExpenseStore persists expenses.
type ExpenseStore interface {
	Create(ctx context.Context, e *domain.Expense, amount float64) error
	FindByID(ctx context.Context, id, userID string) (*domain.Expense, error)
	List(ctx context.Context, userID string, f domain.ExpenseFilter) ([]*domain.Expense, int, error)
	Update(ctx context.Context, e *domain.Expense, amount *float64) error
	Delete(ctx context.Context, id, userID string) (bool, error)
	CategoryTotals(ctx context.Context, userID string, f domain.ExpenseFilter) ([]domain.CategoryTotal, string, error)
}

// BalanceStore persists opening balances.
type BalanceStore interface {
	Set(ctx context.Context, userID string, amount float64) error
	Get(ctx context.Context, userID string) (*domain.Balance, error)
}

// PlanStore reads the plan catalog.
type PlanStore interface {
	List(ctx context.Context) ([]*domain.MembershipPlan, error)
	FindByID(ctx context.Context, id string) (*domain.MembershipPlan, error)
}

// OrderStore persists payment orders.
type OrderStore interface {
	Create(ctx context.Context, o *domain.Order) error
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Order, error)
	LockByID(ctx context.Context, id string) (*domain.Order, error)
	LockByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Order, error)
	MarkSucceeded(ctx context.Context, o *domain.Order, paymentID string) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Order, error)
}

// MembershipStore persists memberships.
type MembershipStore interface {
	FindByUserID(ctx context.Context, userID string) (*domain.Membership, error)
	Upsert(ctx context.Context, m *domain.Membership) error
	ExpireLapsed(ctx context.Context, now time.Time) (int64, error)
}

// Stores groups the repositories bound to one connection or transaction.
type Stores struct {
	Plans       PlanStore
	Orders      OrderStore
	Memberships MembershipStore
}

// TxRunner runs fn atomically. Any error returned by fn rolls back every
// write made through the Stores it was given.
type TxRunner interface {
	InTx(ctx context.Context, fn func(s Stores) error) error
}

type pgTxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner returns a TxRunner backed by a PostgreSQL transaction.
func NewTxRunner(pool *pgxpool.Pool) TxRunner {
	return &pgTxRunner{pool: pool}
}

func (r *pgTxRunner) InTx(ctx context.Context, fn func(s Stores) error) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(Stores{
			Plans:       repository.NewPlanRepository(tx),
			Orders:      repository.NewOrderRepository(tx),
			Memberships: repository.NewMembershipRepository(tx),
		})
	})
}
