package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/monetra/backend/internal/domain"
)

const orderColumns = `id, user_id, plan_id, gateway_order_id, gateway_payment_id, amount, currency, status, metadata, created_at, updated_at`

// OrderRepository handles database operations for payment orders.
type OrderRepository struct {
	db DBTX
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts a new order.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	query := `
		INSERT INTO orders (id, user_id, plan_id, gateway_order_id, gateway_payment_id, amount, currency, status, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.Exec(ctx, query,
		o.ID, o.UserID, o.PlanID, o.GatewayOrderID, o.GatewayPaymentID,
		o.Amount, o.Currency, o.Status, []byte(o.Metadata), o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// FindByID returns an order by its local ID.
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.scanOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

// FindByGatewayOrderID returns the order the gateway knows as gatewayOrderID.
func (r *OrderRepository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Order, error) {
	return r.scanOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE gateway_order_id = $1`, gatewayOrderID)
}

// LockByID reads an order and holds a row lock until the transaction ends.
func (r *OrderRepository) LockByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.scanOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
}

// LockByGatewayOrderID is LockByID keyed by the gateway's order ID.
func (r *OrderRepository) LockByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Order, error) {
	return r.scanOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE gateway_order_id = $1 FOR UPDATE`, gatewayOrderID)
}

// MarkSucceeded moves a pending order to succeeded and records the gateway
// payment ID. It reports false when the order was not pending.
func (r *OrderRepository) MarkSucceeded(ctx context.Context, o *domain.Order, paymentID string) (bool, error) {
	query := `
		UPDATE orders
		SET status = 'succeeded', gateway_payment_id = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'pending'
		RETURNING status, gateway_payment_id, updated_at
	`
	err := r.db.QueryRow(ctx, query, paymentID, o.ID).Scan(&o.Status, &o.GatewayPaymentID, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to mark order succeeded: %w", err)
	}
	return true, nil
}

// ListByUser returns a user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	rows, err := r.db.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *OrderRepository) scanOne(ctx context.Context, query string, args ...any) (*domain.Order, error) {
	o, err := scanOrder(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	return o, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	var metadata []byte
	err := row.Scan(
		&o.ID, &o.UserID, &o.PlanID, &o.GatewayOrderID, &o.GatewayPaymentID,
		&o.Amount, &o.Currency, &o.Status, &metadata, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		o.Metadata = metadata
	}
	return &o, nil
}
