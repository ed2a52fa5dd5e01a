package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/sonyflake"

	"github.com/monetra/backend/internal/domain"
	"github.com/monetra/backend/pkg/payment"
)

// EventMembershipActivated is pushed to the user after a successful reconcile.
const EventMembershipActivated = "membership.activated"

// Notifier delivers realtime events to a user's open connections.
type Notifier interface {
	Notify(userID, eventType string, data any)
}

// PaymentOptions carries the gateway secrets and order defaults.
type PaymentOptions struct {
	KeySecret      string
	WebhookSecret  string
	Currency       string
	GatewayTimeout time.Duration
}

// PaymentService creates gateway orders and reconciles confirmed payments
// into memberships.
type PaymentService struct {
	plans       PlanStore
	orders      OrderStore
	memberships MembershipStore
	tx          TxRunner
	gateway     payment.Gateway
	notifier    Notifier
	opts        PaymentOptions
	ids         *sonyflake.Sonyflake
	logger      *slog.Logger
	now         func() time.Time
}

// NewPaymentService creates a new PaymentService. stores are the
// non-transactional repositories; tx opens transactional ones.
func NewPaymentService(stores Stores, tx TxRunner, gateway payment.Gateway, notifier Notifier, opts PaymentOptions, logger *slog.Logger) *PaymentService {
	return &PaymentService{
		plans:       stores.Plans,
		orders:      stores.Orders,
		memberships: stores.Memberships,
		tx:          tx,
		gateway:     gateway,
		notifier:    notifier,
		opts:        opts,
		ids:         newSonyflake(),
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// newSonyflake falls back to a fixed machine ID when none can be derived
// from a private network address (containers without one, CI).
func newSonyflake() *sonyflake.Sonyflake {
	if sf := sonyflake.NewSonyflake(sonyflake.Settings{}); sf != nil {
		return sf
	}
	return sonyflake.NewSonyflake(sonyflake.Settings{
		MachineID: func() (uint16, error) { return 1, nil },
	})
}

// ListPlans returns the membership catalog.
func (s *PaymentService) ListPlans(ctx context.Context) ([]*domain.MembershipPlan, error) {
	plans, err := s.plans.List(ctx)
	if err != nil {
		return nil, domain.ErrInternal("failed to list plans", err)
	}
	return plans, nil
}

// CreateOrder opens a gateway order for planID and records it as pending.
// Nothing is persisted when the gateway call fails.
func (s *PaymentService) CreateOrder(ctx context.Context, userID string, req *domain.CreateOrderRequest) (*domain.CreateOrderResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	plan, err := s.plans.FindByID(ctx, req.PlanID)
	if err != nil {
		return nil, domain.ErrInternal("failed to find plan", err)
	}
	if plan == nil {
		return nil, domain.ErrNotFound("plan not found")
	}

	amount, err := domain.MinorUnits(plan.Price)
	if err != nil {
		return nil, domain.ErrInternal("invalid plan price", err)
	}

	localID, err := s.newOrderID(userID)
	if err != nil {
		return nil, domain.ErrInternal("failed to generate order id", err)
	}

	notes := payment.Notes{
		domain.NoteUserID:       userID,
		domain.NotePlanID:       plan.ID,
		domain.NoteLocalOrderID: localID,
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.opts.GatewayTimeout)
	defer cancel()

	gwOrder, err := s.gateway.CreateOrder(gwCtx, payment.OrderRequest{
		Amount:   amount,
		Currency: s.opts.Currency,
		Receipt:  localID,
		Notes:    notes,
	})
	if err != nil {
		s.logger.Error("gateway order creation failed", "gateway", s.gateway.Name(), "order_id", localID, "err", err)
		return nil, domain.ErrExternalService("failed to create payment order", err)
	}

	metadata, err := json.Marshal(notes)
	if err != nil {
		return nil, domain.ErrInternal("failed to encode order metadata", err)
	}

	now := s.now()
	order := &domain.Order{
		ID:             localID,
		UserID:         userID,
		PlanID:         plan.ID,
		GatewayOrderID: &gwOrder.ID,
		Amount:         amount,
		Currency:       s.opts.Currency,
		Status:         domain.OrderPending,
		Metadata:       metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, domain.ErrInternal("failed to save order", err)
	}

	s.logger.Info("order created", "order_id", order.ID, "gateway_order_id", gwOrder.ID, "plan_id", plan.ID, "amount", amount)
	return &domain.CreateOrderResponse{Order: order, KeyID: s.gateway.KeyID()}, nil
}

func (s *PaymentService) newOrderID(userID string) (string, error) {
	if s.ids == nil {
		return "", errors.New("id generator unavailable")
	}
	id, err := s.ids.NextID()
	if err != nil {
		return "", err
	}
	prefix := userID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return fmt.Sprintf("ord_%d_%s", id, prefix), nil
}

// VerifyPayment handles the client-return callback after checkout.
func (s *PaymentService) VerifyPayment(ctx context.Context, userID string, req *domain.VerifyPaymentRequest) (*domain.ReconcileResult, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if !payment.VerifyPaymentSignature(req.GatewayOrderID, req.GatewayPaymentID, req.Signature, s.opts.KeySecret) {
		s.logger.Warn("payment signature mismatch", "gateway_order_id", req.GatewayOrderID, "user_id", userID)
		return nil, domain.ErrInvalidSignature()
	}

	return s.Reconcile(ctx, domain.PaymentEvent{
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		UserID:           userID,
		PlanID:           req.PlanID,
	})
}

// HandleWebhook verifies and applies a gateway webhook. It returns a nil
// result for events that were acknowledged without any state change.
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) (*domain.ReconcileResult, error) {
	if !payment.VerifyWebhookSignature(body, signature, s.opts.WebhookSecret) {
		s.logger.Warn("webhook signature mismatch")
		return nil, domain.ErrInvalidSignature()
	}

	event, err := payment.ParseEvent(body)
	if err != nil {
		s.logger.Warn("malformed webhook", "err", err)
		return nil, domain.ErrBadRequest("malformed webhook payload")
	}

	captured, ok := event.(payment.PaymentCaptured)
	if !ok {
		s.logger.Info("webhook ignored", "event", event.Type())
		return nil, nil
	}

	userID := captured.Notes[domain.NoteUserID]
	planID := captured.Notes[domain.NotePlanID]
	if userID == "" || planID == "" {
		s.logger.Warn("webhook missing metadata", "gateway_order_id", captured.GatewayOrderID)
		return nil, domain.ErrBadRequest("payment metadata missing user or plan")
	}

	result, err := s.Reconcile(ctx, domain.PaymentEvent{
		OrderID:          captured.Notes[domain.NoteLocalOrderID],
		GatewayOrderID:   captured.GatewayOrderID,
		GatewayPaymentID: captured.PaymentID,
		UserID:           userID,
		PlanID:           planID,
	})
	if err != nil {
		if appErr, ok := domain.AsAppError(err); ok && appErr.Code == http.StatusNotFound && appErr.Message == msgPlanNotFound {
			s.logger.Error("webhook dropped: plan not found", "plan_id", planID, "gateway_order_id", captured.GatewayOrderID)
			return nil, nil
		}
		return nil, err
	}
	return result, nil
}

const msgPlanNotFound = "plan not found"

// Reconcile activates the membership an order paid for and marks the order
// succeeded, atomically. Replaying an already settled order changes nothing.
func (s *PaymentService) Reconcile(ctx context.Context, ev domain.PaymentEvent) (*domain.ReconcileResult, error) {
	var result domain.ReconcileResult

	err := s.tx.InTx(ctx, func(st Stores) error {
		order, err := lockOrder(ctx, st.Orders, ev)
		if err != nil {
			return err
		}
		if order == nil {
			return domain.ErrNotFound("order not found")
		}
		if (ev.OrderID != "" && ev.OrderID != order.ID) || ev.UserID != order.UserID || ev.PlanID != order.PlanID {
			return domain.ErrBadRequest("payment metadata does not match order")
		}
		result.Order = order

		if order.Status == domain.OrderSucceeded {
			result.Replayed = true
			m, err := st.Memberships.FindByUserID(ctx, order.UserID)
			if err != nil {
				return domain.ErrInternal("failed to find membership", err)
			}
			result.Membership = m
			return nil
		}
		if order.Status != domain.OrderPending {
			return domain.ErrConflict(fmt.Sprintf("order is %s", order.Status))
		}

		plan, err := st.Plans.FindByID(ctx, order.PlanID)
		if err != nil {
			return domain.ErrInternal("failed to find plan", err)
		}
		if plan == nil {
			return domain.ErrNotFound(msgPlanNotFound)
		}

		existing, err := st.Memberships.FindByUserID(ctx, order.UserID)
		if err != nil {
			return domain.ErrInternal("failed to find membership", err)
		}

		now := s.now()
		m := &domain.Membership{
			ID:                 domain.NewID(),
			UserID:             order.UserID,
			Tier:               plan.Tier,
			Status:             domain.MembershipActive,
			CurrentPeriodStart: now,
			CurrentPeriodEnd:   domain.PeriodEnd(now, plan.Tenure),
			AutoRenew:          true,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if existing != nil {
			m.ID = existing.ID
			m.CreatedAt = existing.CreatedAt
		}
		if err := st.Memberships.Upsert(ctx, m); err != nil {
			return domain.ErrInternal("failed to save membership", err)
		}

		updated, err := st.Orders.MarkSucceeded(ctx, order, ev.GatewayPaymentID)
		if err != nil {
			return domain.ErrInternal("failed to update order", err)
		}
		if !updated {
			return domain.ErrConflict("order is no longer pending")
		}
		result.Membership = m
		return nil
	})
	if err != nil {
		if _, ok := domain.AsAppError(err); ok {
			return nil, err
		}
		return nil, domain.ErrInternal("failed to reconcile payment", err)
	}

	if result.Replayed {
		s.logger.Info("payment already reconciled", "order_id", result.Order.ID)
		return &result, nil
	}

	s.logger.Info("payment reconciled",
		"order_id", result.Order.ID,
		"user_id", result.Order.UserID,
		"tier", result.Membership.Tier,
		"period_end", result.Membership.CurrentPeriodEnd,
	)
	if s.notifier != nil {
		s.notifier.Notify(result.Order.UserID, EventMembershipActivated, result.Membership)
	}
	return &result, nil
}

func lockOrder(ctx context.Context, orders OrderStore, ev domain.PaymentEvent) (*domain.Order, error) {
	var (
		order *domain.Order
		err   error
	)
	switch {
	case ev.GatewayOrderID != "":
		order, err = orders.LockByGatewayOrderID(ctx, ev.GatewayOrderID)
	case ev.OrderID != "":
		order, err = orders.LockByID(ctx, ev.OrderID)
	default:
		return nil, domain.ErrBadRequest("payment does not reference an order")
	}
	if err != nil {
		return nil, domain.ErrInternal("failed to lock order", err)
	}
	return order, nil
}

// Membership returns userID's membership, or nil if they never had one.
func (s *PaymentService) Membership(ctx context.Context, userID string) (*domain.Membership, error) {
	m, err := s.memberships.FindByUserID(ctx, userID)
	if err != nil {
		return nil, domain.ErrInternal("failed to find membership", err)
	}
	return m, nil
}

// IsPremium reports whether userID currently holds an active membership.
func (s *PaymentService) IsPremium(ctx context.Context, userID string) (bool, error) {
	m, err := s.Membership(ctx, userID)
	if err != nil {
		return false, err
	}
	return m.IsActive(s.now()), nil
}

// Orders returns userID's purchase history.
func (s *PaymentService) Orders(ctx context.Context, userID string) ([]*domain.Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, domain.ErrInternal("failed to list orders", err)
	}
	return orders, nil
}
