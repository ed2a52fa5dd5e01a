package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monetra/backend/internal/domain"
	"github.com/monetra/backend/internal/service"
	"github.com/monetra/backend/internal/testutil"
	"github.com/monetra/backend/pkg/payment"
)

const (
	keySecret     = "key_secret_test"
	webhookSecret = "webhook_secret_test"
	userID        = "3f2b8c1e-9d4a-4e57-8b1f-0a6c2d9e7f10"
)

type paymentFixture struct {
	store    *testutil.Store
	gateway  *payment.MockGateway
	notifier *testutil.Notifier
	svc      *service.PaymentService
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	store := testutil.NewStore()
	store.SeedPlans()
	gw := payment.NewMockGateway()
	notifier := &testutil.Notifier{}
	svc := service.NewPaymentService(store.Stores(), store, gw, notifier, service.PaymentOptions{
		KeySecret:      keySecret,
		WebhookSecret:  webhookSecret,
		Currency:       "INR",
		GatewayTimeout: time.Second,
	}, testutil.Logger())
	return &paymentFixture{store: store, gateway: gw, notifier: notifier, svc: svc}
}

func (f *paymentFixture) createOrder(t *testing.T, user, planID string) *domain.Order {
	t.Helper()
	resp, err := f.svc.CreateOrder(context.Background(), user, &domain.CreateOrderRequest{PlanID: planID})
	require.NoError(t, err)
	return resp.Order
}

func capturedBody(t *testing.T, o *domain.Order, paymentID string, notes map[string]string) []byte {
	t.Helper()
	if notes == nil {
		notes = map[string]string{
			domain.NoteUserID:       o.UserID,
			domain.NotePlanID:       o.PlanID,
			domain.NoteLocalOrderID: o.ID,
		}
	}
	body, err := json.Marshal(map[string]any{
		"event": payment.EventPaymentCaptured,
		"payload": map[string]any{
			"payment": map[string]any{
				"entity": map[string]any{
					"id":       paymentID,
					"order_id": *o.GatewayOrderID,
					"amount":   o.Amount,
					"currency": o.Currency,
					"notes":    notes,
				},
			},
		},
	})
	require.NoError(t, err)
	return body
}

func (f *paymentFixture) webhook(t *testing.T, body []byte) (*domain.ReconcileResult, error) {
	t.Helper()
	return f.svc.HandleWebhook(context.Background(), body, payment.Sign(body, webhookSecret))
}

func requireCode(t *testing.T, err error, code int) {
	t.Helper()
	appErr, ok := domain.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
}

func TestCreateOrder(t *testing.T) {
	f := newPaymentFixture(t)

	resp, err := f.svc.CreateOrder(context.Background(), userID, &domain.CreateOrderRequest{PlanID: "pro_plan"})
	require.NoError(t, err)

	o := resp.Order
	assert.Equal(t, int64(49900), o.Amount)
	assert.Equal(t, "INR", o.Currency)
	assert.Equal(t, domain.OrderPending, o.Status)
	assert.Equal(t, "pro_plan", o.PlanID)
	assert.True(t, strings.HasPrefix(o.ID, "ord_"))
	assert.True(t, strings.HasSuffix(o.ID, "_"+userID[:8]))
	require.NotNil(t, o.GatewayOrderID)
	assert.Equal(t, "rzp_test_mock", resp.KeyID)

	require.Len(t, f.gateway.Orders, 1)
	sent := f.gateway.Orders[0]
	assert.Equal(t, int64(49900), sent.Amount)
	assert.Equal(t, o.ID, sent.Receipt)
	assert.Equal(t, payment.Notes{
		domain.NoteUserID:       userID,
		domain.NotePlanID:       "pro_plan",
		domain.NoteLocalOrderID: o.ID,
	}, sent.Notes)

	var meta map[string]string
	require.NoError(t, json.Unmarshal(o.Metadata, &meta))
	assert.Equal(t, "pro_plan", meta[domain.NotePlanID])
	assert.Equal(t, 1, f.store.OrderCount())
}

func TestCreateOrderGatewayFailurePersistsNothing(t *testing.T) {
	f := newPaymentFixture(t)
	f.gateway.Err = errors.New("connection refused")

	_, err := f.svc.CreateOrder(context.Background(), userID, &domain.CreateOrderRequest{PlanID: "pro_plan"})
	requireCode(t, err, http.StatusBadGateway)
	assert.Equal(t, 0, f.store.OrderCount())
}

func TestCreateOrderUnknownPlan(t *testing.T) {
	f := newPaymentFixture(t)

	_, err := f.svc.CreateOrder(context.Background(), userID, &domain.CreateOrderRequest{PlanID: "gold_plan"})
	requireCode(t, err, http.StatusNotFound)
	assert.Empty(t, f.gateway.Orders)
	assert.Equal(t, 0, f.store.OrderCount())
}

func TestCreateOrderRequiresPlanID(t *testing.T) {
	f := newPaymentFixture(t)

	_, err := f.svc.CreateOrder(context.Background(), userID, &domain.CreateOrderRequest{})
	requireCode(t, err, http.StatusUnprocessableEntity)
}

func TestWebhookActivatesNewMembership(t *testing.T) {
	f := newPaymentFixture(t)
	o := f.createOrder(t, userID, "pro_plan")

	res, err := f.webhook(t, capturedBody(t, o, "pay_001", nil))
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.False(t, res.Replayed)

	m := res.Membership
	assert.Equal(t, domain.TierPro, m.Tier)
	assert.Equal(t, domain.MembershipActive, m.Status)
	assert.True(t, m.AutoRenew)
	assert.Equal(t, m.CurrentPeriodStart.AddDate(1, 0, 0), m.CurrentPeriodEnd)

	stored, err := f.store.Orders().FindByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderSucceeded, stored.Status)
	require.NotNil(t, stored.GatewayPaymentID)
	assert.Equal(t, "pay_001", *stored.GatewayPaymentID)

	events := f.notifier.Events()
	require.Len(t, events, 1)
	assert.Equal(t, userID, events[0].UserID)
	assert.Equal(t, service.EventMembershipActivated, events[0].Type)
}

func TestWebhookUpgradeKeepsMembershipRow(t *testing.T) {
	f := newPaymentFixture(t)
	created := time.Now().Add(-30 * 24 * time.Hour).UTC()
	f.store.PutMembership(domain.Membership{
		ID:                 "mem-1",
		UserID:             userID,
		Tier:               domain.TierPro,
		Status:             domain.MembershipActive,
		CurrentPeriodStart: created,
		CurrentPeriodEnd:   created.AddDate(1, 0, 0),
		AutoRenew:          true,
		CreatedAt:          created,
		UpdatedAt:          created,
	})
	o := f.createOrder(t, userID, "ultra_plan")

	res, err := f.webhook(t, capturedBody(t, o, "pay_002", nil))
	require.NoError(t, err)

	assert.Equal(t, "mem-1", res.Membership.ID)
	assert.Equal(t, domain.TierUltra, res.Membership.Tier)
	assert.Equal(t, created, res.Membership.CreatedAt)
	assert.Equal(t, 1, f.store.MembershipCount())
}

func TestWebhookReplayIsNoop(t *testing.T) {
	f := newPaymentFixture(t)
	o := f.createOrder(t, userID, "pro_plan")
	body := capturedBody(t, o, "pay_003", nil)

	first, err := f.webhook(t, body)
	require.NoError(t, err)

	second, err := f.webhook(t, body)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Membership.ID, second.Membership.ID)
	assert.Equal(t, first.Membership.CurrentPeriodEnd, second.Membership.CurrentPeriodEnd)
	assert.Len(t, f.notifier.Events(), 1)
}

func TestWebhookBadSignatureChangesNothing(t *testing.T) {
	f := newPaymentFixture(t)
	o := f.createOrder(t, userID, "pro_plan")
	body := capturedBody(t, o, "pay_004", nil)

	_, err := f.svc.HandleWebhook(context.Background(), body, payment.Sign(body, keySecret))
	requireCode(t, err, http.StatusBadRequest)

	stored, _ := f.store.Orders().FindByID(context.Background(), o.ID)
	assert.Equal(t, domain.OrderPending, stored.Status)
	assert.Equal(t, 0, f.store.MembershipCount())
	assert.Empty(t, f.notifier.Events())
}

func TestWebhookMetadataMismatch(t *testing.T) {
	f := newPaymentFixture(t)
	o := f.createOrder(t, userID, "pro_plan")

	cases := map[string]map[string]string{
		"other user": {domain.NoteUserID: "someone-else", domain.NotePlanID: "pro_plan"},
		"other plan": {domain.NoteUserID: userID, domain.NotePlanID: "max_plan"},
		"other order": {
			domain.NoteUserID: userID, domain.NotePlanID: "pro_plan", domain.NoteLocalOrderID: "ord_1_deadbeef",
		},
	}
	for name, notes := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.webhook(t, capturedBody(t, o, "pay_005", notes))
			requireCode(t, err, http.StatusBadRequest)
		})
	}

	stored, _ := f.store.Orders().FindByID(context.Background(), o.ID)
	assert.Equal(t, domain.OrderPending, stored.Status)
	assert.Equal(t, 0, f.store.MembershipCount())
}

func TestWebhookMissingMetadata(t *testing.T) {
	f := newPaymentFixture(t)
	o := f.createOrder(t, userID, "pro_plan")

	_, err := f.webhook(t, capturedBody(t, o, "pay_006", map[string]string{}))
	requireCode(t, err, http.StatusBadRequest)
}

func TestWebhookMonthlyPlan(t *testing.T) {
	f := newPaymentFixture(t)
	f.store.PutPlan(domain.MembershipPlan{ID: "pro_monthly", Tier: domain.TierPro, Price: "49.00", Tenure: domain.TenureMonthly})
	o := f.createOrder(t, userID, "pro_monthly")
	assert.Equal(t, int64(4900), o.Amount)

	res, err := f.webhook(t, capturedBody(t, o, "pay_007", nil))
	require.NoError(t, err)
	m := res.Membership
	assert.Equal(t, m.CurrentPeriodStart.AddDate(0, 1, 0), m.CurrentPeriodEnd)
}

func TestWebhookPlanRemovedIsAcknowledged(t *testing.T) {
	f := newPaymentFixture(t)
	o := f.createOrder(t, userID, "max_plan")
	f.store.DeletePlan("max_plan")

	res, err := f.webhook(t, capturedBody(t, o, "pay_008", nil))
	require.NoError(t, err)
	assert.Nil(t, res)

	stored, _ := f.store.Orders().FindByID(context.Background(), o.ID)
	assert.Equal(t, domain.OrderPending, stored.Status)
	assert.Equal(t, 0, f.store.MembershipCount())
}

func TestWebhookUnknownOrder(t *testing.T) {
	f := newPaymentFixture(t)
	gwID := "order_unknown"
	o := &domain.Order{ID: "ord_1_x", UserID: userID, PlanID: "pro_plan", GatewayOrderID: &gwID, Amount: 49900, Currency: "INR"}

	_, err := f.webhook(t, capturedBody(t, o, "pay_009", nil))
	requireCode(t, err, http.StatusNotFound)
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	f := newPaymentFixture(t)
	body := []byte(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_x","order_id":"order_x"}}}}`)

	res, err := f.webhook(t, body)
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestWebhookMalformedBody(t *testing.T) {
	f := newPaymentFixture(t)

	_, err := f.webhook(t, []byte(`{"event":`))
	requireCode(t, err, http.StatusBadRequest)
}

func TestVerifyPayment(t *testing.T) {
	f := newPaymentFixture(t)
	o := f.createOrder(t, userID, "pro_plan")
	gwID := *o.GatewayOrderID

	req := func(paymentID, planID, user string) (*domain.ReconcileResult, error) {
		sig := payment.Sign(payment.PaymentPayload(gwID, paymentID), keySecret)
		return f.svc.VerifyPayment(context.Background(), user, &domain.VerifyPaymentRequest{
			GatewayOrderID:   gwID,
			GatewayPaymentID: paymentID,
			Signature:        sig,
			PlanID:           planID,
		})
	}

	t.Run("bad signature", func(t *testing.T) {
		_, err := f.svc.VerifyPayment(context.Background(), userID, &domain.VerifyPaymentRequest{
			GatewayOrderID: gwID, GatewayPaymentID: "pay_010", Signature: "deadbeef", PlanID: "pro_plan",
		})
		requireCode(t, err, http.StatusBadRequest)
	})

	t.Run("plan mismatch", func(t *testing.T) {
		_, err := req("pay_010", "ultra_plan", userID)
		requireCode(t, err, http.StatusBadRequest)
	})

	t.Run("other user", func(t *testing.T) {
		_, err := req("pay_010", "pro_plan", "11111111-2222-3333-4444-555555555555")
		requireCode(t, err, http.StatusBadRequest)
	})

	t.Run("success", func(t *testing.T) {
		res, err := req("pay_010", "pro_plan", userID)
		require.NoError(t, err)
		assert.False(t, res.Replayed)
		assert.Equal(t, domain.OrderSucceeded, res.Order.Status)
	})

	assert.Len(t, f.notifier.Events(), 1)
}

func TestWebhookAndVerifyRaceSettleOnce(t *testing.T) {
	f := newPaymentFixture(t)
	o := f.createOrder(t, userID, "pro_plan")
	gwID := *o.GatewayOrderID
	body := capturedBody(t, o, "pay_011", nil)

	var wg sync.WaitGroup
	results := make([]*domain.ReconcileResult, 2)
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		results[0], errs[0] = f.webhook(t, body)
	}()
	go func() {
		defer wg.Done()
		results[1], errs[1] = f.svc.VerifyPayment(context.Background(), userID, &domain.VerifyPaymentRequest{
			GatewayOrderID:   gwID,
			GatewayPaymentID: "pay_011",
			Signature:        payment.Sign(payment.PaymentPayload(gwID, "pay_011"), keySecret),
			PlanID:           "pro_plan",
		})
	}()
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.NotEqual(t, results[0].Replayed, results[1].Replayed)
	assert.Equal(t, 1, f.store.MembershipCount())
	assert.Len(t, f.notifier.Events(), 1)
}

func TestIsPremium(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	premium, err := f.svc.IsPremium(ctx, userID)
	require.NoError(t, err)
	assert.False(t, premium)

	o := f.createOrder(t, userID, "pro_plan")
	_, err = f.webhook(t, capturedBody(t, o, "pay_012", nil))
	require.NoError(t, err)

	premium, err = f.svc.IsPremium(ctx, userID)
	require.NoError(t, err)
	assert.True(t, premium)

	orders, err := f.svc.Orders(ctx, userID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, domain.OrderSucceeded, orders[0].Status)
}
