package domain

import (
	"encoding/json"
	"time"
)

// Order statuses. pending is initial; the rest are terminal.
const (
	OrderPending   = "pending"
	OrderSucceeded = "succeeded"
	OrderFailed    = "failed"
	OrderRefunded  = "refunded"
)

// Metadata keys embedded in the gateway order and echoed back in webhooks.
const (
	NoteUserID       = "user_id"
	NotePlanID       = "plan_id"
	NoteLocalOrderID = "local_order_id"
)

// Order is one attempt to purchase a membership plan through the gateway.
type Order struct {
	ID               string          `json:"id"`
	UserID           string          `json:"userId"`
	PlanID           string          `json:"planId"`
	GatewayOrderID   *string         `json:"gatewayOrderId,omitempty"`
	GatewayPaymentID *string         `json:"gatewayPaymentId,omitempty"`
	Amount           int64           `json:"amount"` // minor currency units
	Currency         string          `json:"currency"`
	Status           string          `json:"status"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// CreateOrderRequest is the validated input for starting a purchase.
type CreateOrderRequest struct {
	PlanID string `json:"planId" validate:"required"`
}

// CreateOrderResponse gives the client what it needs to open checkout.
type CreateOrderResponse struct {
	Order *Order `json:"order"`
	KeyID string `json:"keyId"`
}

// VerifyPaymentRequest is the client-return callback after checkout.
type VerifyPaymentRequest struct {
	GatewayOrderID   string `json:"razorpay_order_id" validate:"required"`
	GatewayPaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature        string `json:"razorpay_signature" validate:"required"`
	PlanID           string `json:"planId" validate:"required"`
}

// PaymentEvent is a verified payment, ready for reconciliation. The order is
// located by GatewayOrderID when set, otherwise by OrderID. When both are set
// they must refer to the same order.
type PaymentEvent struct {
	OrderID          string
	GatewayOrderID   string
	GatewayPaymentID string
	UserID           string
	PlanID           string
}

// ReconcileResult describes what reconciliation did.
type ReconcileResult struct {
	Order      *Order      `json:"order"`
	Membership *Membership `json:"membership"`
	Replayed   bool        `json:"replayed"` // order was already settled; nothing changed
}
