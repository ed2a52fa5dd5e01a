package handler

import (
	"net/http"

	"github.com/monetra/backend/internal/domain"
	"github.com/monetra/backend/internal/service"
)

// PaymentHandler handles the authenticated purchase flow.
type PaymentHandler struct {
	svc *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(svc *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

// CreateOrder handles POST /premium/create-order.
func (h *PaymentHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		Fail(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req domain.CreateOrderRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		Error(w, err)
		return
	}

	resp, err := h.svc.CreateOrder(r.Context(), uid, &req)
	if err != nil {
		Error(w, err)
		return
	}
	Success(w, http.StatusCreated, resp)
}

// VerifyOrder handles POST /premium/verify-order, the client-return
// callback after checkout.
func (h *PaymentHandler) VerifyOrder(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		Fail(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req domain.VerifyPaymentRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		Error(w, err)
		return
	}

	res, err := h.svc.VerifyPayment(r.Context(), uid, &req)
	if err != nil {
		Error(w, err)
		return
	}
	Success(w, http.StatusOK, res)
}

// Membership handles GET /premium/membership.
func (h *PaymentHandler) Membership(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		Fail(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	m, err := h.svc.Membership(r.Context(), uid)
	if err != nil {
		Error(w, err)
		return
	}
	if m == nil {
		JSON(w, http.StatusOK, map[string]string{"status": "none"})
		return
	}
	Success(w, http.StatusOK, m)
}

// Orders handles GET /premium/orders.
func (h *PaymentHandler) Orders(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		Fail(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orders, err := h.svc.Orders(r.Context(), uid)
	if err != nil {
		Error(w, err)
		return
	}
	Success(w, http.StatusOK, orders)
}
