package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/monetra/backend/internal/service"
	"github.com/monetra/backend/pkg/payment"
)

// WebhookHandler receives payment gateway callbacks.
type WebhookHandler struct {
	svc *service.PaymentService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(svc *service.PaymentService) *WebhookHandler {
	return &WebhookHandler{svc: svc}
}

// Payment handles POST /premium/webhook. The signature covers the exact
// bytes received, so the body is read raw and never re-encoded.
func (h *WebhookHandler) Payment(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Fail(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		Fail(w, http.StatusBadRequest, "failed to read body")
		return
	}

	res, err := h.svc.HandleWebhook(r.Context(), body, r.Header.Get(payment.SignatureHeader))
	if err != nil {
		Error(w, err)
		return
	}
	if res == nil {
		JSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}
	Success(w, http.StatusOK, res)
}
