package handler

import (
	"net/http"

	"github.com/monetra/backend/internal/service"
)

// PlansHandler serves the membership catalog.
type PlansHandler struct {
	svc *service.PaymentService
}

// NewPlansHandler creates a new PlansHandler.
func NewPlansHandler(svc *service.PaymentService) *PlansHandler {
	return &PlansHandler{svc: svc}
}

// List handles GET /premium/memberships.
func (h *PlansHandler) List(w http.ResponseWriter, r *http.Request) {
	plans, err := h.svc.ListPlans(r.Context())
	if err != nil {
		Error(w, err)
		return
	}
	Success(w, http.StatusOK, plans)
}
