package handlers

import (
	"context"
	"net/http"

	"event-rsvp-backend/internal/services"
)

// Reconciler repairs drifted RSVP device mirrors
type Reconciler interface {
	Reconcile(ctx context.Context, batchSize int) (*services.ReconcileResult, error)
}

// AdminHandler serves operational endpoints
type AdminHandler struct {
	reconciler Reconciler
	batchSize  int
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(reconciler Reconciler, batchSize int) *AdminHandler {
	return &AdminHandler{reconciler: reconciler, batchSize: batchSize}
}

// Reconcile handles POST /api/v1/admin/reconcile
func (h *AdminHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	result, err := h.reconciler.Reconcile(r.Context(), h.batchSize)
	if err != nil {
		respondServiceError(w, r, err, "reconcile devices")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Health handles GET /healthz
func Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
