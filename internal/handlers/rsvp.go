package handlers

import (
	"context"
	"net/http"

	"event-rsvp-backend/internal/middleware"
	"event-rsvp-backend/internal/models"
	"event-rsvp-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// RsvpService is the RSVP surface used by RsvpHandler
type RsvpService interface {
	Create(ctx context.Context, userID string, in services.CreateRsvpInput) (*models.Rsvp, error)
	Get(ctx context.Context, id string) (*models.Rsvp, error)
	ListForUser(ctx context.Context, userID string) ([]*models.Rsvp, error)
	ListForEvent(ctx context.Context, eventID string) ([]*models.Rsvp, error)
	UpdatePreferences(ctx context.Context, actorID, id string, update models.PreferencesUpdate) (*models.Rsvp, error)
	Cancel(ctx context.Context, actorID, id string) error
}

// RsvpHandler handles RSVP HTTP requests
type RsvpHandler struct {
	rsvpService RsvpService
}

// NewRsvpHandler creates a new RSVP handler
func NewRsvpHandler(rsvpService RsvpService) *RsvpHandler {
	return &RsvpHandler{rsvpService: rsvpService}
}

// CreateRsvp handles POST /api/v1/rsvps
func (h *RsvpHandler) CreateRsvp(w http.ResponseWriter, r *http.Request) {
	var in services.CreateRsvpInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondServiceError(w, r, err, "create rsvp")
		return
	}

	rsvp, err := h.rsvpService.Create(r.Context(), middleware.GetUserID(r.Context()), in)
	if err != nil {
		respondServiceError(w, r, err, "create rsvp")
		return
	}
	respondJSON(w, http.StatusCreated, rsvp)
}

// GetRsvp handles GET /api/v1/rsvps/{id}
func (h *RsvpHandler) GetRsvp(w http.ResponseWriter, r *http.Request) {
	rsvp, err := h.rsvpService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err, "get rsvp")
		return
	}
	respondJSON(w, http.StatusOK, rsvp)
}

// ListForUser handles GET /api/v1/users/{id}/rsvps
func (h *RsvpHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	rsvps, err := h.rsvpService.ListForUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err, "list rsvps")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"rsvps": rsvps})
}

// ListForEvent handles GET /api/v1/events/{id}/rsvps
func (h *RsvpHandler) ListForEvent(w http.ResponseWriter, r *http.Request) {
	rsvps, err := h.rsvpService.ListForEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err, "list rsvps")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"rsvps": rsvps})
}

// UpdateNotifications handles PUT /api/v1/rsvps/{id}/notifications
func (h *RsvpHandler) UpdateNotifications(w http.ResponseWriter, r *http.Request) {
	var update models.PreferencesUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		respondServiceError(w, r, err, "update notification preferences")
		return
	}

	rsvp, err := h.rsvpService.UpdatePreferences(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"), update)
	if err != nil {
		respondServiceError(w, r, err, "update notification preferences")
		return
	}
	respondJSON(w, http.StatusOK, rsvp)
}

// CancelRsvp handles DELETE /api/v1/rsvps/{id}
func (h *RsvpHandler) CancelRsvp(w http.ResponseWriter, r *http.Request) {
	if err := h.rsvpService.Cancel(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, r, err, "cancel rsvp")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
