package handlers

import (
	"context"
	"net/http"

	"event-rsvp-backend/internal/middleware"
	"event-rsvp-backend/internal/models"
	"event-rsvp-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// EventService is the event surface used by EventHandler
type EventService interface {
	Create(ctx context.Context, creatorID string, in services.CreateEventInput) (*models.Event, error)
	Get(ctx context.Context, id string) (*models.Event, error)
	ListByCreator(ctx context.Context, creatorID string) ([]*models.Event, error)
	Update(ctx context.Context, actorID, id string, update models.EventUpdate) (*models.Event, error)
	PostAnnouncement(ctx context.Context, actorID, id, body string) (*models.Comment, error)
	PostComment(ctx context.Context, actorID, id, body string) (*models.Comment, error)
	ListComments(ctx context.Context, id string, kind models.CommentKind) ([]*models.Comment, error)
}

// MediaService presigns event image uploads
type MediaService interface {
	GetEventImageUploadURL(ctx context.Context, actorID, eventID, contentType string) (*services.UploadResponse, error)
}

// EventHandler handles event HTTP requests
type EventHandler struct {
	eventService EventService
	mediaService MediaService
}

// NewEventHandler creates a new event handler
func NewEventHandler(eventService EventService, mediaService MediaService) *EventHandler {
	return &EventHandler{eventService: eventService, mediaService: mediaService}
}

type commentRequest struct {
	Body string `json:"body"`
}

// CreateEvent handles POST /api/v1/events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var in services.CreateEventInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondServiceError(w, r, err, "create event")
		return
	}

	event, err := h.eventService.Create(r.Context(), middleware.GetUserID(r.Context()), in)
	if err != nil {
		respondServiceError(w, r, err, "create event")
		return
	}

	log.Info().Str("event_id", event.ID).Str("creator_id", event.CreatorID).Msg("Event created")
	respondJSON(w, http.StatusCreated, event)
}

// GetEvent handles GET /api/v1/events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.eventService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err, "get event")
		return
	}
	respondJSON(w, http.StatusOK, event)
}

// ListCreated handles GET /api/v1/events/created/{userId}
func (h *EventHandler) ListCreated(w http.ResponseWriter, r *http.Request) {
	events, err := h.eventService.ListByCreator(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		respondServiceError(w, r, err, "list events")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"events": events})
}

// UpdateEvent handles PUT /api/v1/events/{id}
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var update models.EventUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		respondServiceError(w, r, err, "update event")
		return
	}

	event, err := h.eventService.Update(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"), update)
	if err != nil {
		respondServiceError(w, r, err, "update event")
		return
	}
	respondJSON(w, http.StatusOK, event)
}

// PostAnnouncement handles PUT /api/v1/events/{id}/announcements
func (h *EventHandler) PostAnnouncement(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondServiceError(w, r, err, "post announcement")
		return
	}

	comment, err := h.eventService.PostAnnouncement(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"), req.Body)
	if err != nil {
		respondServiceError(w, r, err, "post announcement")
		return
	}
	respondJSON(w, http.StatusCreated, comment)
}

// PostComment handles PUT /api/v1/events/{id}/comments
func (h *EventHandler) PostComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondServiceError(w, r, err, "post comment")
		return
	}

	comment, err := h.eventService.PostComment(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"), req.Body)
	if err != nil {
		respondServiceError(w, r, err, "post comment")
		return
	}
	respondJSON(w, http.StatusCreated, comment)
}

// ListComments handles GET /api/v1/events/{id}/comments?kind=comment|announcement
func (h *EventHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	kind := models.CommentKind(r.URL.Query().Get("kind"))
	if kind == "" {
		kind = models.KindComment
	}

	comments, err := h.eventService.ListComments(r.Context(), chi.URLParam(r, "id"), kind)
	if err != nil {
		respondServiceError(w, r, err, "list comments")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"comments": comments})
}

// UploadImage handles POST /api/v1/events/{id}/image
func (h *EventHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	var req services.UploadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondServiceError(w, r, err, "create upload url")
		return
	}

	res, err := h.mediaService.GetEventImageUploadURL(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"), req.ContentType)
	if err != nil {
		respondServiceError(w, r, err, "create upload url")
		return
	}
	respondJSON(w, http.StatusOK, res)
}
