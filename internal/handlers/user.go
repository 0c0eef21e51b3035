package handlers

import (
	"context"
	"fmt"
	"net/http"

	"event-rsvp-backend/internal/middleware"
	"event-rsvp-backend/internal/models"
	"event-rsvp-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// UserService is the account surface used by UserHandler
type UserService interface {
	CreateUser(ctx context.Context, in services.CreateUserInput) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, *services.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*models.User, *services.TokenPair, error)
}

// DeviceSyncer reconciles a user's push registration
type DeviceSyncer interface {
	SyncDeviceStats(ctx context.Context, userID string, claim models.DeviceClaim) (*services.SyncResult, error)
}

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	userService UserService
	deviceSync  DeviceSyncer
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService UserService, deviceSync DeviceSyncer) *UserHandler {
	return &UserHandler{
		userService: userService,
		deviceSync:  deviceSync,
	}
}

// AuthResponse is returned by registration, login and refresh
type AuthResponse struct {
	User         *models.User `json:"user"`
	Token        string       `json:"token,omitempty"`
	RefreshToken string       `json:"refresh_token,omitempty"`
}

// requireSelf rejects requests acting on another user's account
func requireSelf(r *http.Request, id string) error {
	if middleware.GetUserID(r.Context()) != id {
		return fmt.Errorf("%w: cannot act on another user", models.ErrForbidden)
	}
	return nil
}

// CreateUser handles POST /api/v1/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in services.CreateUserInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondServiceError(w, r, err, "create user")
		return
	}

	user, err := h.userService.CreateUser(r.Context(), in)
	if err != nil {
		respondServiceError(w, r, err, "create user")
		return
	}

	log.Info().Str("user_id", user.ID).Msg("User created")
	respondJSON(w, http.StatusCreated, AuthResponse{User: user})
}

// Login handles POST /api/v1/auth/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondServiceError(w, r, err, "log in")
		return
	}

	user, tokens, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(w, r, err, "log in")
		return
	}
	respondJSON(w, http.StatusOK, AuthResponse{User: user, Token: tokens.Token, RefreshToken: tokens.RefreshToken})
}

// Refresh handles POST /api/v1/auth/refresh
func (h *UserHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeJSON(w, r, &req); err != nil || req.RefreshToken == "" {
		respondError(w, "refresh_token is required", http.StatusBadRequest)
		return
	}

	user, tokens, err := h.userService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		respondServiceError(w, r, err, "refresh token")
		return
	}
	respondJSON(w, http.StatusOK, AuthResponse{User: user, Token: tokens.Token, RefreshToken: tokens.RefreshToken})
}

// GetUser handles GET /api/v1/users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	user, err := h.userService.GetUser(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err, "get user")
		return
	}
	if requireSelf(r, id) != nil {
		user = user.PublicView()
	}
	respondJSON(w, http.StatusOK, user)
}

// UpdateUser handles PUT /api/v1/users/{id}
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := requireSelf(r, id); err != nil {
		respondServiceError(w, r, err, "update user")
		return
	}

	var update models.ProfileUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		respondServiceError(w, r, err, "update user")
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), id, update)
	if err != nil {
		respondServiceError(w, r, err, "update user")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// SyncDevice handles PUT /api/v1/users/{id}/device
func (h *UserHandler) SyncDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := requireSelf(r, id); err != nil {
		respondServiceError(w, r, err, "sync device")
		return
	}

	var claim models.DeviceClaim
	if err := decodeJSON(w, r, &claim); err != nil {
		respondServiceError(w, r, err, "sync device")
		return
	}

	result, err := h.deviceSync.SyncDeviceStats(r.Context(), id, claim)
	if err != nil {
		respondServiceError(w, r, err, "sync device")
		return
	}
	respondJSON(w, http.StatusOK, result)
}
