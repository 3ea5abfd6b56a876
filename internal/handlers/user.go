package handlers

import (
	"net/http"

	"social-backend/internal/middleware"
	"social-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// PushTokenRequest is the payload of PUT /api/users/push-token
type PushTokenRequest struct {
	Token string `json:"token"`
}

// GetProfile handles GET /api/users/profile/{username}
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.GetProfile(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		respondServiceError(w, r, err, "Failed to get profile")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// Suggested handles GET /api/users/suggested
func (h *UserHandler) Suggested(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	users, err := h.userService.Suggested(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to get suggested users")
		return
	}
	respondJSON(w, http.StatusOK, users)
}

// ToggleFollow handles POST /api/users/follow/{id}
func (h *UserHandler) ToggleFollow(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	targetID := chi.URLParam(r, "id")

	following, err := h.userService.ToggleFollow(r.Context(), userID, targetID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to toggle follow")
		return
	}

	message := "User unfollowed successfully"
	if following {
		message = "User followed successfully"
	}
	respondJSON(w, http.StatusOK, MessageResponse{Message: message})
}

// UpdateProfile handles POST /api/users/update
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req services.UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, req)
	if err != nil {
		respondServiceError(w, r, err, "Failed to update profile")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// UpdatePushToken handles PUT /api/users/push-token
func (h *UserHandler) UpdatePushToken(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req PushTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.userService.UpdatePushToken(r.Context(), userID, req.Token); err != nil {
		respondServiceError(w, r, err, "Failed to update push token")
		return
	}

	log.Info().Str("user_id", userID).Bool("registered", req.Token != "").Msg("Push token updated")
	respondJSON(w, http.StatusOK, MessageResponse{Message: "Push token updated"})
}
