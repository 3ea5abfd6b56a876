package handlers

import (
	"net/http"

	"social-backend/internal/middleware"
	"social-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// NotificationHandler handles notification requests
type NotificationHandler struct {
	notificationService *services.NotificationService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// UnreadCountResponse is the body of GET /api/notifications/unread-count
type UnreadCountResponse struct {
	Count int `json:"count"`
}

// List handles GET /api/notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	notifications, err := h.notificationService.List(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to list notifications")
		return
	}
	respondJSON(w, http.StatusOK, notifications)
}

// UnreadCount handles GET /api/notifications/unread-count
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	count, err := h.notificationService.UnreadCount(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to count notifications")
		return
	}
	respondJSON(w, http.StatusOK, UnreadCountResponse{Count: count})
}

// DeleteAll handles DELETE /api/notifications
func (h *NotificationHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if err := h.notificationService.DeleteAll(r.Context(), userID); err != nil {
		respondServiceError(w, r, err, "Failed to delete notifications")
		return
	}
	respondJSON(w, http.StatusOK, MessageResponse{Message: "Notifications deleted successfully"})
}

// DeleteOne handles DELETE /api/notifications/{id}
func (h *NotificationHandler) DeleteOne(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if err := h.notificationService.DeleteOne(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, r, err, "Failed to delete notification")
		return
	}
	respondJSON(w, http.StatusOK, MessageResponse{Message: "Notification deleted successfully"})
}
