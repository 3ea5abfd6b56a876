package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"social-backend/internal/middleware"
	"social-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const wsReadLimit = 4096

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler streams live notifications to connected users
type WebSocketHandler struct {
	hub                 *services.WSHub
	authService         *services.AuthService
	notificationService *services.NotificationService
	cookieName          string
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(
	hub *services.WSHub,
	authService *services.AuthService,
	notificationService *services.NotificationService,
	cookieName string,
) *WebSocketHandler {
	return &WebSocketHandler{
		hub:                 hub,
		authService:         authService,
		notificationService: notificationService,
		cookieName:          cookieName,
	}
}

// HandleWebSocket handles GET /ws. The session comes from the cookie, a
// Bearer header or the token query parameter.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := middleware.TokenFromRequest(r, h.cookieName)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		respondError(w, "Unauthorized: No Token Provided", http.StatusUnauthorized)
		return
	}

	user, err := h.authService.Authenticate(r.Context(), token)
	if err != nil {
		respondServiceError(w, r, err, "Failed to authenticate websocket")
		return
	}
	userID := user.ID

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	conn.SetReadLimit(wsReadLimit)

	h.hub.Register(userID, conn)
	defer h.hub.Unregister(userID, conn)

	ctx := r.Context()
	h.sendUnreadCount(ctx, userID)

	log.Info().Str("user_id", userID).Msg("WebSocket connection established")

	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("user_id", userID).Msg("WebSocket error")
			}
			break
		}

		var msg services.WSMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("Failed to parse WebSocket message")
			h.sendErrorToUser(userID, "Invalid message format")
			continue
		}

		if err := h.handleMessage(ctx, userID, msg); err != nil {
			log.Error().Err(err).Str("user_id", userID).Str("type", msg.Type).Msg("Failed to handle message")
			h.sendErrorToUser(userID, "Failed to handle message")
		}
	}
}

// handleMessage processes incoming WebSocket messages
func (h *WebSocketHandler) handleMessage(ctx context.Context, userID string, msg services.WSMessage) error {
	switch msg.Type {
	case services.WSTypePing:
		return h.hub.SendToUser(userID, services.WSMessage{Type: services.WSTypePong, Timestamp: msg.Timestamp})
	case services.WSTypeMarkRead:
		if err := h.notificationService.MarkAllRead(ctx, userID); err != nil {
			return err
		}
		h.sendUnreadCount(ctx, userID)
		return nil
	default:
		h.sendErrorToUser(userID, "Unknown message type")
		return nil
	}
}

func (h *WebSocketHandler) sendUnreadCount(ctx context.Context, userID string) {
	count, err := h.notificationService.UnreadCount(ctx, userID)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to count notifications")
		}
		return
	}
	if err := h.hub.SendToUser(userID, services.WSMessage{Type: services.WSTypeUnreadCount, Count: &count}); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Failed to send unread_count message")
	}
}

// sendErrorToUser sends an error message to a user
func (h *WebSocketHandler) sendErrorToUser(userID, message string) {
	msg := services.WSMessage{
		Type:    services.WSTypeError,
		Message: message,
	}
	if err := h.hub.SendToUser(userID, msg); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Failed to send error message")
	}
}
