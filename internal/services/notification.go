package services

import (
	"context"
	"errors"
	"fmt"

	"social-backend/internal/metrics"
	"social-backend/internal/models"
	"social-backend/internal/push"
	"social-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

// Broadcaster delivers messages to connected users
type Broadcaster interface {
	IsOnline(userID string) bool
	SendToUser(userID string, message WSMessage) error
}

// NotificationService handles the notification log of each user and live delivery
type NotificationService struct {
	notifications NotificationStore
	users         UserStore
	hub           Broadcaster
	pusher        push.Pusher
}

// NewNotificationService creates a new notification service. pusher may be nil
// when device push is disabled.
func NewNotificationService(notifications NotificationStore, users UserStore, hub Broadcaster, pusher push.Pusher) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		users:         users,
		hub:           hub,
		pusher:        pusher,
	}
}

// List returns the caller's notifications newest first, then marks them all read
func (s *NotificationService) List(ctx context.Context, userID string) ([]*models.Notification, error) {
	notifications, err := s.notifications.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.notifications.MarkAllRead(ctx, userID); err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkAllRead flags all of the caller's notifications as read
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	return s.notifications.MarkAllRead(ctx, userID)
}

// UnreadCount counts the caller's unread notifications
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.notifications.UnreadCount(ctx, userID)
}

// DeleteAll removes every notification addressed to the caller
func (s *NotificationService) DeleteAll(ctx context.Context, userID string) error {
	return s.notifications.DeleteForUser(ctx, userID)
}

// DeleteOne removes one notification addressed to the caller
func (s *NotificationService) DeleteOne(ctx context.Context, callerID, id string) error {
	n, err := s.notifications.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("Notification not found")
		}
		return fmt.Errorf("failed to get notification: %w", err)
	}
	if n.ToID != callerID {
		return forbidden("You are not allowed to delete this notification")
	}
	if err := s.notifications.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("Notification not found")
		}
		return err
	}
	return nil
}

// Notify delivers a stored notification to its recipient: over the websocket
// when connected, otherwise as a device push when a token is registered.
// Failures are logged and never returned.
func (s *NotificationService) Notify(ctx context.Context, n *models.Notification) {
	stored, err := s.notifications.GetByID(ctx, n.ID)
	if err != nil {
		log.Error().Err(err).Str("notification_id", n.ID).Msg("Failed to load notification for delivery")
		return
	}

	if s.hub != nil && s.hub.IsOnline(stored.ToID) {
		err := s.hub.SendToUser(stored.ToID, WSMessage{
			Type: WSTypeNotification,
			Data: stored,
		})
		if err == nil {
			metrics.NotificationsDelivered.WithLabelValues(string(stored.Type), "websocket").Inc()
			return
		}
		log.Warn().Err(err).Str("user_id", stored.ToID).Msg("Failed to send notification over websocket")
	}

	if s.pusher == nil {
		metrics.NotificationsDelivered.WithLabelValues(string(stored.Type), "none").Inc()
		return
	}

	recipient, err := s.users.GetByID(ctx, stored.ToID)
	if err != nil {
		log.Error().Err(err).Str("user_id", stored.ToID).Msg("Failed to load notification recipient")
		return
	}
	if recipient.PushToken == nil {
		metrics.NotificationsDelivered.WithLabelValues(string(stored.Type), "none").Inc()
		return
	}

	unread, err := s.notifications.UnreadCount(ctx, recipient.ID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", recipient.ID).Msg("Failed to count unread notifications")
	}

	err = s.pusher.Push(ctx, *recipient.PushToken, push.Message{
		Title: "New like",
		Body:  fmt.Sprintf("%s liked your post", stored.From.Username),
		Badge: unread,
		Data: map[string]string{
			"notification_id": stored.ID,
			"type":            string(stored.Type),
		},
	})
	if err != nil {
		if errors.Is(err, push.ErrTokenInvalid) {
			if err := s.users.UpdatePushToken(ctx, recipient.ID, nil); err != nil {
				log.Error().Err(err).Str("user_id", recipient.ID).Msg("Failed to clear push token")
			}
		}
		log.Warn().Err(err).Str("user_id", recipient.ID).Msg("Failed to push notification")
		return
	}
	metrics.NotificationsDelivered.WithLabelValues(string(stored.Type), "apns").Inc()
}
