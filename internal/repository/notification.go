package repository

import (
	"context"
	"errors"
	"fmt"

	"social-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const notificationSelect = `
	SELECT n.id, n.from_id, n.to_id, n.type, n.read, n.created_at,
	       u.username, u.full_name, u.profile_img
	FROM notifications n
	JOIN users u ON u.id = n.from_id
`

// NotificationRepository handles database operations for notifications
type NotificationRepository struct {
	db *pgxpool.Pool
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{db: db}
}

type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func insertNotification(ctx context.Context, db execer, n *models.Notification) error {
	query := `
		INSERT INTO notifications (id, from_id, to_id, type, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := db.Exec(ctx, query, n.ID, n.FromID, n.ToID, string(n.Type), n.Read, n.CreatedAt)
	return err
}

// GetByID retrieves a notification by ID
func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	n, err := scanNotification(r.db.QueryRow(ctx, notificationSelect+` WHERE n.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return n, nil
}

// ListForUser returns notifications addressed to userID, newest first
func (r *NotificationRepository) ListForUser(ctx context.Context, userID string) ([]*models.Notification, error) {
	rows, err := r.db.Query(ctx, notificationSelect+` WHERE n.to_id = $1 ORDER BY n.created_at DESC, n.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	notifications, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Notification, error) {
		return scanNotification(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan notifications: %w", err)
	}
	if notifications == nil {
		notifications = []*models.Notification{}
	}
	return notifications, nil
}

// MarkAllRead flags every notification of userID as read
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE to_id = $1 AND read = FALSE`, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

// UnreadCount counts unread notifications of userID
func (r *NotificationRepository) UnreadCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE to_id = $1 AND read = FALSE`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

// Delete deletes a notification by ID
func (r *NotificationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteForUser deletes every notification addressed to userID
func (r *NotificationRepository) DeleteForUser(ctx context.Context, userID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM notifications WHERE to_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete notifications: %w", err)
	}
	return nil
}

func scanNotification(row pgx.Row) (*models.Notification, error) {
	var (
		n    models.Notification
		from models.Author
		kind string
	)
	err := row.Scan(&n.ID, &n.FromID, &n.ToID, &kind, &n.Read, &n.CreatedAt,
		&from.Username, &from.FullName, &from.ProfileImg)
	if err != nil {
		return nil, err
	}
	n.Type = models.NotificationType(kind)
	from.ID = n.FromID
	n.From = &from
	return &n, nil
}
