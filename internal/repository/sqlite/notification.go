package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"social-backend/internal/models"
	"social-backend/internal/repository"
)

const notificationSelect = `
SELECT n.id, n.from_id, n.to_id, n.type, n.read, n.created_at, u.username, u.full_name, u.profile_img
FROM notifications n
JOIN users u ON u.id = n.from_id
`

// NotificationRepository handles SQLite operations for notifications
type NotificationRepository struct {
	db *sql.DB
}

// GetByID retrieves a notification by ID
func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	n, err := scanNotification(r.db.QueryRowContext(ctx, notificationSelect+`WHERE n.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return n, nil
}

// ListForUser returns notifications addressed to userID, newest first
func (r *NotificationRepository) ListForUser(ctx context.Context, userID string) ([]*models.Notification, error) {
	rows, err := r.db.QueryContext(ctx, notificationSelect+`WHERE n.to_id = ? ORDER BY n.created_at DESC, n.rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	notifications := []*models.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkAllRead flags every notification of userID as read
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = 1 WHERE to_id = ? AND read = 0`, userID); err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

// UnreadCount counts unread notifications of userID
func (r *NotificationRepository) UnreadCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE to_id = ? AND read = 0`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

// Delete deletes a notification by ID
func (r *NotificationRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return requireRow(res)
}

// DeleteForUser deletes every notification addressed to userID
func (r *NotificationRepository) DeleteForUser(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE to_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete notifications: %w", err)
	}
	return nil
}

func scanNotification(row rowScanner) (*models.Notification, error) {
	var (
		n       models.Notification
		from    models.Author
		kind    string
		read    int
		created int64
	)
	err := row.Scan(&n.ID, &n.FromID, &n.ToID, &kind, &read, &created,
		&from.Username, &from.FullName, &from.ProfileImg)
	if err != nil {
		return nil, err
	}
	n.Type = models.NotificationType(kind)
	n.Read = read == 1
	n.CreatedAt = fromMillis(created)
	from.ID = n.FromID
	n.From = &from
	return &n, nil
}
