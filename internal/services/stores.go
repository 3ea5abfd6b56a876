package services

import (
	"context"
	"time"

	"social-backend/internal/models"
	"social-backend/internal/repository"
)

// UserStore is implemented by the Postgres and SQLite user repositories
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	PasswordHash(ctx context.Context, id string) (string, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, userID, hash string) error
	UpdatePushToken(ctx context.Context, userID string, pushToken *string) error
	Follow(ctx context.Context, followerID, followeeID string, at time.Time) error
	Unfollow(ctx context.Context, followerID, followeeID string) error
	ListSuggested(ctx context.Context, userID string, limit int) ([]*models.User, error)
}

// PostStore is implemented by the Postgres and SQLite post repositories
type PostStore interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	Delete(ctx context.Context, id string) error
	AddComment(ctx context.Context, postID string, comment *models.Comment) error
	AddLike(ctx context.Context, postID, userID string, likedAt time.Time, notification *models.Notification) (bool, error)
	RemoveLike(ctx context.Context, postID, userID string) (bool, error)
	Likes(ctx context.Context, postID string) ([]string, error)
	List(ctx context.Context, filter repository.PostFilter) ([]*models.Post, error)
}

// NotificationStore is implemented by the Postgres and SQLite notification repositories
type NotificationStore interface {
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	ListForUser(ctx context.Context, userID string) ([]*models.Notification, error)
	MarkAllRead(ctx context.Context, userID string) error
	UnreadCount(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, id string) error
	DeleteForUser(ctx context.Context, userID string) error
}

var (
	_ UserStore         = (*repository.UserRepository)(nil)
	_ PostStore         = (*repository.PostRepository)(nil)
	_ NotificationStore = (*repository.NotificationRepository)(nil)
)
