package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"social-backend/internal/models"
	"social-backend/internal/repository"
)

const userColumns = `id, username, email, full_name, profile_img, cover_img, bio, link, push_token, created_at, updated_at`

// UserRepository handles SQLite operations for users
type UserRepository struct {
	db *sql.DB
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO users (id, username, email, full_name, password_hash, profile_img, cover_img, bio, link, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, user.ID, user.Username, user.Email, user.FullName, user.PasswordHash,
		user.ProfileImg, user.CoverImg, user.Bio, user.Link, toMillis(user.CreatedAt), toMillis(user.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID with follower, following and liked-post sets
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

// PasswordHash returns the stored credential hash for a user
func (r *UserRepository) PasswordHash(ctx context.Context, id string) (string, error) {
	var hash string
	err := r.db.QueryRowContext(ctx, `SELECT password_hash FROM users WHERE id = ?`, id).Scan(&hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", repository.ErrNotFound
		}
		return "", fmt.Errorf("failed to get password hash: %w", err)
	}
	return hash, nil
}

// UsernameExists checks if a username is taken
func (r *UserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = ?)`, username)
}

// EmailExists checks if an email is taken
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)`, email)
}

// Update writes the editable profile fields
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE users
SET username = ?, email = ?, full_name = ?, profile_img = ?, cover_img = ?, bio = ?, link = ?, updated_at = ?
WHERE id = ?
`, user.Username, user.Email, user.FullName, user.ProfileImg, user.CoverImg,
		user.Bio, user.Link, toMillis(user.UpdatedAt), user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return requireRow(res)
}

// UpdatePassword replaces the credential hash
func (r *UserRepository) UpdatePassword(ctx context.Context, userID, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, hash, userID)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return requireRow(res)
}

// UpdatePushToken updates the push token for a user
func (r *UserRepository) UpdatePushToken(ctx context.Context, userID string, pushToken *string) error {
	var token any
	if pushToken != nil {
		token = *pushToken
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET push_token = ? WHERE id = ?`, token, userID); err != nil {
		return fmt.Errorf("failed to update push token: %w", err)
	}
	return nil
}

// Follow records that followerID follows followeeID
func (r *UserRepository) Follow(ctx context.Context, followerID, followeeID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO follows (follower_id, followee_id, created_at) VALUES (?, ?, ?)
ON CONFLICT DO NOTHING
`, followerID, followeeID, toMillis(at))
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("failed to follow user: %w", err)
	}
	return nil
}

// Unfollow removes a follow relationship
func (r *UserRepository) Unfollow(ctx context.Context, followerID, followeeID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM follows WHERE follower_id = ? AND followee_id = ?`, followerID, followeeID)
	if err != nil {
		return fmt.Errorf("failed to unfollow user: %w", err)
	}
	return nil
}

// ListSuggested returns random users that userID does not follow yet
func (r *UserRepository) ListSuggested(ctx context.Context, userID string, limit int) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+userColumns+`
FROM users
WHERE id <> ? AND id NOT IN (SELECT followee_id FROM follows WHERE follower_id = ?)
ORDER BY RANDOM()
LIMIT ?
`, userID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list suggested users: %w", err)
	}

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, user := range users {
		if err := r.loadRelations(ctx, user); err != nil {
			return nil, err
		}
	}
	return users, nil
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if err := r.loadRelations(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) loadRelations(ctx context.Context, user *models.User) error {
	var err error
	if user.Followers, err = collectIDs(ctx, r.db, `SELECT follower_id FROM follows WHERE followee_id = ? ORDER BY created_at, rowid`, user.ID); err != nil {
		return fmt.Errorf("failed to get followers: %w", err)
	}
	if user.Following, err = collectIDs(ctx, r.db, `SELECT followee_id FROM follows WHERE follower_id = ? ORDER BY created_at, rowid`, user.ID); err != nil {
		return fmt.Errorf("failed to get following: %w", err)
	}
	if user.LikedPosts, err = collectIDs(ctx, r.db, `SELECT post_id FROM likes WHERE user_id = ? ORDER BY created_at, rowid`, user.ID); err != nil {
		return fmt.Errorf("failed to get liked posts: %w", err)
	}
	return nil
}

func (r *UserRepository) exists(ctx context.Context, query string, arg any) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, arg).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		user      models.User
		pushToken sql.NullString
		created   int64
		updated   int64
	)
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.FullName, &user.ProfileImg, &user.CoverImg,
		&user.Bio, &user.Link, &pushToken, &created, &updated)
	if err != nil {
		return nil, err
	}
	if pushToken.Valid {
		token := pushToken.String
		user.PushToken = &token
	}
	user.CreatedAt = fromMillis(created)
	user.UpdatedAt = fromMillis(updated)
	return &user, nil
}

func collectIDs(ctx context.Context, db *sql.DB, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
