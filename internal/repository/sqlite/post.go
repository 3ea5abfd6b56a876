package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"social-backend/internal/models"
	"social-backend/internal/repository"
)

const postSelect = `
SELECT p.id, p.user_id, p.text, p.img, p.created_at, p.updated_at,
       u.username, u.full_name, u.profile_img, u.cover_img
FROM posts p
JOIN users u ON u.id = p.user_id
`

// PostRepository handles SQLite operations for posts, their comments and likes
type PostRepository struct {
	db *sql.DB
}

// Create creates a new post
func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO posts (id, user_id, text, img, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
`, post.ID, post.UserID, post.Text, post.Img, toMillis(post.CreatedAt), toMillis(post.UpdatedAt))
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("failed to create post: %w", err)
	}
	return nil
}

// GetByID retrieves a post with its owner, comments and likes
func (r *PostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	post, err := scanPost(r.db.QueryRowContext(ctx, postSelect+`WHERE p.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	if err := r.populate(ctx, []*models.Post{post}); err != nil {
		return nil, err
	}
	return post, nil
}

// Delete deletes a post; comments and likes cascade
func (r *PostRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return requireRow(res)
}

// AddComment appends a comment to a post
func (r *PostRepository) AddComment(ctx context.Context, postID string, comment *models.Comment) error {
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO comments (post_id, user_id, text, created_at) VALUES (?, ?, ?, ?)`,
			postID, comment.UserID, comment.Text, toMillis(comment.CreatedAt))
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE posts SET updated_at = ? WHERE id = ?`, toMillis(comment.CreatedAt), postID)
		return err
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("failed to add comment: %w", err)
	}
	return nil
}

// AddLike records the like and the optional notification in one transaction.
// It reports whether the like was added; an existing like is left untouched
// and no notification is written.
func (r *PostRepository) AddLike(ctx context.Context, postID, userID string, likedAt time.Time, notification *models.Notification) (bool, error) {
	added := false
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
INSERT INTO likes (post_id, user_id, created_at) VALUES (?, ?, ?)
ON CONFLICT DO NOTHING
`, postID, userID, toMillis(likedAt))
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		added = true

		if notification == nil {
			return nil
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO notifications (id, from_id, to_id, type, read, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`, notification.ID, notification.FromID, notification.ToID, string(notification.Type),
			boolToInt(notification.Read), toMillis(notification.CreatedAt))
		return err
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, repository.ErrNotFound
		}
		return false, fmt.Errorf("failed to like post: %w", err)
	}
	return added, nil
}

// RemoveLike removes userID from the post's liking set
func (r *PostRepository) RemoveLike(ctx context.Context, postID, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM likes WHERE post_id = ? AND user_id = ?`, postID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to unlike post: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Likes returns the liking set of a post in like order
func (r *PostRepository) Likes(ctx context.Context, postID string) ([]string, error) {
	likes, err := collectIDs(ctx, r.db, `SELECT user_id FROM likes WHERE post_id = ? ORDER BY created_at, rowid`, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to get likes: %w", err)
	}
	return likes, nil
}

// List returns posts matching filter, newest first
func (r *PostRepository) List(ctx context.Context, filter repository.PostFilter) ([]*models.Post, error) {
	var (
		conds []string
		args  []any
	)
	if filter.AuthorID != "" {
		conds = append(conds, "p.user_id = ?")
		args = append(args, filter.AuthorID)
	}
	if filter.FollowedBy != "" {
		conds = append(conds, "p.user_id IN (SELECT followee_id FROM follows WHERE follower_id = ?)")
		args = append(args, filter.FollowedBy)
	}
	if filter.LikedBy != "" {
		conds = append(conds, "p.id IN (SELECT post_id FROM likes WHERE user_id = ?)")
		args = append(args, filter.LikedBy)
	}

	query := postSelect
	if len(conds) > 0 {
		query += "WHERE " + strings.Join(conds, " AND ") + "\n"
	}
	query += "ORDER BY p.created_at DESC, p.rowid DESC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	} else if filter.Offset > 0 {
		query += " LIMIT -1 OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	posts := []*models.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating posts: %w", err)
	}
	rows.Close()

	if err := r.populate(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// populate loads likes and comments for posts. Each result set is drained
// before the next query runs since the store holds a single connection.
func (r *PostRepository) populate(ctx context.Context, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}

	ids := make([]string, len(posts))
	byID := make(map[string]*models.Post, len(posts))
	for i, post := range posts {
		ids[i] = post.ID
		byID[post.ID] = post
		post.Likes = []string{}
		post.Comments = []*models.Comment{}
	}
	marks, args := placeholders(ids)

	rows, err := r.db.QueryContext(ctx,
		`SELECT post_id, user_id FROM likes WHERE post_id IN (`+marks+`) ORDER BY created_at, rowid`, args...)
	if err != nil {
		return fmt.Errorf("failed to get likes: %w", err)
	}
	for rows.Next() {
		var postID, userID string
		if err := rows.Scan(&postID, &userID); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan like: %w", err)
		}
		byID[postID].Likes = append(byID[postID].Likes, userID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("error iterating likes: %w", err)
	}
	rows.Close()

	rows, err = r.db.QueryContext(ctx, `
SELECT c.post_id, c.user_id, c.text, c.created_at, u.username, u.full_name, u.profile_img, u.cover_img
FROM comments c
JOIN users u ON u.id = c.user_id
WHERE c.post_id IN (`+marks+`)
ORDER BY c.id
`, args...)
	if err != nil {
		return fmt.Errorf("failed to get comments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			postID  string
			created int64
			comment models.Comment
			author  models.Author
		)
		if err := rows.Scan(&postID, &comment.UserID, &comment.Text, &created,
			&author.Username, &author.FullName, &author.ProfileImg, &author.CoverImg); err != nil {
			return fmt.Errorf("failed to scan comment: %w", err)
		}
		author.ID = comment.UserID
		comment.User = &author
		comment.CreatedAt = fromMillis(created)
		byID[postID].Comments = append(byID[postID].Comments, &comment)
	}
	return rows.Err()
}

func scanPost(row rowScanner) (*models.Post, error) {
	var (
		post    models.Post
		author  models.Author
		created int64
		updated int64
	)
	err := row.Scan(&post.ID, &post.UserID, &post.Text, &post.Img, &created, &updated,
		&author.Username, &author.FullName, &author.ProfileImg, &author.CoverImg)
	if err != nil {
		return nil, err
	}
	author.ID = post.UserID
	post.User = &author
	post.CreatedAt = fromMillis(created)
	post.UpdatedAt = fromMillis(updated)
	return &post, nil
}
