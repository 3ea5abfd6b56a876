package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"social-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postSelect = `
	SELECT p.id, p.user_id, p.text, p.img, p.created_at, p.updated_at,
	       u.username, u.full_name, u.profile_img, u.cover_img
	FROM posts p
	JOIN users u ON u.id = p.user_id
`

// PostRepository handles database operations for posts, their comments and likes
type PostRepository struct {
	db *pgxpool.Pool
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *pgxpool.Pool) *PostRepository {
	return &PostRepository{db: db}
}

// Create creates a new post
func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	query := `
		INSERT INTO posts (id, user_id, text, img, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query, post.ID, post.UserID, post.Text, post.Img, post.CreatedAt, post.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to create post: %w", err)
	}
	return nil
}

// GetByID retrieves a post with its owner, comments and likes
func (r *PostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	post, err := scanPost(r.db.QueryRow(ctx, postSelect+` WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
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
	result, err := r.db.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddComment appends a comment to a post
func (r *PostRepository) AddComment(ctx context.Context, postID string, comment *models.Comment) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO comments (post_id, user_id, text, created_at) VALUES ($1, $2, $3, $4)`,
			postID, comment.UserID, comment.Text, comment.CreatedAt,
		)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE posts SET updated_at = $1 WHERE id = $2`, comment.CreatedAt, postID)
		return err
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to add comment: %w", err)
	}
	return nil
}

// AddLike adds userID to the post's liking set and, when notification is not
// nil, records it in the same transaction. It reports whether a like was
// added; an existing like is left untouched and no notification is written.
func (r *PostRepository) AddLike(ctx context.Context, postID, userID string, likedAt time.Time, notification *models.Notification) (bool, error) {
	added := false
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx,
			`INSERT INTO likes (post_id, user_id, created_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
			postID, userID, likedAt,
		)
		if err != nil {
			return err
		}
		if result.RowsAffected() == 0 {
			return nil
		}
		added = true

		if notification == nil {
			return nil
		}
		return insertNotification(ctx, tx, notification)
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("failed to like post: %w", err)
	}
	return added, nil
}

// RemoveLike removes userID from the post's liking set
func (r *PostRepository) RemoveLike(ctx context.Context, postID, userID string) (bool, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM likes WHERE post_id = $1 AND user_id = $2`, postID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to unlike post: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// Likes returns the liking set of a post in like order
func (r *PostRepository) Likes(ctx context.Context, postID string) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT user_id FROM likes WHERE post_id = $1 ORDER BY created_at`, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to get likes: %w", err)
	}
	likes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan likes: %w", err)
	}
	if likes == nil {
		likes = []string{}
	}
	return likes, nil
}

// List returns posts matching filter, newest first
func (r *PostRepository) List(ctx context.Context, filter PostFilter) ([]*models.Post, error) {
	var (
		conds []string
		args  []any
	)
	if filter.AuthorID != "" {
		args = append(args, filter.AuthorID)
		conds = append(conds, fmt.Sprintf("p.user_id = $%d", len(args)))
	}
	if filter.FollowedBy != "" {
		args = append(args, filter.FollowedBy)
		conds = append(conds, fmt.Sprintf("p.user_id IN (SELECT followee_id FROM follows WHERE follower_id = $%d)", len(args)))
	}
	if filter.LikedBy != "" {
		args = append(args, filter.LikedBy)
		conds = append(conds, fmt.Sprintf("p.id IN (SELECT post_id FROM likes WHERE user_id = $%d)", len(args)))
	}

	query := postSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY p.created_at DESC, p.id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	posts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Post, error) {
		return scanPost(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan posts: %w", err)
	}
	if posts == nil {
		posts = []*models.Post{}
	}

	if err := r.populate(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// populate loads likes and comments (with their authors) for posts
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

	rows, err := r.db.Query(ctx,
		`SELECT post_id, user_id FROM likes WHERE post_id = ANY($1) ORDER BY created_at`, ids)
	if err != nil {
		return fmt.Errorf("failed to get likes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var postID, userID string
		if err := rows.Scan(&postID, &userID); err != nil {
			return fmt.Errorf("failed to scan like: %w", err)
		}
		byID[postID].Likes = append(byID[postID].Likes, userID)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating likes: %w", err)
	}

	query := `
		SELECT c.post_id, c.user_id, c.text, c.created_at,
		       u.username, u.full_name, u.profile_img, u.cover_img
		FROM comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.post_id = ANY($1)
		ORDER BY c.id
	`
	commentRows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("failed to get comments: %w", err)
	}
	defer commentRows.Close()
	for commentRows.Next() {
		var (
			postID  string
			comment models.Comment
			author  models.Author
		)
		err := commentRows.Scan(
			&postID, &comment.UserID, &comment.Text, &comment.CreatedAt,
			&author.Username, &author.FullName, &author.ProfileImg, &author.CoverImg,
		)
		if err != nil {
			return fmt.Errorf("failed to scan comment: %w", err)
		}
		author.ID = comment.UserID
		comment.User = &author
		byID[postID].Comments = append(byID[postID].Comments, &comment)
	}
	if err := commentRows.Err(); err != nil {
		return fmt.Errorf("error iterating comments: %w", err)
	}

	return nil
}

func scanPost(row pgx.Row) (*models.Post, error) {
	var (
		post   models.Post
		author models.Author
	)
	err := row.Scan(
		&post.ID, &post.UserID, &post.Text, &post.Img, &post.CreatedAt, &post.UpdatedAt,
		&author.Username, &author.FullName, &author.ProfileImg, &author.CoverImg,
	)
	if err != nil {
		return nil, err
	}
	author.ID = post.UserID
	post.User = &author
	return &post, nil
}
