package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"social-backend/internal/clock"
	"social-backend/internal/media"
	"social-backend/internal/metrics"
	"social-backend/internal/models"
	"social-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const maxPageSize = 100

// Notifier delivers a committed notification to its recipient
type Notifier interface {
	Notify(ctx context.Context, n *models.Notification)
}

// ListOptions pages a post listing. A zero Limit returns every post.
type ListOptions struct {
	Limit  int
	Offset int
}

func (o ListOptions) filter() repository.PostFilter {
	f := repository.PostFilter{Limit: o.Limit, Offset: o.Offset}
	if f.Limit < 0 {
		f.Limit = 0
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// CreatePostRequest is the payload of POST /api/posts/create. Img is a data URI or base64 image.
type CreatePostRequest struct {
	Text string `json:"text"`
	Img  string `json:"img"`
}

// PostService handles post authorship, likes, comments and feeds
type PostService struct {
	posts    PostStore
	users    UserStore
	media    media.Store
	notifier Notifier
	clock    clock.Clock
}

// NewPostService creates a new post service
func NewPostService(posts PostStore, users UserStore, mediaStore media.Store, notifier Notifier, clk clock.Clock) *PostService {
	return &PostService{
		posts:    posts,
		users:    users,
		media:    mediaStore,
		notifier: notifier,
		clock:    clk,
	}
}

// CreatePost stores a new post owned by the caller
func (s *PostService) CreatePost(ctx context.Context, callerID string, req CreatePostRequest) (*models.Post, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" && req.Img == "" {
		return nil, invalidInput("Post must have text or image")
	}

	if _, err := s.getUser(ctx, callerID); err != nil {
		return nil, err
	}

	var imgURL string
	if req.Img != "" {
		url, err := s.media.Upload(ctx, req.Img)
		if err != nil {
			if errors.Is(err, media.ErrInvalidImage) {
				return nil, invalidInput("Invalid image")
			}
			return nil, fmt.Errorf("failed to upload image: %w", err)
		}
		imgURL = url
	}

	now := s.clock.Now()
	post := &models.Post{
		ID:        uuid.New().String(),
		UserID:    callerID,
		Text:      text,
		Img:       imgURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("User not found")
		}
		return nil, err
	}
	metrics.PostsCreated.Inc()

	created, err := s.posts.GetByID(ctx, post.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload post: %w", err)
	}
	return created, nil
}

// DeletePost removes a post owned by the caller along with its image
func (s *PostService) DeletePost(ctx context.Context, callerID, postID string) error {
	post, err := s.getPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID != callerID {
		return forbidden("You are not authorized to delete this post")
	}

	if post.Img != "" {
		if err := s.media.Delete(ctx, media.PublicID(post.Img)); err != nil {
			return fmt.Errorf("failed to delete post image: %w", err)
		}
	}

	if err := s.posts.Delete(ctx, postID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("Post not found")
		}
		return err
	}
	return nil
}

// CommentOnPost appends a comment by the caller and returns the updated post
func (s *PostService) CommentOnPost(ctx context.Context, callerID, postID, text string) (*models.Post, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, invalidInput("Text field is required")
	}
	if _, err := s.getPost(ctx, postID); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		UserID:    callerID,
		Text:      text,
		CreatedAt: s.clock.Now(),
	}
	if err := s.posts.AddComment(ctx, postID, comment); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("Post not found")
		}
		return nil, err
	}

	return s.getPost(ctx, postID)
}

// ToggleLike likes the post, or unlikes it when the caller already likes it,
// and returns the post's resulting liking set. A new like on someone else's
// post records a like notification in the same transaction.
func (s *PostService) ToggleLike(ctx context.Context, callerID, postID string) ([]string, error) {
	post, err := s.getPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	if post.LikedBy(callerID) {
		if _, err := s.posts.RemoveLike(ctx, postID, callerID); err != nil {
			return nil, err
		}
		metrics.LikeToggles.WithLabelValues("unlike").Inc()
	} else {
		now := s.clock.Now()
		// liking one's own post never notifies
		var notification *models.Notification
		if post.UserID != callerID {
			notification = &models.Notification{
				ID:        uuid.New().String(),
				FromID:    callerID,
				ToID:      post.UserID,
				Type:      models.NotificationLike,
				CreatedAt: now,
			}
		}

		added, err := s.posts.AddLike(ctx, postID, callerID, now, notification)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, notFound("Post not found")
			}
			return nil, err
		}
		metrics.LikeToggles.WithLabelValues("like").Inc()

		if added && notification != nil && s.notifier != nil {
			s.notifier.Notify(ctx, notification)
		}
	}

	likes, err := s.posts.Likes(ctx, postID)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("user_id", callerID).Str("post_id", postID).Int("likes", len(likes)).Msg("Like toggled")
	return likes, nil
}

// ListAllPosts returns every post, newest first
func (s *PostService) ListAllPosts(ctx context.Context, opts ListOptions) ([]*models.Post, error) {
	return s.posts.List(ctx, opts.filter())
}

// ListLikedPosts returns the posts liked by userID, newest first
func (s *PostService) ListLikedPosts(ctx context.Context, userID string, opts ListOptions) ([]*models.Post, error) {
	if _, err := s.getUser(ctx, userID); err != nil {
		return nil, err
	}
	f := opts.filter()
	f.LikedBy = userID
	return s.posts.List(ctx, f)
}

// ListFollowingFeed returns the posts of everyone the caller follows, newest first
func (s *PostService) ListFollowingFeed(ctx context.Context, callerID string, opts ListOptions) ([]*models.Post, error) {
	if _, err := s.getUser(ctx, callerID); err != nil {
		return nil, err
	}
	f := opts.filter()
	f.FollowedBy = callerID
	return s.posts.List(ctx, f)
}

// ListUserPosts returns the posts of the user with the given username, newest first
func (s *PostService) ListUserPosts(ctx context.Context, username string, opts ListOptions) ([]*models.Post, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("User not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	f := opts.filter()
	f.AuthorID = user.ID
	return s.posts.List(ctx, f)
}

func (s *PostService) getPost(ctx context.Context, postID string) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("Post not found")
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return post, nil
}

func (s *PostService) getUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("User not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
