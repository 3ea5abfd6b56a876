package handlers

import (
	"net/http"

	"social-backend/internal/middleware"
	"social-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// PostHandler handles post-related HTTP requests
type PostHandler struct {
	postService *services.PostService
}

// NewPostHandler creates a new post handler
func NewPostHandler(postService *services.PostService) *PostHandler {
	return &PostHandler{
		postService: postService,
	}
}

// CommentRequest is the payload of POST /api/posts/comment/{id}
type CommentRequest struct {
	Text string `json:"text"`
}

// CreatePost handles POST /api/posts/create
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req services.CreatePostRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	post, err := h.postService.CreatePost(r.Context(), userID, req)
	if err != nil {
		respondServiceError(w, r, err, "Failed to create post")
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("post_id", post.ID).
		Msg("Post created")

	respondJSON(w, http.StatusCreated, post)
}

// DeletePost handles DELETE /api/posts/{id}
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	postID := chi.URLParam(r, "id")

	if err := h.postService.DeletePost(r.Context(), userID, postID); err != nil {
		respondServiceError(w, r, err, "Failed to delete post")
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("post_id", postID).
		Msg("Post deleted")

	respondJSON(w, http.StatusOK, MessageResponse{Message: "Post deleted successfully"})
}

// CommentOnPost handles POST /api/posts/comment/{id}
func (h *PostHandler) CommentOnPost(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req CommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	post, err := h.postService.CommentOnPost(r.Context(), userID, chi.URLParam(r, "id"), req.Text)
	if err != nil {
		respondServiceError(w, r, err, "Failed to comment on post")
		return
	}
	respondJSON(w, http.StatusOK, post)
}

// ToggleLike handles POST /api/posts/like/{id}. The body is the post's liking set.
func (h *PostHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	likes, err := h.postService.ToggleLike(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err, "Failed to toggle like")
		return
	}
	respondJSON(w, http.StatusOK, likes)
}

// ListAll handles GET /api/posts/all
func (h *PostHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	posts, err := h.postService.ListAllPosts(r.Context(), listOptions(r))
	if err != nil {
		respondServiceError(w, r, err, "Failed to list posts")
		return
	}
	respondJSON(w, http.StatusOK, posts)
}

// ListFollowing handles GET /api/posts/following
func (h *PostHandler) ListFollowing(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	posts, err := h.postService.ListFollowingFeed(r.Context(), userID, listOptions(r))
	if err != nil {
		respondServiceError(w, r, err, "Failed to list following feed")
		return
	}
	respondJSON(w, http.StatusOK, posts)
}

// ListLiked handles GET /api/posts/likes/{id}
func (h *PostHandler) ListLiked(w http.ResponseWriter, r *http.Request) {
	posts, err := h.postService.ListLikedPosts(r.Context(), chi.URLParam(r, "id"), listOptions(r))
	if err != nil {
		respondServiceError(w, r, err, "Failed to list liked posts")
		return
	}
	respondJSON(w, http.StatusOK, posts)
}

// ListUser handles GET /api/posts/user/{username}
func (h *PostHandler) ListUser(w http.ResponseWriter, r *http.Request) {
	posts, err := h.postService.ListUserPosts(r.Context(), chi.URLParam(r, "username"), listOptions(r))
	if err != nil {
		respondServiceError(w, r, err, "Failed to list user posts")
		return
	}
	respondJSON(w, http.StatusOK, posts)
}
