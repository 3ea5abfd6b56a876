package handlers

import (
	"net/http"
	"strconv"

	"social-backend/internal/media"

	"github.com/go-chi/chi/v5"
)

// ImageSource looks up stored images by public id
type ImageSource interface {
	Get(publicID string) (*media.Image, bool)
}

// MediaHandler serves uploads kept by the in-memory media store
type MediaHandler struct {
	images ImageSource
}

func NewMediaHandler(images ImageSource) *MediaHandler {
	return &MediaHandler{images: images}
}

// Get handles GET /media/{name}
func (h *MediaHandler) Get(w http.ResponseWriter, r *http.Request) {
	img, ok := h.images.Get(media.PublicID(chi.URLParam(r, "name")))
	if !ok {
		respondError(w, "Image not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data)
}
