// Package media stores user-supplied images in an object store and maps
// their public URLs back to storage references.
package media

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"path"
	"strings"
)

// MaxImageSize is the largest decoded image accepted for upload
const MaxImageSize = 5 << 20

var ErrInvalidImage = errors.New("invalid image")

// Store uploads images and removes them by public id
type Store interface {
	Upload(ctx context.Context, raw string) (string, error)
	Delete(ctx context.Context, publicID string) error
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Image is a decoded upload
type Image struct {
	Data        []byte
	ContentType string
	Extension   string
}

// Decode accepts a data URI ("data:image/png;base64,...") or bare base64
// and returns the image bytes with their sniffed content type.
func Decode(raw string) (*Image, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidImage
	}
	if strings.HasPrefix(raw, "data:") {
		comma := strings.IndexByte(raw, ',')
		if comma < 0 || !strings.HasSuffix(raw[:comma], ";base64") {
			return nil, ErrInvalidImage
		}
		raw = raw[comma+1:]
	}
	if base64.StdEncoding.DecodedLen(len(raw)) > MaxImageSize+3 {
		return nil, ErrInvalidImage
	}

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, ErrInvalidImage
	}
	if len(data) == 0 || len(data) > MaxImageSize {
		return nil, ErrInvalidImage
	}

	contentType := http.DetectContentType(data)
	ext, ok := extensions[contentType]
	if !ok {
		return nil, ErrInvalidImage
	}
	return &Image{Data: data, ContentType: contentType, Extension: ext}, nil
}

// PublicID derives the storage reference of an uploaded image from its URL:
// the last path segment without its extension.
func PublicID(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	base := path.Base(url)
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}
