package media_test

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"social-backend/internal/media"

	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n")

func encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func TestDecode(t *testing.T) {
	png := append(append([]byte{}, pngHeader...), make([]byte, 16)...)
	gif := append([]byte("GIF89a"), make([]byte, 16)...)

	tests := []struct {
		name        string
		raw         string
		data        []byte
		contentType string
		extension   string
	}{
		{"data uri", "data:image/png;base64," + encode(png), png, "image/png", ".png"},
		{"bare base64", encode(png), png, "image/png", ".png"},
		{"gif", "data:image/gif;base64," + encode(gif), gif, "image/gif", ".gif"},
		{"declared type is ignored", "data:image/jpeg;base64," + encode(png), png, "image/png", ".png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := media.Decode(tt.raw)
			require.NoError(t, err)
			require.Equal(t, tt.contentType, img.ContentType)
			require.Equal(t, tt.extension, img.Extension)
			require.Equal(t, tt.data, img.Data)
		})
	}
}

func TestDecodeRejects(t *testing.T) {
	tests := map[string]string{
		"empty":          "",
		"not base64":     "data:image/png;base64,@@@",
		"no comma":       "data:image/png;base64",
		"not base64 uri": "data:text/plain,hello",
		"plain text":     encode([]byte("hello world, not an image")),
		"too large":      encode(append(append([]byte{}, pngHeader...), make([]byte, media.MaxImageSize)...)),
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := media.Decode(raw)
			require.ErrorIs(t, err, media.ErrInvalidImage)
		})
	}
}

func TestPublicID(t *testing.T) {
	tests := map[string]string{
		"https://cdn.example.com/media/abc-123.png":         "abc-123",
		"https://bucket.s3.amazonaws.com/posts/abc.jpg?x=1": "abc",
		"https://cdn.example.com/media/abc.tar.gz#frag":     "abc.tar",
		"https://cdn.example.com/media/noext":               "noext",
		"":                                                  "",
	}
	for url, want := range tests {
		require.Equal(t, want, media.PublicID(url), url)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := media.NewMemoryStore("https://cdn.test/media")

	url, err := store.Upload(ctx, "data:image/png;base64,"+encode(append(append([]byte{}, pngHeader...), 1, 2, 3)))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "https://cdn.test/media/"))
	require.True(t, strings.HasSuffix(url, ".png"))

	id := media.PublicID(url)
	require.True(t, store.Has(id))

	require.NoError(t, store.Delete(ctx, id))
	require.False(t, store.Has(id))
	require.Equal(t, []string{id}, store.Deleted())

	_, err = store.Upload(ctx, "nope")
	require.ErrorIs(t, err, media.ErrInvalidImage)
}
