package media

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps images in process memory. It backs local runs without a
// bucket and the test suites.
type MemoryStore struct {
	mu      sync.Mutex
	baseURL string
	objects map[string]*Image
	deleted []string
}

// NewMemoryStore creates a new in-memory media store
func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{
		baseURL: baseURL,
		objects: make(map[string]*Image),
	}
}

func (m *MemoryStore) Upload(ctx context.Context, raw string) (string, error) {
	img, err := Decode(raw)
	if err != nil {
		return "", err
	}

	id := uuid.New().String()
	m.mu.Lock()
	m.objects[id] = img
	m.mu.Unlock()

	return m.baseURL + "/" + id + img.Extension, nil
}

func (m *MemoryStore) Delete(ctx context.Context, publicID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.objects, publicID)
	m.deleted = append(m.deleted, publicID)
	return nil
}

// Get returns the image stored under publicID
func (m *MemoryStore) Get(publicID string) (*Image, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	img, ok := m.objects[publicID]
	return img, ok
}

// Has reports whether publicID is currently stored
func (m *MemoryStore) Has(publicID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[publicID]
	return ok
}

// Deleted returns the public ids passed to Delete, in call order
func (m *MemoryStore) Deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}
