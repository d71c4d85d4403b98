package blob

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"club-overview-console/internal/domain"
)

// Object is a stored blob with its content type.
type Object struct {
	Data        []byte
	ContentType string
}

// MemoryStore keeps blobs in process; the default driver for local runs.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]Object
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: map[string]Object{}}
}

var _ domain.BlobStore = (*MemoryStore)(nil)

func (m *MemoryStore) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	if _, err := sanitizeKey(path); err != nil {
		return err
	}
	cp := append([]byte(nil), data...)
	m.mu.Lock()
	m.objects[path] = Object{Data: cp, ContentType: contentType}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) GetDownloadURL(ctx context.Context, path string) (string, error) {
	m.mu.RLock()
	_, ok := m.objects[path]
	m.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%s: %w", path, domain.ErrNotFound)
	}
	return "memory://" + path, nil
}

// Object returns a copy of the blob at path.
func (m *MemoryStore) Object(path string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[path]
	if !ok {
		return Object{}, false
	}
	return Object{Data: append([]byte(nil), o.Data...), ContentType: o.ContentType}, true
}

// Paths lists stored paths in order.
func (m *MemoryStore) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.objects))
	for p := range m.objects {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }
