package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"club-overview-console/internal/domain"
	"club-overview-console/internal/models"
)

// PutCall records one RecordStore.Put.
type PutCall struct {
	Collection string
	ID         string
	Doc        models.Document
	Merge      bool
}

// MockRecordStore implements domain.RecordStore in memory for tests.
// PutErr and GetErr are keyed by collection.
type MockRecordStore struct {
	Mu     sync.Mutex
	Docs   map[string]map[string]models.Document
	PutErr map[string]error
	GetErr map[string]error
	Puts   []PutCall
}

func NewMockRecordStore() *MockRecordStore {
	return &MockRecordStore{
		Docs:   map[string]map[string]models.Document{},
		PutErr: map[string]error{},
		GetErr: map[string]error{},
	}
}

// Seed stores doc without recording a Put.
func (m *MockRecordStore) Seed(collection, id string, doc models.Document) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Docs[collection] == nil {
		m.Docs[collection] = map[string]models.Document{}
	}
	m.Docs[collection][id] = doc.Clone()
}

func (m *MockRecordStore) GetAll(ctx context.Context, collection string) ([]domain.StoredDocument, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if err := m.GetErr[collection]; err != nil {
		return nil, err
	}
	out := make([]domain.StoredDocument, 0, len(m.Docs[collection]))
	for id, doc := range m.Docs[collection] {
		out = append(out, domain.StoredDocument{ID: id, Data: doc.Clone()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockRecordStore) Get(ctx context.Context, collection, id string) (models.Document, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if err := m.GetErr[collection]; err != nil {
		return nil, err
	}
	doc, ok := m.Docs[collection][id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, domain.ErrNotFound)
	}
	return doc.Clone(), nil
}

func (m *MockRecordStore) Put(ctx context.Context, collection, id string, doc models.Document, opts domain.PutOptions) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Puts = append(m.Puts, PutCall{Collection: collection, ID: id, Doc: doc.Clone(), Merge: opts.Merge})
	if err := m.PutErr[collection]; err != nil {
		return err
	}
	if m.Docs[collection] == nil {
		m.Docs[collection] = map[string]models.Document{}
	}
	next := doc.Clone()
	if existing, ok := m.Docs[collection][id]; ok && opts.Merge {
		next = existing.Clone()
		for k, v := range doc.Clone() {
			next[k] = v
		}
	}
	m.Docs[collection][id] = next
	return nil
}

// PutsTo returns the recorded puts for one collection.
func (m *MockRecordStore) PutsTo(collection string) []PutCall {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	var out []PutCall
	for _, p := range m.Puts {
		if p.Collection == collection {
			out = append(out, p)
		}
	}
	return out
}

// MockBlobStore implements domain.BlobStore for tests. Err is keyed by path.
type MockBlobStore struct {
	Mu      sync.Mutex
	Blobs   map[string][]byte
	Types   map[string]string
	Err     map[string]error
	BaseURL string
}

func NewMockBlobStore() *MockBlobStore {
	return &MockBlobStore{
		Blobs:   map[string][]byte{},
		Types:   map[string]string{},
		Err:     map[string]error{},
		BaseURL: "https://blobs.test/",
	}
}

func (m *MockBlobStore) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if err := m.Err[path]; err != nil {
		return err
	}
	m.Blobs[path] = append([]byte(nil), data...)
	m.Types[path] = contentType
	return nil
}

func (m *MockBlobStore) GetDownloadURL(ctx context.Context, path string) (string, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if _, ok := m.Blobs[path]; !ok {
		return "", fmt.Errorf("%s: %w", path, domain.ErrNotFound)
	}
	return m.BaseURL + path, nil
}

// Paths lists uploaded paths in sorted order.
func (m *MockBlobStore) Paths() []string {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	out := make([]string, 0, len(m.Blobs))
	for p := range m.Blobs {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// PassthroughTranscoder implements domain.Transcoder without touching the bytes.
type PassthroughTranscoder struct{}

func (PassthroughTranscoder) Transcode(ctx context.Context, slot models.Slot, data []byte) ([]byte, string, error) {
	if slot.Kind == models.SlotBarcard {
		return data, "application/pdf", nil
	}
	return data, "image/webp", nil
}
