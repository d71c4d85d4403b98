package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"club-overview-console/internal/domain"
	"club-overview-console/internal/models"
	errs "club-overview-console/pkg/errors"
)

// MemoryRecordStore keeps documents in process. Documents go through a JSON round trip on
// write so callers see the same value types (float64 numbers, []any arrays) the SQL store returns.
type MemoryRecordStore struct {
	mu   sync.RWMutex
	docs map[string]map[string][]byte
}

func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{docs: map[string]map[string][]byte{}}
}

var _ domain.RecordStore = (*MemoryRecordStore)(nil)

func (m *MemoryRecordStore) GetAll(ctx context.Context, collection string) ([]domain.StoredDocument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.docs[collection]))
	for id := range m.docs[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]domain.StoredDocument, 0, len(ids))
	for _, id := range ids {
		doc, err := decode(m.docs[collection][id])
		if err != nil {
			return nil, errs.NewStore("repository.MemoryGetAll", collection, "decode "+id, err)
		}
		out = append(out, domain.StoredDocument{ID: id, Data: doc})
	}
	return out, nil
}

func (m *MemoryRecordStore) Get(ctx context.Context, collection, id string) (models.Document, error) {
	m.mu.RLock()
	data, ok := m.docs[collection][id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, domain.ErrNotFound)
	}
	return decode(data)
}

func (m *MemoryRecordStore) Put(ctx context.Context, collection, id string, doc models.Document, opts domain.PutOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := doc
	if current, ok := m.docs[collection][id]; ok && opts.Merge {
		existing, err := decode(current)
		if err != nil {
			return errs.NewStore("repository.MemoryPut", collection, "decode "+id, err)
		}
		next = merge(existing, doc)
	}
	b, err := json.Marshal(next)
	if err != nil {
		return errs.NewStore("repository.MemoryPut", collection, "encode "+id, err)
	}
	if m.docs[collection] == nil {
		m.docs[collection] = map[string][]byte{}
	}
	m.docs[collection][id] = b
	return nil
}

// Ping always succeeds.
func (m *MemoryRecordStore) Ping(ctx context.Context) error { return nil }
