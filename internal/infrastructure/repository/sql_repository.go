package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"club-overview-console/internal/domain"
	"club-overview-console/internal/models"
	"club-overview-console/pkg/database"
	errs "club-overview-console/pkg/errors"
)

// SQLRecordStore is a thin adapter over pkg/database.DB that stores club documents as JSON.
type SQLRecordStore struct {
	db *database.DB
}

func NewSQLRecordStore(db *database.DB) *SQLRecordStore {
	return &SQLRecordStore{db: db}
}

// Ensure interface compliance at compile time
var _ domain.RecordStore = (*SQLRecordStore)(nil)

func (r *SQLRecordStore) GetAll(ctx context.Context, collection string) ([]domain.StoredDocument, error) {
	rows, err := r.db.ListDocumentsCtx(ctx, collection)
	if err != nil {
		return nil, err
	}
	out := make([]domain.StoredDocument, 0, len(rows))
	for _, row := range rows {
		doc, err := decode(row.Data)
		if err != nil {
			return nil, errs.NewStore("repository.GetAll", collection, "decode "+row.ID, err)
		}
		out = append(out, domain.StoredDocument{ID: row.ID, Data: doc})
	}
	return out, nil
}

func (r *SQLRecordStore) Get(ctx context.Context, collection, id string) (models.Document, error) {
	data, err := r.db.GetDocumentCtx(ctx, collection, id)
	if errors.Is(err, database.ErrNoDocument) {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	doc, err := decode(data)
	if err != nil {
		return nil, errs.NewStore("repository.Get", collection, "decode "+id, err)
	}
	return doc, nil
}

// Put writes doc. With Merge the existing top-level keys absent from doc survive; the read and
// the write share one transaction.
func (r *SQLRecordStore) Put(ctx context.Context, collection, id string, doc models.Document, opts domain.PutOptions) error {
	return r.db.UpdateDocumentCtx(ctx, collection, id, func(current []byte) ([]byte, error) {
		next := doc
		if opts.Merge && current != nil {
			existing, err := decode(current)
			if err != nil {
				return nil, errs.NewStore("repository.Put", collection, "decode "+id, err)
			}
			next = merge(existing, doc)
		}
		b, err := json.Marshal(next)
		if err != nil {
			return nil, errs.NewStore("repository.Put", collection, "encode "+id, err)
		}
		return b, nil
	})
}

// Ping reports whether the database answers; used by the health checker.
func (r *SQLRecordStore) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func decode(data []byte) (models.Document, error) {
	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = models.Document{}
	}
	return doc, nil
}

// merge overlays patch on a copy of base at the top level.
func merge(base, patch models.Document) models.Document {
	out := base.Clone()
	if out == nil {
		out = models.Document{}
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}
