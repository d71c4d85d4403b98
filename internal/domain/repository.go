package domain

import (
	"context"
	"errors"

	"club-overview-console/internal/models"
)

// Collections used by the console.
const (
	CollectionClubData = "clubData"
	CollectionNewClubs = "newClubs"
	CollectionBackups  = "clubDataBackups"
	CollectionTags     = "clubTags"
)

// ErrNotFound is returned by stores when a record or blob does not exist.
var ErrNotFound = errors.New("not found")

// StoredDocument pairs a record id with its stored fields.
type StoredDocument struct {
	ID   string
	Data models.Document
}

// PutOptions controls how Put combines the payload with an existing document.
// With Merge set, keys absent from the payload are preserved.
type PutOptions struct {
	Merge bool
}

// RecordStore is the document database holding clubs, pending submissions, backups and tags.
type RecordStore interface {
	GetAll(ctx context.Context, collection string) ([]StoredDocument, error)
	Get(ctx context.Context, collection, id string) (models.Document, error)
	Put(ctx context.Context, collection, id string, doc models.Document, opts PutOptions) error
}

// BlobStore holds club media.
type BlobStore interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	GetDownloadURL(ctx context.Context, path string) (string, error)
}

// Transcoder converts staged bytes into the stored format for a slot and reports the
// content type to upload with.
type Transcoder interface {
	Transcode(ctx context.Context, slot models.Slot, data []byte) ([]byte, string, error)
}

// Confirmer decides whether a change list should be persisted.
type Confirmer interface {
	Confirm(ctx context.Context, changes ChangeSet) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, changes ChangeSet) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, changes ChangeSet) (bool, error) {
	return f(ctx, changes)
}
