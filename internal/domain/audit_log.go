package domain

import (
	"time"

	"club-overview-console/internal/models"
)

// Backup metadata keys added to a copied record.
const (
	BackupCreatedAtKey = "backup_created_at"
	BackupCreatedByKey = "backup_created_by"
)

// ClubBackup is the copy of a record taken before it is overwritten.
type ClubBackup struct {
	ClubID    string
	Data      models.Document
	CreatedBy string
	CreatedAt time.Time
}

// NewBackup copies data so later edits to the source do not leak into the backup.
func NewBackup(clubID string, data models.Document, createdBy string) *ClubBackup {
	return &ClubBackup{
		ClubID:    clubID,
		Data:      data.Clone(),
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}
}

// Document returns the stored shape: the unchanged record plus the backup stamp.
func (b *ClubBackup) Document() models.Document {
	doc := b.Data.Clone()
	if doc == nil {
		doc = models.Document{}
	}
	doc[BackupCreatedAtKey] = b.CreatedAt.Format(time.RFC3339)
	doc[BackupCreatedByKey] = b.CreatedBy
	return doc
}
