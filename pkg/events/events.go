package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Event is the base interface for all club commit audit events.
// Keep payloads small, use JSON-friendly fields.
type Event interface {
	Type() string
	ClubID() string
	Timestamp() time.Time
	Actor() string
	MarshalData() ([]byte, error)
}

// Base contains common event metadata.
type Base struct {
	Ts  time.Time `json:"ts"`
	CID string    `json:"club_id"`
	Act string    `json:"actor,omitempty"`
}

func (b Base) Timestamp() time.Time { return b.Ts }
func (b Base) ClubID() string       { return b.CID }
func (b Base) Actor() string        { return b.Act }

// NewBase stamps an event with the current time.
func NewBase(clubID, actor string) Base {
	return Base{Ts: time.Now().UTC(), CID: clubID, Act: actor}
}

// --- Concrete events ---

const (
	TypeBackupCreated    = "club.backup.created"
	TypeUpdated          = "club.updated"
	TypeSubmitted        = "club.submitted"
	TypeAttachmentFailed = "club.attachment.failed"
)

// BackupCreated is emitted once the pre-overwrite copy has been written.
type BackupCreated struct {
	Base
	Collection string `json:"collection"`
}

func (e BackupCreated) Type() string                 { return TypeBackupCreated }
func (e BackupCreated) MarshalData() ([]byte, error) { return json.Marshal(e) }

// ClubUpdated records a merge write over an existing or directly created club.
// Changes holds the rendered change lines shown at confirmation.
type ClubUpdated struct {
	Base
	Collection string   `json:"collection"`
	Changes    []string `json:"changes,omitempty"`
	Created    bool     `json:"created,omitempty"`
}

func (e ClubUpdated) Type() string                 { return TypeUpdated }
func (e ClubUpdated) MarshalData() ([]byte, error) { return json.Marshal(e) }

// ClubSubmitted records a new club written to the review queue.
type ClubSubmitted struct {
	Base
	Collection string   `json:"collection"`
	Changes    []string `json:"changes,omitempty"`
}

func (e ClubSubmitted) Type() string                 { return TypeSubmitted }
func (e ClubSubmitted) MarshalData() ([]byte, error) { return json.Marshal(e) }

// AttachmentFailed records one media upload that did not make it to the blob store.
type AttachmentFailed struct {
	Base
	Slot  string `json:"slot"`
	Path  string `json:"path"`
	Error string `json:"error"`
}

func (e AttachmentFailed) Type() string                 { return TypeAttachmentFailed }
func (e AttachmentFailed) MarshalData() ([]byte, error) { return json.Marshal(e) }

// EventStore defines persistence and listing.
// Implementations must guarantee ordering per club.
type EventStore interface {
	Append(ctx context.Context, ev ...Event) error
	ListByClub(ctx context.Context, clubID string) ([]StoredEvent, error)
}

// StoredEvent is a durable representation.
// Seq is a monotonic order within the store.
type StoredEvent struct {
	Seq     int64           `json:"seq"`
	ClubID  string          `json:"club_id"`
	Type    string          `json:"type"`
	Ts      time.Time       `json:"ts"`
	Actor   string          `json:"actor,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// ClubHistory is the commit summary rebuilt from a club's events.
type ClubHistory struct {
	ClubID            string     `json:"club_id"`
	LastUpdated       time.Time  `json:"last_updated"`
	LastUpdatedBy     string     `json:"last_updated_by,omitempty"`
	LastBackup        *time.Time `json:"last_backup,omitempty"`
	Submitted         bool       `json:"submitted"`
	Updates           int        `json:"updates"`
	FailedAttachments []string   `json:"failed_attachments,omitempty"`
	LastChangeSummary []string   `json:"last_change_summary,omitempty"`
}

// Replay applies events in order and rebuilds the history.
// A later successful update clears earlier attachment failures.
func Replay(events []StoredEvent) *ClubHistory {
	h := &ClubHistory{}
	for _, se := range events {
		h.ClubID = se.ClubID
		switch se.Type {
		case TypeBackupCreated:
			ts := se.Ts
			h.LastBackup = &ts
		case TypeUpdated:
			var ev ClubUpdated
			_ = json.Unmarshal(se.Payload, &ev)
			h.Updates++
			h.LastUpdated = se.Ts
			h.LastUpdatedBy = se.Actor
			h.LastChangeSummary = ev.Changes
			h.FailedAttachments = nil
		case TypeSubmitted:
			var ev ClubSubmitted
			_ = json.Unmarshal(se.Payload, &ev)
			h.Submitted = true
			h.LastUpdated = se.Ts
			h.LastUpdatedBy = se.Actor
			h.LastChangeSummary = ev.Changes
			h.FailedAttachments = nil
		case TypeAttachmentFailed:
			var ev AttachmentFailed
			_ = json.Unmarshal(se.Payload, &ev)
			h.FailedAttachments = append(h.FailedAttachments, ev.Slot)
		}
	}
	return h
}

// History rebuilds the commit summary for a club from any store.
func History(ctx context.Context, s EventStore, clubID string) (*ClubHistory, error) {
	events, err := s.ListByClub(ctx, clubID)
	if err != nil {
		return nil, err
	}
	h := Replay(events)
	h.ClubID = clubID
	return h, nil
}

// MemoryStore keeps events in process. Used when no SQL store is configured and in tests.
type MemoryStore struct {
	mu     sync.RWMutex
	seq    int64
	events []StoredEvent
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Append(ctx context.Context, ev ...Event) error {
	stored := make([]StoredEvent, 0, len(ev))
	for _, e := range ev {
		se, err := toStored(e)
		if err != nil {
			return err
		}
		stored = append(stored, se)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, se := range stored {
		m.seq++
		se.Seq = m.seq
		m.events = append(m.events, se)
	}
	return nil
}

func (m *MemoryStore) ListByClub(ctx context.Context, clubID string) ([]StoredEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []StoredEvent
	for _, se := range m.events {
		if se.ClubID == clubID {
			out = append(out, se)
		}
	}
	return out, nil
}

// All returns every stored event in append order.
func (m *MemoryStore) All() []StoredEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]StoredEvent(nil), m.events...)
}

func toStored(e Event) (StoredEvent, error) {
	b, err := e.MarshalData()
	if err != nil {
		return StoredEvent{}, err
	}
	ts := e.Timestamp()
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return StoredEvent{
		ClubID:  e.ClubID(),
		Type:    e.Type(),
		Ts:      ts,
		Actor:   e.Actor(),
		Payload: b,
	}, nil
}
