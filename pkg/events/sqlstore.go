package events

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"club-overview-console/pkg/database"
)

// SQLEventStore stores events in the club_events table with ordered ids.
// Timestamps are stored as RFC 3339 text so MySQL and SQLite read them back the same way.
type SQLEventStore struct {
	db *database.DB
}

// NewSQLEventStore creates the table if needed. A failure here is returned so the caller can
// fall back to the memory store.
func NewSQLEventStore(ctx context.Context, db *database.DB) (*SQLEventStore, error) {
	s := &SQLEventStore{db: db}
	if err := s.ensureTable(ctx); err != nil {
		return nil, fmt.Errorf("ensure club_events: %w", err)
	}
	return s, nil
}

func (s *SQLEventStore) ensureTable(ctx context.Context) error {
	pk := "id BIGINT AUTO_INCREMENT PRIMARY KEY"
	if s.db.Dialect() == database.SQLite {
		pk = "id INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	qry := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS club_events (
		%s,
		club_id VARCHAR(255) NOT NULL,
		type VARCHAR(64) NOT NULL,
		at VARCHAR(40) NOT NULL,
		actor VARCHAR(255) NULL,
		data TEXT NOT NULL
	)`, pk)
	if _, err := s.db.Conn().ExecContext(ctx, qry); err != nil {
		return err
	}
	_, err := s.db.Conn().ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_club_events_club ON club_events (club_id, id)`)
	if err != nil && s.db.Dialect() == database.MySQL {
		// MySQL before 8.0.29 has no IF NOT EXISTS for indexes; the table still works unindexed
		return nil
	}
	return err
}

func (s *SQLEventStore) Append(ctx context.Context, ev ...Event) error {
	if len(ev) == 0 {
		return nil
	}
	tx, err := s.db.Conn().BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO club_events (club_id, type, at, actor, data) VALUES (?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range ev {
		se, err := toStored(e)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", e.Type(), err)
		}
		var actor sql.NullString
		if se.Actor != "" {
			actor = sql.NullString{String: se.Actor, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, se.ClubID, se.Type, se.Ts.Format(time.RFC3339Nano), actor, string(se.Payload)); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *SQLEventStore) ListByClub(ctx context.Context, clubID string) ([]StoredEvent, error) {
	rows, err := s.db.Conn().QueryContext(ctx, `SELECT id, club_id, type, at, actor, data FROM club_events WHERE club_id = ? ORDER BY id ASC`, clubID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []StoredEvent
	for rows.Next() {
		var se StoredEvent
		var at, data string
		var actor sql.NullString
		if err := rows.Scan(&se.Seq, &se.ClubID, &se.Type, &at, &actor, &data); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if se.Ts, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("parse event time %q: %w", at, err)
		}
		se.Actor = actor.String
		se.Payload = []byte(data)
		out = append(out, se)
	}
	return out, rows.Err()
}
