package events

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"club-overview-console/pkg/database"
)

func TestReplay(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	err := store.Append(ctx,
		BackupCreated{Base: NewBase("vega_0", "u1"), Collection: "clubDataBackups"},
		AttachmentFailed{Base: NewBase("vega_0", "u1"), Slot: "banner", Path: "club_images/vega_0/cover_image.webp", Error: "timeout"},
		ClubUpdated{Base: NewBase("other_0", "u2"), Collection: "clubData"},
	)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	h, err := History(ctx, store, "vega_0")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if h.LastBackup == nil || h.Updates != 0 || len(h.FailedAttachments) != 1 || h.FailedAttachments[0] != "banner" {
		t.Fatalf("history = %+v", h)
	}

	if err := store.Append(ctx, ClubUpdated{Base: NewBase("vega_0", "u1"), Collection: "clubData", Changes: []string{"Name: A → B"}}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	h, _ = History(ctx, store, "vega_0")
	if h.Updates != 1 || h.FailedAttachments != nil || h.LastUpdatedBy != "u1" || h.LastChangeSummary[0] != "Name: A → B" {
		t.Fatalf("history after update = %+v", h)
	}

	all := store.All()
	for i, se := range all {
		if se.Seq != int64(i+1) {
			t.Errorf("event %d has seq %d", i, se.Seq)
		}
	}
}

func TestSQLEventStore_AppendAndList(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer conn.Close()
	db := database.NewFromConn(conn, database.SQLite, 0, 0)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS club_events")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE INDEX IF NOT EXISTS")).WillReturnResult(sqlmock.NewResult(0, 0))
	store, err := NewSQLEventStore(context.Background(), db)
	if err != nil {
		t.Fatalf("NewSQLEventStore: %v", err)
	}

	ts := time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO club_events"))
	prep.ExpectExec().
		WithArgs("vega_0", TypeSubmitted, ts.Format(time.RFC3339Nano), "u1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	ev := ClubSubmitted{Base: Base{Ts: ts, CID: "vega_0", Act: "u1"}, Collection: "newClubs"}
	if err := store.Append(context.Background(), ev); err != nil {
		t.Fatalf("Append: %v", err)
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, club_id, type, at, actor, data FROM club_events")).
		WithArgs("vega_0").
		WillReturnRows(sqlmock.NewRows([]string{"id", "club_id", "type", "at", "actor", "data"}).
			AddRow(1, "vega_0", TypeSubmitted, ts.Format(time.RFC3339Nano), "u1", `{"collection":"newClubs"}`))

	got, err := store.ListByClub(context.Background(), "vega_0")
	if err != nil {
		t.Fatalf("ListByClub: %v", err)
	}
	if len(got) != 1 || got[0].Seq != 1 || !got[0].Ts.Equal(ts) || got[0].Actor != "u1" {
		t.Fatalf("got %+v", got)
	}
	if h := Replay(got); !h.Submitted {
		t.Errorf("replay did not mark submitted: %+v", h)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
