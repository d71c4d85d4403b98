package testutil

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"club-overview-console/pkg/config"
	"club-overview-console/pkg/database"
)

// DBTest provides a real DB connection for integration tests.
// It uses MySQL at DATABASE_URL_TEST when set, otherwise a fresh SQLite file under t.TempDir().
type DBTest struct {
	DB  *database.DB
	SQL *sql.DB
}

func NewDBTest(t testing.TB) *DBTest {
	t.Helper()
	cfg := &config.Config{
		RecordStoreDriver: "sqlite",
		SQLitePath:        filepath.Join(t.TempDir(), "records.db"),
		DBMaxOpenConns:    4,
		DBMaxIdleConns:    2,
		DBConnMaxLifetime: 5,
		DBConnMaxIdleTime: 5,
	}
	if url := os.Getenv("DATABASE_URL_TEST"); url != "" {
		cfg.RecordStoreDriver = "mysql"
		cfg.DatabaseURL = url
	}
	db, err := database.NewWithConfig(cfg)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	d := &DBTest{DB: db, SQL: db.Conn()}
	t.Cleanup(d.Close)
	if cfg.RecordStoreDriver == "mysql" {
		d.Truncate(t)
	}
	return d
}

func (d *DBTest) Close() {
	_ = d.DB.Close()
}

// Truncate wipes the documents table. Only needed for the shared MySQL database.
func (d *DBTest) Truncate(t testing.TB) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := d.SQL.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		t.Fatalf("truncate documents: %v", err)
	}
}
