package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"club-overview-console/pkg/config"
	errs "club-overview-console/pkg/errors"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

const (
	DefaultReadTimeout  = 8 * time.Second
	DefaultWriteTimeout = 6 * time.Second
)

// ErrNoDocument is returned when a collection has no row for an id.
var ErrNoDocument = errors.New("document not found")

// Dialect selects the SQL flavour for DDL and upserts.
type Dialect string

const (
	MySQL  Dialect = "mysql"
	SQLite Dialect = "sqlite"
)

// RawDocument is a stored row: the record id and its JSON body.
type RawDocument struct {
	ID   string
	Data []byte
}

// DB stores JSON documents keyed by (collection, id).
type DB struct {
	conn         *sql.DB
	dialect      Dialect
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// NewWithConfig opens the driver selected by cfg.RecordStoreDriver and creates the tables.
func NewWithConfig(cfg *config.Config) (*DB, error) {
	var (
		dialect Dialect
		dsn     string
	)
	switch cfg.RecordStoreDriver {
	case "mysql":
		dialect, dsn = MySQL, cfg.DatabaseURL
	case "sqlite":
		dialect, dsn = SQLite, cfg.SQLitePath
	default:
		return nil, fmt.Errorf("database: unsupported driver %q", cfg.RecordStoreDriver)
	}

	conn, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, errs.NewStore("database.NewWithConfig", "", "open", err)
	}

	conn.SetMaxOpenConns(cfg.DBMaxOpenConns)
	conn.SetMaxIdleConns(cfg.DBMaxIdleConns)
	conn.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetime) * time.Minute)
	conn.SetConnMaxIdleTime(time.Duration(cfg.DBConnMaxIdleTime) * time.Minute)
	if dialect == SQLite {
		// single writer; avoids SQLITE_BUSY under concurrent commits
		conn.SetMaxOpenConns(1)
	}

	db := NewFromConn(conn, dialect, cfg.DBReadTimeout, cfg.DBWriteTimeout)

	ctx, cancel := db.withWriteTimeout(context.Background())
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, errs.NewStore("database.NewWithConfig", "", "ping", err)
	}
	if err := db.Migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// NewFromConn wraps an open connection. Zero timeouts take the defaults.
func NewFromConn(conn *sql.DB, dialect Dialect, readTimeout, writeTimeout time.Duration) *DB {
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	return &DB{conn: conn, dialect: dialect, readTimeout: readTimeout, writeTimeout: writeTimeout}
}

// Migrate creates the documents table if missing.
func (db *DB) Migrate(ctx context.Context) error {
	body := "LONGTEXT"
	if db.dialect == SQLite {
		body = "TEXT"
	}
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS documents (
		collection VARCHAR(64) NOT NULL,
		id VARCHAR(255) NOT NULL,
		data %s NOT NULL,
		updated_at VARCHAR(40) NOT NULL,
		PRIMARY KEY (collection, id)
	)`, body)
	if _, err := db.conn.ExecContext(ctx, query); err != nil {
		return errs.NewStore("database.Migrate", "documents", "create table", err)
	}
	return nil
}

func (db *DB) Conn() *sql.DB { return db.conn }

func (db *DB) Dialect() Dialect { return db.dialect }

func (db *DB) Close() error { return db.conn.Close() }

// Ping checks the connection within the read timeout.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := db.withReadTimeout(ctx)
	defer cancel()
	return db.conn.PingContext(ctx)
}

// withReadTimeout creates a context with standard read timeout.
func (db *DB) withReadTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, db.readTimeout)
}

// withWriteTimeout creates a context with standard write timeout.
func (db *DB) withWriteTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, db.writeTimeout)
}

// GetDocumentCtx returns the JSON body stored for (collection, id) or ErrNoDocument.
func (db *DB) GetDocumentCtx(ctx context.Context, collection, id string) ([]byte, error) {
	ctx, cancel := db.withReadTimeout(ctx)
	defer cancel()

	var data string
	err := db.conn.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND id = ?`, collection, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, errs.NewStore("database.GetDocumentCtx", collection, "query "+id, err)
	}
	return []byte(data), nil
}

// ListDocumentsCtx returns every document in a collection ordered by id.
func (db *DB) ListDocumentsCtx(ctx context.Context, collection string) ([]RawDocument, error) {
	ctx, cancel := db.withReadTimeout(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, data FROM documents WHERE collection = ? ORDER BY id`, collection)
	if err != nil {
		return nil, errs.NewStore("database.ListDocumentsCtx", collection, "query", err)
	}
	defer rows.Close()

	var docs []RawDocument
	for rows.Next() {
		var (
			id   string
			data string
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, errs.NewStore("database.ListDocumentsCtx", collection, "scan", err)
		}
		docs = append(docs, RawDocument{ID: id, Data: []byte(data)})
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewStore("database.ListDocumentsCtx", collection, "iterate", err)
	}
	return docs, nil
}

// UpdateDocumentCtx reads the current body (nil when absent), lets fn compute the new one and
// upserts it, all inside one transaction.
func (db *DB) UpdateDocumentCtx(ctx context.Context, collection, id string, fn func(current []byte) ([]byte, error)) error {
	ctx, cancel := db.withWriteTimeout(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return errs.NewStore("database.UpdateDocumentCtx", collection, "begin", err)
	}
	defer tx.Rollback()

	selectQuery := `SELECT data FROM documents WHERE collection = ? AND id = ?`
	if db.dialect == MySQL {
		selectQuery += ` FOR UPDATE`
	}
	var current []byte
	var data string
	switch err := tx.QueryRowContext(ctx, selectQuery, collection, id).Scan(&data); {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return errs.NewStore("database.UpdateDocumentCtx", collection, "read "+id, err)
	default:
		current = []byte(data)
	}

	next, err := fn(current)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, db.upsertQuery(), collection, id, string(next), time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return errs.NewStore("database.UpdateDocumentCtx", collection, "write "+id, err)
	}
	if err := tx.Commit(); err != nil {
		return errs.NewStore("database.UpdateDocumentCtx", collection, "commit", err)
	}
	return nil
}

func (db *DB) upsertQuery() string {
	if db.dialect == SQLite {
		return `INSERT INTO documents (collection, id, data, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`
	}
	return `INSERT INTO documents (collection, id, data, updated_at) VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE data = VALUES(data), updated_at = VALUES(updated_at)`
}
