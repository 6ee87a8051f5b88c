// Package sqlite implements the repository interfaces on an embedded SQLite
// database. It is the zero-infrastructure backend: one file on disk, or
// ":memory:" in tests, and the same contract as the MongoDB store.
//
// The driver is modernc.org/sqlite, a pure Go translation of SQLite, so
// the binary builds without CGo.
//
// SCHEMA:
//
//	users                one row per alumnus or admin, email UNIQUE
//	events               one row per event
//	event_registrations  (event_id, user_id) primary key, cascades on event delete
//	news                 one row per news item
//
// The variant profile fields are flattened into columns: occupation and
// occupation_sub_field hold the Occupation, participation holds the
// category list as a JSON array and custom_participation the free text.
// Empty strings stand for "absent".
//
// TIMESTAMPS:
// Every time is stored as INTEGER Unix milliseconds. That matches the
// precision the MongoDB backend keeps, and integer columns sort and compare
// correctly without any care for time zone or string format.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/alumni-network/internal/repository"
	"github.com/sakif/alumni-network/internal/validation"
)

// compile-time check that *DB satisfies repository.Store
var _ repository.Store = (*DB)(nil)

// DB wraps a sql.DB connection pool and hands out the three repositories.
type DB struct {
	conn *sql.DB

	users  *UserDB
	events *EventDB
	news   *NewsDB
}

// New opens dbPath, configures the connection and runs the migrations.
//
// dbPath examples:
//   - "data/alumni.db"  file-based database (persistent)
//   - ":memory:"        in-memory database (tests; lost on close)
//
// sql.Open only builds the pool; Ping forces the first real connection so a
// bad path surfaces here rather than on the first request.
func New(dbPath string, v *validation.Validator) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every new connection to ":memory:" is a brand new empty database, so
	// the pool must never hold more than one.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in progress.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	now := func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }
	db.users = &UserDB{conn: conn, validate: v, now: now}
	db.events = &EventDB{conn: conn, validate: v, now: now}
	db.news = &NewsDB{conn: conn, validate: v, now: now}
	return db, nil
}

// connPragmas are applied by the driver to every connection it opens.
// Foreign keys are OFF by default in SQLite and are a per-connection
// setting; registrations rely on them to disappear with their event.
var connPragmas = []string{"foreign_keys(1)", "busy_timeout(5000)"}

// dsn appends connPragmas to dbPath in modernc.org/sqlite's _pragma form.
func dsn(dbPath string) string {
	q := url.Values{"_pragma": connPragmas}
	return dbPath + "?" + q.Encode()
}

func (db *DB) Users() repository.UserRepository   { return db.users }
func (db *DB) Events() repository.EventRepository { return db.events }
func (db *DB) News() repository.NewsRepository    { return db.news }

// Ping checks the database file is still reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the connection pool. The context is unused; closing a local
// file never blocks on the network.
func (db *DB) Close(_ context.Context) error {
	return db.conn.Close()
}

// migrate creates every table. CREATE ... IF NOT EXISTS makes it safe to run
// on every start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id                   TEXT PRIMARY KEY,
			name                 TEXT NOT NULL,
			email                TEXT NOT NULL UNIQUE,
			password             TEXT NOT NULL,
			gender               TEXT NOT NULL,
			batch_year           INTEGER NOT NULL,
			phone_number         TEXT NOT NULL DEFAULT '',
			show_phone_number    INTEGER NOT NULL DEFAULT 0,
			house                TEXT NOT NULL DEFAULT '',
			address              TEXT NOT NULL DEFAULT '',
			profile_picture      TEXT NOT NULL DEFAULT '',
			occupation           TEXT NOT NULL DEFAULT '',
			occupation_sub_field TEXT NOT NULL DEFAULT '',
			participation        TEXT NOT NULL DEFAULT '[]',
			custom_participation TEXT NOT NULL DEFAULT '',
			role                 TEXT NOT NULL DEFAULT 'alumni',
			created_at           INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_users_name ON users(name, id);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			description TEXT NOT NULL,
			date        INTEGER NOT NULL,
			location    TEXT NOT NULL,
			image       TEXT NOT NULL DEFAULT '',
			created_by  TEXT NOT NULL,
			created_at  INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_events_date ON events(date, id);

		CREATE TABLE IF NOT EXISTS event_registrations (
			event_id TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
			user_id  TEXT NOT NULL,
			PRIMARY KEY (event_id, user_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating events tables: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS news (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL,
			content    TEXT NOT NULL,
			image      TEXT NOT NULL DEFAULT '',
			category   TEXT NOT NULL,
			author     TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_news_created_at ON news(created_at DESC, id DESC);
	`)
	if err != nil {
		return fmt.Errorf("creating news table: %w", err)
	}

	return nil
}

// toMillis and fromMillis convert between time.Time and the stored form.
func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// isUniqueViolation reports whether err is SQLite rejecting a duplicate
// value for a UNIQUE or PRIMARY KEY column.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

// rowScanner is the part of *sql.Row and *sql.Rows the scan helpers need.
type rowScanner interface {
	Scan(dest ...any) error
}
