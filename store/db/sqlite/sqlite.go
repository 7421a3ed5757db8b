// Package sqlite implements the store driver for SQLite.
//
// SQLite is supported on a best-effort basis for development and testing.
// It has no vector or trigram extension here, so similarity queries load
// the scoped rows and score them in Go. Fine for small corpora, not for
// production retrieval.
package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/hrygo/docpilot/internal/profile"
	"github.com/hrygo/docpilot/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the SQLite database at the profile DSN.
//
// Notes on pragmas (each must be prefixed with `_pragma=` for the
// `modernc.org/sqlite` driver):
// - busy_timeout avoids immediate SQLITE_BUSY under concurrent readers.
// - WAL journal mode is the recommended mode for server workloads.
// - foreign_keys on, so document/conversation deletes cascade like postgres.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	sqliteDB, err := sql.Open("sqlite", profile.DSN+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	driver := DB{db: sqliteDB, profile: profile}
	return &driver, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

var migrationStmts = []string{
	`CREATE TABLE IF NOT EXISTS document (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		uid TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL DEFAULT '',
		mime_type TEXT,
		summary TEXT,
		created_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now'))
	)`,
	`CREATE TABLE IF NOT EXISTS document_fragment (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		document_id INTEGER NOT NULL REFERENCES document(id) ON DELETE CASCADE,
		ordinal_index INTEGER NOT NULL DEFAULT 0,
		page INTEGER,
		text TEXT NOT NULL,
		embedding TEXT,
		created_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now'))
	)`,
	`CREATE INDEX IF NOT EXISTS idx_document_fragment_document_id ON document_fragment (document_id)`,
	`CREATE TABLE IF NOT EXISTS conversation (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		uid TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL DEFAULT '',
		system_prompt TEXT NOT NULL DEFAULT '',
		persona TEXT,
		provider TEXT NOT NULL DEFAULT 'openai',
		model TEXT NOT NULL DEFAULT '',
		temperature REAL NOT NULL DEFAULT 0.7,
		created_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now')),
		updated_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now'))
	)`,
	`CREATE TABLE IF NOT EXISTS conversation_document (
		conversation_id INTEGER NOT NULL REFERENCES conversation(id) ON DELETE CASCADE,
		document_id INTEGER NOT NULL REFERENCES document(id) ON DELETE CASCADE,
		created_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now')),
		PRIMARY KEY (conversation_id, document_id)
	)`,
	`CREATE TABLE IF NOT EXISTS conversation_turn (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id INTEGER NOT NULL REFERENCES conversation(id) ON DELETE CASCADE,
		role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
		content TEXT NOT NULL,
		sources TEXT,
		created_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now'))
	)`,
	`CREATE INDEX IF NOT EXISTS idx_conversation_turn_conversation_id ON conversation_turn (conversation_id, id)`,
	`CREATE TABLE IF NOT EXISTS conversation_summary (
		conversation_id INTEGER PRIMARY KEY REFERENCES conversation(id) ON DELETE CASCADE,
		rolling_summary TEXT NOT NULL,
		updated_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now'))
	)`,
	`CREATE TABLE IF NOT EXISTS memory_item (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id INTEGER REFERENCES conversation(id) ON DELETE CASCADE,
		kind TEXT NOT NULL CHECK (kind IN ('episodic', 'fact')),
		content TEXT NOT NULL,
		salience REAL NOT NULL DEFAULT 0,
		last_reinforced_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now')),
		embedding TEXT,
		created_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now'))
	)`,
	`CREATE TABLE IF NOT EXISTS persona (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		prompt TEXT NOT NULL,
		created_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now'))
	)`,
	`CREATE TABLE IF NOT EXISTS turn_feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		turn_id INTEGER NOT NULL REFERENCES conversation_turn(id) ON DELETE CASCADE,
		rating INTEGER NOT NULL CHECK (rating IN (-1, 0, 1)),
		note TEXT,
		created_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now'))
	)`,
}

// Migrate applies the schema. Statements are idempotent.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range migrationStmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to execute migration statement: %s", stmt)
		}
	}
	return nil
}
