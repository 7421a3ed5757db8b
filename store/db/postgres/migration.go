package postgres

import (
	"context"

	"github.com/pkg/errors"
)

var migrationStmts = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE EXTENSION IF NOT EXISTS pg_trgm`,
	`CREATE TABLE IF NOT EXISTS document (
		id SERIAL PRIMARY KEY,
		uid TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL DEFAULT '',
		mime_type TEXT,
		summary TEXT,
		created_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
	)`,
	`CREATE TABLE IF NOT EXISTS document_fragment (
		id BIGSERIAL PRIMARY KEY,
		document_id INTEGER NOT NULL REFERENCES document(id) ON DELETE CASCADE,
		ordinal_index INTEGER NOT NULL DEFAULT 0,
		page INTEGER,
		text TEXT NOT NULL,
		embedding vector(1536),
		created_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_document_fragment_document_id ON document_fragment (document_id)`,
	`CREATE INDEX IF NOT EXISTS idx_document_fragment_embedding ON document_fragment
		USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)`,
	`CREATE INDEX IF NOT EXISTS idx_document_fragment_text_trgm ON document_fragment
		USING gin (text gin_trgm_ops)`,
	`CREATE TABLE IF NOT EXISTS conversation (
		id SERIAL PRIMARY KEY,
		uid TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL DEFAULT '',
		system_prompt TEXT NOT NULL DEFAULT '',
		persona TEXT,
		provider TEXT NOT NULL DEFAULT 'openai',
		model TEXT NOT NULL DEFAULT '',
		temperature REAL NOT NULL DEFAULT 0.7,
		created_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
		updated_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
	)`,
	`CREATE TABLE IF NOT EXISTS conversation_document (
		conversation_id INTEGER NOT NULL REFERENCES conversation(id) ON DELETE CASCADE,
		document_id INTEGER NOT NULL REFERENCES document(id) ON DELETE CASCADE,
		created_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
		PRIMARY KEY (conversation_id, document_id)
	)`,
	`CREATE TABLE IF NOT EXISTS conversation_turn (
		id BIGSERIAL PRIMARY KEY,
		conversation_id INTEGER NOT NULL REFERENCES conversation(id) ON DELETE CASCADE,
		role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
		content TEXT NOT NULL,
		sources JSONB,
		created_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_conversation_turn_conversation_id ON conversation_turn (conversation_id, id)`,
	`CREATE TABLE IF NOT EXISTS conversation_summary (
		conversation_id INTEGER PRIMARY KEY REFERENCES conversation(id) ON DELETE CASCADE,
		rolling_summary TEXT NOT NULL,
		updated_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
	)`,
	`CREATE TABLE IF NOT EXISTS memory_item (
		id BIGSERIAL PRIMARY KEY,
		conversation_id INTEGER REFERENCES conversation(id) ON DELETE CASCADE,
		kind TEXT NOT NULL CHECK (kind IN ('episodic', 'fact')),
		content TEXT NOT NULL,
		salience REAL NOT NULL DEFAULT 0,
		last_reinforced_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
		embedding vector(1536),
		created_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_memory_item_embedding ON memory_item
		USING ivfflat (embedding vector_cosine_ops) WITH (lists = 50)`,
	`CREATE TABLE IF NOT EXISTS persona (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		prompt TEXT NOT NULL,
		created_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
	)`,
	`CREATE TABLE IF NOT EXISTS turn_feedback (
		id BIGSERIAL PRIMARY KEY,
		turn_id BIGINT NOT NULL REFERENCES conversation_turn(id) ON DELETE CASCADE,
		rating INTEGER NOT NULL CHECK (rating IN (-1, 0, 1)),
		note TEXT,
		created_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
	)`,
}

// Migrate applies the schema. Statements are idempotent so startup is safe
// to repeat.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range migrationStmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to execute migration statement: %s", stmt)
		}
	}
	return nil
}
