package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/docpilot/store"
)

func (d *DB) CreateConversation(ctx context.Context, create *store.Conversation) (*store.Conversation, error) {
	now := time.Now().Unix()
	if create.CreatedTs == 0 {
		create.CreatedTs = now
	}
	if create.UpdatedTs == 0 {
		create.UpdatedTs = now
	}

	fields := []string{"uid", "title", "system_prompt", "persona", "provider", "model", "temperature", "created_ts", "updated_ts"}
	args := []any{create.UID, create.Title, create.SystemPrompt, create.Persona, create.Provider, create.Model, create.Temperature, create.CreatedTs, create.UpdatedTs}

	stmt := `INSERT INTO conversation (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create conversation")
	}
	return create, nil
}

func (d *DB) ListConversations(ctx context.Context, find *store.FindConversation) ([]*store.Conversation, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = "+placeholder(len(args)+1)), append(args, *find.UID)
	}

	query := `
		SELECT id, uid, title, system_prompt, persona, provider, model, temperature, created_ts, updated_ts
		FROM conversation
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY updated_ts DESC, id DESC
	`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list conversations")
	}
	defer rows.Close()

	list := []*store.Conversation{}
	for rows.Next() {
		conversation, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, conversation)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) UpdateConversation(ctx context.Context, update *store.UpdateConversation) (*store.Conversation, error) {
	set, args := []string{}, []any{}

	if update.Title != nil {
		set, args = append(set, "title = "+placeholder(len(args)+1)), append(args, *update.Title)
	}
	if update.Persona != nil {
		set, args = append(set, "persona = "+placeholder(len(args)+1)), append(args, *update.Persona)
	}
	if update.UpdatedTs != nil {
		set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, *update.UpdatedTs)
	}
	if len(set) == 0 {
		return nil, errors.New("no fields to update")
	}

	args = append(args, update.ID)
	stmt := `UPDATE conversation SET ` + strings.Join(set, ", ") + `
		WHERE id = ` + placeholder(len(args)) + `
		RETURNING id, uid, title, system_prompt, persona, provider, model, temperature, created_ts, updated_ts`
	conversation, err := scanConversation(d.db.QueryRowContext(ctx, stmt, args...))
	if err != nil {
		return nil, errors.Wrap(err, "failed to update conversation")
	}
	return conversation, nil
}

func (d *DB) DeleteConversation(ctx context.Context, delete *store.DeleteConversation) error {
	// Turns, summary, memory items, and document links cascade.
	if _, err := d.db.ExecContext(ctx, `DELETE FROM conversation WHERE id = $1`, delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete conversation")
	}
	return nil
}

func (d *DB) LinkConversationDocument(ctx context.Context, conversationID, documentID int32) error {
	stmt := `
		INSERT INTO conversation_document (conversation_id, document_id, created_ts)
		VALUES ($1, $2, $3)
		ON CONFLICT (conversation_id, document_id) DO NOTHING
	`
	if _, err := d.db.ExecContext(ctx, stmt, conversationID, documentID, time.Now().Unix()); err != nil {
		return errors.Wrap(err, "failed to link conversation document")
	}
	return nil
}

func (d *DB) ListConversationDocumentIDs(ctx context.Context, conversationID int32) ([]int32, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT document_id FROM conversation_document WHERE conversation_id = $1 ORDER BY document_id`,
		conversationID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list conversation document ids")
	}
	defer rows.Close()

	ids := []int32{}
	for rows.Next() {
		var id int32
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "failed to scan document id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (d *DB) CreateTurn(ctx context.Context, create *store.Turn) (*store.Turn, error) {
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	stmt := `
		INSERT INTO conversation_turn (conversation_id, role, content, sources, created_ts)
		VALUES (` + placeholders(5) + `)
		RETURNING id
	`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.ConversationID,
		create.Role,
		create.Content,
		create.Sources,
		create.CreatedTs,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create turn")
	}
	return create, nil
}

func (d *DB) ListTurns(ctx context.Context, find *store.FindTurn) ([]*store.Turn, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.ConversationID != nil {
		where, args = append(where, "conversation_id = "+placeholder(len(args)+1)), append(args, *find.ConversationID)
	}

	query := `
		SELECT id, conversation_id, role, content, sources, created_ts
		FROM conversation_turn
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY id
	`
	if find.Limit != nil {
		// Keep the most recent rows but return them oldest-first.
		args = append(args, *find.Limit)
		query = `
			SELECT id, conversation_id, role, content, sources, created_ts FROM (` +
			strings.ReplaceAll(query, "ORDER BY id", "ORDER BY id DESC") + `
			LIMIT ` + placeholder(len(args)) + `
			) recent ORDER BY id
		`
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list turns")
	}
	defer rows.Close()

	list := []*store.Turn{}
	for rows.Next() {
		var turn store.Turn
		var sources sql.NullString
		if err := rows.Scan(&turn.ID, &turn.ConversationID, &turn.Role, &turn.Content, &sources, &turn.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan turn")
		}
		if sources.Valid {
			turn.Sources = &sources.String
		}
		list = append(list, &turn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func scanConversation(row rowScanner) (*store.Conversation, error) {
	var conversation store.Conversation
	var persona sql.NullString
	if err := row.Scan(
		&conversation.ID,
		&conversation.UID,
		&conversation.Title,
		&conversation.SystemPrompt,
		&persona,
		&conversation.Provider,
		&conversation.Model,
		&conversation.Temperature,
		&conversation.CreatedTs,
		&conversation.UpdatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to scan conversation")
	}
	if persona.Valid {
		conversation.Persona = &persona.String
	}
	return &conversation, nil
}
