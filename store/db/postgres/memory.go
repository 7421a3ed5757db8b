package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/hrygo/docpilot/store"
)

func (d *DB) CreateMemoryItem(ctx context.Context, create *store.MemoryItem) (*store.MemoryItem, error) {
	now := time.Now().Unix()
	if create.CreatedTs == 0 {
		create.CreatedTs = now
	}
	if create.LastReinforcedTs == 0 {
		create.LastReinforcedTs = now
	}

	var embedding any
	if create.Embedding != nil {
		embedding = pgvector.NewVector(create.Embedding)
	}

	stmt := `
		INSERT INTO memory_item (conversation_id, kind, content, salience, last_reinforced_ts, embedding, created_ts)
		VALUES (` + placeholders(7) + `)
		RETURNING id
	`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.ConversationID,
		create.Kind,
		create.Content,
		create.Salience,
		create.LastReinforcedTs,
		embedding,
		create.CreatedTs,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create memory item")
	}
	return create, nil
}

func (d *DB) ListMemoryItems(ctx context.Context, find *store.FindMemoryItem) ([]*store.MemoryItem, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.ConversationID != nil {
		where, args = append(where, "conversation_id = "+placeholder(len(args)+1)), append(args, *find.ConversationID)
	}

	orderBy := "salience DESC, last_reinforced_ts DESC, id DESC"
	if find.Vector != nil {
		where = append(where, "embedding IS NOT NULL")
		args = append(args, pgvector.NewVector(find.Vector))
		orderBy = "embedding <=> " + placeholder(len(args))
	}

	query := `
		SELECT id, conversation_id, kind, content, salience, last_reinforced_ts, embedding, created_ts
		FROM memory_item
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY ` + orderBy
	if find.Limit != nil {
		args = append(args, *find.Limit)
		query += " LIMIT " + placeholder(len(args))
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list memory items")
	}
	defer rows.Close()

	list := []*store.MemoryItem{}
	for rows.Next() {
		var item store.MemoryItem
		var conversationID sql.NullInt32
		var vector *pgvector.Vector
		if err := rows.Scan(
			&item.ID,
			&conversationID,
			&item.Kind,
			&item.Content,
			&item.Salience,
			&item.LastReinforcedTs,
			&vector,
			&item.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan memory item")
		}
		if conversationID.Valid {
			item.ConversationID = &conversationID.Int32
		}
		if vector != nil {
			item.Embedding = vector.Slice()
		}
		list = append(list, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) ReinforceMemoryItem(ctx context.Context, id int64, reinforcedTs int64) error {
	if _, err := d.db.ExecContext(ctx,
		`UPDATE memory_item SET last_reinforced_ts = $1 WHERE id = $2`,
		reinforcedTs, id,
	); err != nil {
		return errors.Wrap(err, "failed to reinforce memory item")
	}
	return nil
}

func (d *DB) DeleteStaleMemoryItems(ctx context.Context, delete *store.DeleteStaleMemoryItems) (int64, error) {
	// Both conditions are required: recently reinforced items survive
	// regardless of salience, salient items survive regardless of age.
	result, err := d.db.ExecContext(ctx,
		`DELETE FROM memory_item WHERE last_reinforced_ts < $1 AND salience < $2`,
		delete.ReinforcedBeforeTs, delete.SalienceFloor,
	)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete stale memory items")
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to count deleted memory items")
	}
	return deleted, nil
}

func (d *DB) UpsertConversationSummary(ctx context.Context, upsert *store.ConversationSummary) (*store.ConversationSummary, error) {
	if upsert.UpdatedTs == 0 {
		upsert.UpdatedTs = time.Now().Unix()
	}
	stmt := `
		INSERT INTO conversation_summary (conversation_id, rolling_summary, updated_ts)
		VALUES ($1, $2, $3)
		ON CONFLICT (conversation_id) DO UPDATE SET
			rolling_summary = EXCLUDED.rolling_summary,
			updated_ts = EXCLUDED.updated_ts
		RETURNING conversation_id, rolling_summary, updated_ts
	`
	var summary store.ConversationSummary
	if err := d.db.QueryRowContext(ctx, stmt,
		upsert.ConversationID,
		upsert.RollingSummary,
		upsert.UpdatedTs,
	).Scan(&summary.ConversationID, &summary.RollingSummary, &summary.UpdatedTs); err != nil {
		return nil, errors.Wrap(err, "failed to upsert conversation summary")
	}
	return &summary, nil
}

func (d *DB) GetConversationSummary(ctx context.Context, conversationID int32) (*store.ConversationSummary, error) {
	var summary store.ConversationSummary
	err := d.db.QueryRowContext(ctx,
		`SELECT conversation_id, rolling_summary, updated_ts FROM conversation_summary WHERE conversation_id = $1`,
		conversationID,
	).Scan(&summary.ConversationID, &summary.RollingSummary, &summary.UpdatedTs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get conversation summary")
	}
	return &summary, nil
}
