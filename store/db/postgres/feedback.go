package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/docpilot/store"
)

func (d *DB) CreateTurnFeedback(ctx context.Context, create *store.TurnFeedback) (*store.TurnFeedback, error) {
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	stmt := `
		INSERT INTO turn_feedback (turn_id, rating, note, created_ts)
		VALUES (` + placeholders(4) + `)
		RETURNING id
	`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.TurnID,
		create.Rating,
		create.Note,
		create.CreatedTs,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create turn feedback")
	}
	return create, nil
}

func (d *DB) ListTurnFeedback(ctx context.Context, find *store.FindTurnFeedback) ([]*store.TurnFeedback, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.TurnID != nil {
		where, args = append(where, "turn_id = "+placeholder(len(args)+1)), append(args, *find.TurnID)
	}

	query := `
		SELECT id, turn_id, rating, note, created_ts
		FROM turn_feedback
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY id
	`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list turn feedback")
	}
	defer rows.Close()

	list := []*store.TurnFeedback{}
	for rows.Next() {
		var feedback store.TurnFeedback
		var note sql.NullString
		if err := rows.Scan(&feedback.ID, &feedback.TurnID, &feedback.Rating, &note, &feedback.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan turn feedback")
		}
		if note.Valid {
			feedback.Note = &note.String
		}
		list = append(list, &feedback)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
