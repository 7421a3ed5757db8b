package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/docpilot/store"
)

func (d *DB) CreatePersona(ctx context.Context, create *store.Persona) (*store.Persona, error) {
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	stmt := `
		INSERT INTO persona (name, prompt, created_ts)
		VALUES (` + placeholders(3) + `)
		RETURNING id
	`
	if err := d.db.QueryRowContext(ctx, stmt, create.Name, create.Prompt, create.CreatedTs).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create persona")
	}
	return create, nil
}

func (d *DB) ListPersonas(ctx context.Context, find *store.FindPersona) ([]*store.Persona, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.Name != nil {
		where, args = append(where, "name = "+placeholder(len(args)+1)), append(args, *find.Name)
	}

	query := `
		SELECT id, name, prompt, created_ts
		FROM persona
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY name
	`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list personas")
	}
	defer rows.Close()

	list := []*store.Persona{}
	for rows.Next() {
		var persona store.Persona
		if err := rows.Scan(&persona.ID, &persona.Name, &persona.Prompt, &persona.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan persona")
		}
		list = append(list, &persona)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) DeletePersona(ctx context.Context, delete *store.DeletePersona) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM persona WHERE id = $1`, delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete persona")
	}
	return nil
}
