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

func (d *DB) CreateDocument(ctx context.Context, create *store.Document) (*store.Document, error) {
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	stmt := `
		INSERT INTO document (uid, title, mime_type, summary, created_ts)
		VALUES (` + placeholders(5) + `)
		RETURNING id
	`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.UID,
		create.Title,
		create.MimeType,
		create.Summary,
		create.CreatedTs,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create document")
	}
	return create, nil
}

func (d *DB) ListDocuments(ctx context.Context, find *store.FindDocument) ([]*store.Document, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = "+placeholder(len(args)+1)), append(args, *find.UID)
	}

	query := `
		SELECT id, uid, title, mime_type, summary, created_ts
		FROM document
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC, id DESC
	`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list documents")
	}
	defer rows.Close()

	list := []*store.Document{}
	for rows.Next() {
		var doc store.Document
		var mimeType, summary sql.NullString
		if err := rows.Scan(&doc.ID, &doc.UID, &doc.Title, &mimeType, &summary, &doc.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan document")
		}
		if mimeType.Valid {
			doc.MimeType = &mimeType.String
		}
		if summary.Valid {
			doc.Summary = &summary.String
		}
		list = append(list, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) DeleteDocument(ctx context.Context, delete *store.DeleteDocument) error {
	// Fragments and conversation links cascade.
	if _, err := d.db.ExecContext(ctx, `DELETE FROM document WHERE id = $1`, delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete document")
	}
	return nil
}

func (d *DB) CreateFragment(ctx context.Context, create *store.Fragment) (*store.Fragment, error) {
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}

	var embedding any
	if create.Embedding != nil {
		embedding = pgvector.NewVector(create.Embedding)
	}

	stmt := `
		INSERT INTO document_fragment (document_id, ordinal_index, page, text, embedding, created_ts)
		VALUES (` + placeholders(6) + `)
		RETURNING id
	`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.DocumentID,
		create.OrdinalIndex,
		create.Page,
		create.Text,
		embedding,
		create.CreatedTs,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create fragment")
	}
	return create, nil
}

func (d *DB) ListFragments(ctx context.Context, find *store.FindFragment) ([]*store.Fragment, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.DocumentID != nil {
		where, args = append(where, "document_id = "+placeholder(len(args)+1)), append(args, *find.DocumentID)
	}

	query := `
		SELECT id, document_id, ordinal_index, page, text, embedding, created_ts
		FROM document_fragment
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY document_id, ordinal_index
	`
	if find.Limit != nil {
		query += " LIMIT " + placeholder(len(args)+1)
		args = append(args, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list fragments")
	}
	defer rows.Close()

	list := []*store.Fragment{}
	for rows.Next() {
		fragment, err := scanFragment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, fragment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// fragmentScopeClause builds the FROM/WHERE tail restricting the fragment
// universe, appending bind args as needed.
func fragmentScopeClause(scope *store.FragmentScope, args *[]any) (from string, where []string) {
	from = "document_fragment f JOIN document d ON d.id = f.document_id"
	where = []string{"1 = 1"}

	if scope.ConversationID != nil {
		from += " JOIN conversation_document cd ON cd.document_id = f.document_id"
		where = append(where, "cd.conversation_id = "+placeholder(len(*args)+1))
		*args = append(*args, *scope.ConversationID)
	}
	if len(scope.DocumentIDs) > 0 {
		ph := make([]string, len(scope.DocumentIDs))
		for i, id := range scope.DocumentIDs {
			ph[i] = placeholder(len(*args) + 1)
			*args = append(*args, id)
		}
		where = append(where, "f.document_id IN ("+strings.Join(ph, ", ")+")")
	}
	return from, where
}

func (d *DB) VectorSearchFragments(ctx context.Context, queryVector []float32, scope *store.FragmentScope) ([]*store.FragmentMatch, error) {
	args := []any{pgvector.NewVector(queryVector)}
	from, where := fragmentScopeClause(scope, &args)
	where = append(where, "f.embedding IS NOT NULL")

	args = append(args, scope.Limit)
	query := `
		SELECT f.id, f.document_id, f.ordinal_index, f.page, f.text, f.embedding, f.created_ts,
			d.title,
			1 - (f.embedding <=> $1) AS score
		FROM ` + from + `
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY f.embedding <=> $1
		LIMIT ` + placeholder(len(args))

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to vector search fragments")
	}
	defer rows.Close()

	return scanFragmentMatches(rows)
}

func (d *DB) LexicalSearchFragments(ctx context.Context, query string, scope *store.FragmentScope) ([]*store.FragmentMatch, error) {
	args := []any{query}
	from, where := fragmentScopeClause(scope, &args)
	// The % operator prunes rows below the pg_trgm similarity threshold so
	// the gin index can be used.
	where = append(where, "f.text % $1")

	args = append(args, scope.Limit)
	stmt := `
		SELECT f.id, f.document_id, f.ordinal_index, f.page, f.text, f.embedding, f.created_ts,
			d.title,
			similarity(f.text, $1) AS score
		FROM ` + from + `
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY similarity(f.text, $1) DESC
		LIMIT ` + placeholder(len(args))

	rows, err := d.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to lexical search fragments")
	}
	defer rows.Close()

	return scanFragmentMatches(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFragment(row rowScanner) (*store.Fragment, error) {
	var fragment store.Fragment
	var page sql.NullInt32
	var vector *pgvector.Vector
	if err := row.Scan(
		&fragment.ID,
		&fragment.DocumentID,
		&fragment.OrdinalIndex,
		&page,
		&fragment.Text,
		&vector,
		&fragment.CreatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to scan fragment")
	}
	if page.Valid {
		fragment.Page = &page.Int32
	}
	if vector != nil {
		fragment.Embedding = vector.Slice()
	}
	return &fragment, nil
}

func scanFragmentMatches(rows *sql.Rows) ([]*store.FragmentMatch, error) {
	list := []*store.FragmentMatch{}
	for rows.Next() {
		var match store.FragmentMatch
		var page sql.NullInt32
		var vector *pgvector.Vector
		if err := rows.Scan(
			&match.ID,
			&match.DocumentID,
			&match.OrdinalIndex,
			&page,
			&match.Text,
			&vector,
			&match.CreatedTs,
			&match.DocumentTitle,
			&match.Score,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan fragment match")
		}
		if page.Valid {
			match.Page = &page.Int32
		}
		if vector != nil {
			match.Embedding = vector.Slice()
		}
		list = append(list, &match)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
