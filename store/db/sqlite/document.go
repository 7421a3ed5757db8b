package sqlite

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/docpilot/store"
)

func (d *DB) CreateDocument(ctx context.Context, create *store.Document) (*store.Document, error) {
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	stmt := `
		INSERT INTO document (uid, title, mime_type, summary, created_ts)
		VALUES (?, ?, ?, ?, ?)
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
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = ?"), append(args, *find.UID)
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
	if _, err := d.db.ExecContext(ctx, `DELETE FROM document WHERE id = ?`, delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete document")
	}
	return nil
}

func (d *DB) CreateFragment(ctx context.Context, create *store.Fragment) (*store.Fragment, error) {
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	embedding, err := marshalVector(create.Embedding)
	if err != nil {
		return nil, err
	}

	stmt := `
		INSERT INTO document_fragment (document_id, ordinal_index, page, text, embedding, created_ts)
		VALUES (?, ?, ?, ?, ?, ?)
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
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.DocumentID != nil {
		where, args = append(where, "document_id = ?"), append(args, *find.DocumentID)
	}

	query := `
		SELECT id, document_id, ordinal_index, page, text, embedding, created_ts
		FROM document_fragment
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY document_id, ordinal_index
	`
	if find.Limit != nil {
		query += " LIMIT ?"
		args = append(args, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list fragments")
	}
	defer rows.Close()

	list := []*store.Fragment{}
	for rows.Next() {
		var fragment store.Fragment
		var page sql.NullInt32
		var embedding sql.NullString
		if err := rows.Scan(
			&fragment.ID,
			&fragment.DocumentID,
			&fragment.OrdinalIndex,
			&page,
			&fragment.Text,
			&embedding,
			&fragment.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan fragment")
		}
		if page.Valid {
			fragment.Page = &page.Int32
		}
		if embedding.Valid {
			vector, err := unmarshalVector(&embedding.String)
			if err != nil {
				return nil, err
			}
			fragment.Embedding = vector
		}
		list = append(list, &fragment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// loadScopedFragments loads all fragments inside the scope together with
// their document titles. Scoring happens in Go.
func (d *DB) loadScopedFragments(ctx context.Context, scope *store.FragmentScope) ([]*store.FragmentMatch, error) {
	from := "document_fragment f JOIN document d ON d.id = f.document_id"
	where, args := []string{"1 = 1"}, []any{}

	if scope.ConversationID != nil {
		from += " JOIN conversation_document cd ON cd.document_id = f.document_id"
		where, args = append(where, "cd.conversation_id = ?"), append(args, *scope.ConversationID)
	}
	if len(scope.DocumentIDs) > 0 {
		ph := make([]string, len(scope.DocumentIDs))
		for i, id := range scope.DocumentIDs {
			ph[i] = "?"
			args = append(args, id)
		}
		where = append(where, "f.document_id IN ("+strings.Join(ph, ", ")+")")
	}

	query := `
		SELECT f.id, f.document_id, f.ordinal_index, f.page, f.text, f.embedding, f.created_ts, d.title
		FROM ` + from + `
		WHERE ` + strings.Join(where, " AND ")

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load scoped fragments")
	}
	defer rows.Close()

	list := []*store.FragmentMatch{}
	for rows.Next() {
		var match store.FragmentMatch
		var page sql.NullInt32
		var embedding sql.NullString
		if err := rows.Scan(
			&match.ID,
			&match.DocumentID,
			&match.OrdinalIndex,
			&page,
			&match.Text,
			&embedding,
			&match.CreatedTs,
			&match.DocumentTitle,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan fragment match")
		}
		if page.Valid {
			match.Page = &page.Int32
		}
		if embedding.Valid {
			vector, err := unmarshalVector(&embedding.String)
			if err != nil {
				return nil, err
			}
			match.Embedding = vector
		}
		list = append(list, &match)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) VectorSearchFragments(ctx context.Context, queryVector []float32, scope *store.FragmentScope) ([]*store.FragmentMatch, error) {
	matches, err := d.loadScopedFragments(ctx, scope)
	if err != nil {
		return nil, err
	}

	scored := matches[:0]
	for _, match := range matches {
		if match.Embedding == nil {
			continue
		}
		match.Score = cosineSimilarity(queryVector, match.Embedding)
		scored = append(scored, match)
	}
	sortMatches(scored)
	return truncateMatches(scored, scope.Limit), nil
}

func (d *DB) LexicalSearchFragments(ctx context.Context, query string, scope *store.FragmentScope) ([]*store.FragmentMatch, error) {
	matches, err := d.loadScopedFragments(ctx, scope)
	if err != nil {
		return nil, err
	}

	scored := matches[:0]
	for _, match := range matches {
		score := trigramSimilarity(match.Text, query)
		if score <= 0 {
			continue
		}
		match.Score = score
		scored = append(scored, match)
	}
	sortMatches(scored)
	return truncateMatches(scored, scope.Limit), nil
}

func sortMatches(matches []*store.FragmentMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
}

func truncateMatches(matches []*store.FragmentMatch, limit int) []*store.FragmentMatch {
	if limit > 0 && len(matches) > limit {
		return matches[:limit]
	}
	return matches
}
