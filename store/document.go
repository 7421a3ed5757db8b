package store

import "context"

// Document represents a source document whose fragments are retrievable.
// Parsing and chunking happen outside this service; documents arrive here
// already split into fragments.
type Document struct {
	ID        int32
	UID       string
	Title     string
	MimeType  *string
	Summary   *string
	CreatedTs int64
}

// FindDocument is the find condition for documents.
type FindDocument struct {
	ID  *int32
	UID *string
}

// DeleteDocument is the delete condition for documents.
// Fragments cascade with the document.
type DeleteDocument struct {
	ID int32
}

// Fragment is a chunk of a document with a precomputed embedding.
// Immutable once created.
type Fragment struct {
	ID           int64
	DocumentID   int32
	OrdinalIndex int32
	Page         *int32
	Text         string
	Embedding    []float32 // nil when the fragment has not been embedded
	CreatedTs    int64
}

// FindFragment is the find condition for fragments.
type FindFragment struct {
	ID         *int64
	DocumentID *int32
	Limit      *int
}

// FragmentMatch is a fragment returned by a similarity query, carrying the
// raw similarity score of that query and the owning document's title.
type FragmentMatch struct {
	Fragment
	DocumentTitle string
	Score         float64
}

// FragmentScope restricts a similarity query to a fragment universe.
// When ConversationID is set, only fragments of documents linked to that
// conversation are searched. Zero value means unrestricted.
type FragmentScope struct {
	ConversationID *int32
	DocumentIDs    []int32
	Limit          int
}

func (s *Store) CreateDocument(ctx context.Context, create *Document) (*Document, error) {
	return s.driver.CreateDocument(ctx, create)
}

func (s *Store) ListDocuments(ctx context.Context, find *FindDocument) ([]*Document, error) {
	return s.driver.ListDocuments(ctx, find)
}

func (s *Store) GetDocument(ctx context.Context, find *FindDocument) (*Document, error) {
	list, err := s.driver.ListDocuments(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) DeleteDocument(ctx context.Context, delete *DeleteDocument) error {
	return s.driver.DeleteDocument(ctx, delete)
}

func (s *Store) CreateFragment(ctx context.Context, create *Fragment) (*Fragment, error) {
	return s.driver.CreateFragment(ctx, create)
}

func (s *Store) ListFragments(ctx context.Context, find *FindFragment) ([]*Fragment, error) {
	return s.driver.ListFragments(ctx, find)
}

// VectorSearchFragments returns up to scope.Limit fragments ordered by
// cosine similarity to the query vector. Fragments without an embedding are
// not considered.
func (s *Store) VectorSearchFragments(ctx context.Context, queryVector []float32, scope *FragmentScope) ([]*FragmentMatch, error) {
	return s.driver.VectorSearchFragments(ctx, queryVector, scope)
}

// LexicalSearchFragments returns up to scope.Limit fragments ordered by
// trigram similarity between the query text and the fragment text.
func (s *Store) LexicalSearchFragments(ctx context.Context, query string, scope *FragmentScope) ([]*FragmentMatch, error) {
	return s.driver.LexicalSearchFragments(ctx, query, scope)
}
