package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for database access.
type Driver interface {
	GetDB() *sql.DB
	Close() error
	Migrate(ctx context.Context) error

	// Document
	CreateDocument(ctx context.Context, create *Document) (*Document, error)
	ListDocuments(ctx context.Context, find *FindDocument) ([]*Document, error)
	DeleteDocument(ctx context.Context, delete *DeleteDocument) error
	CreateFragment(ctx context.Context, create *Fragment) (*Fragment, error)
	ListFragments(ctx context.Context, find *FindFragment) ([]*Fragment, error)
	VectorSearchFragments(ctx context.Context, queryVector []float32, scope *FragmentScope) ([]*FragmentMatch, error)
	LexicalSearchFragments(ctx context.Context, query string, scope *FragmentScope) ([]*FragmentMatch, error)

	// Conversation
	CreateConversation(ctx context.Context, create *Conversation) (*Conversation, error)
	ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error)
	UpdateConversation(ctx context.Context, update *UpdateConversation) (*Conversation, error)
	DeleteConversation(ctx context.Context, delete *DeleteConversation) error
	LinkConversationDocument(ctx context.Context, conversationID, documentID int32) error
	ListConversationDocumentIDs(ctx context.Context, conversationID int32) ([]int32, error)
	CreateTurn(ctx context.Context, create *Turn) (*Turn, error)
	ListTurns(ctx context.Context, find *FindTurn) ([]*Turn, error)

	// Memory
	CreateMemoryItem(ctx context.Context, create *MemoryItem) (*MemoryItem, error)
	ListMemoryItems(ctx context.Context, find *FindMemoryItem) ([]*MemoryItem, error)
	ReinforceMemoryItem(ctx context.Context, id int64, reinforcedTs int64) error
	DeleteStaleMemoryItems(ctx context.Context, delete *DeleteStaleMemoryItems) (int64, error)
	UpsertConversationSummary(ctx context.Context, upsert *ConversationSummary) (*ConversationSummary, error)
	GetConversationSummary(ctx context.Context, conversationID int32) (*ConversationSummary, error)

	// Persona
	CreatePersona(ctx context.Context, create *Persona) (*Persona, error)
	ListPersonas(ctx context.Context, find *FindPersona) ([]*Persona, error)
	DeletePersona(ctx context.Context, delete *DeletePersona) error

	// Feedback
	CreateTurnFeedback(ctx context.Context, create *TurnFeedback) (*TurnFeedback, error)
	ListTurnFeedback(ctx context.Context, find *FindTurnFeedback) ([]*TurnFeedback, error)
}
