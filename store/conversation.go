package store

import "context"

// Conversation represents a chat conversation and its generation defaults.
type Conversation struct {
	ID           int32
	UID          string
	Title        string
	SystemPrompt string
	Persona      *string
	Provider     string
	Model        string
	Temperature  float32
	CreatedTs    int64
	UpdatedTs    int64
}

// FindConversation is the find condition for conversations.
type FindConversation struct {
	ID  *int32
	UID *string
}

// UpdateConversation is the update condition for conversations.
type UpdateConversation struct {
	ID        int32
	Title     *string
	Persona   *string
	UpdatedTs *int64
}

// DeleteConversation is the delete condition for conversations.
// Turns, summary, and document links cascade with the conversation.
type DeleteConversation struct {
	ID int32
}

// Turn represents a single conversation turn. The sources payload is the
// serialized citation list attached to assistant turns.
type Turn struct {
	ID             int64
	ConversationID int32
	Role           string // user, assistant
	Content        string
	Sources        *string // JSON, assistant turns only
	CreatedTs      int64
}

// FindTurn is the find condition for turns.
type FindTurn struct {
	ID             *int64
	ConversationID *int32
	// Limit returns the most recent turns; results are still ordered
	// oldest-first.
	Limit *int
}

func (s *Store) CreateConversation(ctx context.Context, create *Conversation) (*Conversation, error) {
	return s.driver.CreateConversation(ctx, create)
}

func (s *Store) ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error) {
	return s.driver.ListConversations(ctx, find)
}

func (s *Store) GetConversation(ctx context.Context, find *FindConversation) (*Conversation, error) {
	list, err := s.driver.ListConversations(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdateConversation(ctx context.Context, update *UpdateConversation) (*Conversation, error) {
	return s.driver.UpdateConversation(ctx, update)
}

func (s *Store) DeleteConversation(ctx context.Context, delete *DeleteConversation) error {
	return s.driver.DeleteConversation(ctx, delete)
}

// LinkConversationDocument links a document into a conversation's retrieval
// scope. Linking twice is a no-op.
func (s *Store) LinkConversationDocument(ctx context.Context, conversationID, documentID int32) error {
	return s.driver.LinkConversationDocument(ctx, conversationID, documentID)
}

func (s *Store) ListConversationDocumentIDs(ctx context.Context, conversationID int32) ([]int32, error) {
	return s.driver.ListConversationDocumentIDs(ctx, conversationID)
}

func (s *Store) CreateTurn(ctx context.Context, create *Turn) (*Turn, error) {
	return s.driver.CreateTurn(ctx, create)
}

func (s *Store) ListTurns(ctx context.Context, find *FindTurn) ([]*Turn, error) {
	return s.driver.ListTurns(ctx, find)
}
