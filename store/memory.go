package store

import "context"

// MemoryKind discriminates long-term memory items.
type MemoryKind string

const (
	// MemoryKindEpisodic records something that happened in a conversation.
	MemoryKindEpisodic MemoryKind = "episodic"
	// MemoryKindFact records a standalone fact worth keeping.
	MemoryKindFact MemoryKind = "fact"
)

// MemoryItem represents a salience-weighted long-term memory record.
type MemoryItem struct {
	ID               int64
	ConversationID   *int32
	Kind             MemoryKind
	Content          string
	Salience         float64
	LastReinforcedTs int64
	Embedding        []float32 // nil when the item has no embedding
	CreatedTs        int64
}

// FindMemoryItem is the find condition for memory items.
// When Vector is set, results are ordered by vector similarity; otherwise by
// (salience desc, last_reinforced desc).
type FindMemoryItem struct {
	ID             *int64
	ConversationID *int32
	Vector         []float32
	Limit          *int
}

// DeleteStaleMemoryItems is the retention sweep condition. An item is
// deleted only when it is BOTH older than the cutoff and below the salience
// floor.
type DeleteStaleMemoryItems struct {
	ReinforcedBeforeTs int64
	SalienceFloor      float64
}

// ConversationSummary is the single rolling summary row of a conversation.
type ConversationSummary struct {
	ConversationID int32
	RollingSummary string
	UpdatedTs      int64
}

func (s *Store) CreateMemoryItem(ctx context.Context, create *MemoryItem) (*MemoryItem, error) {
	return s.driver.CreateMemoryItem(ctx, create)
}

func (s *Store) ListMemoryItems(ctx context.Context, find *FindMemoryItem) ([]*MemoryItem, error) {
	return s.driver.ListMemoryItems(ctx, find)
}

// ReinforceMemoryItem moves the item's last_reinforced timestamp forward,
// increasing its survival odds in the retention sweep.
func (s *Store) ReinforceMemoryItem(ctx context.Context, id int64, reinforcedTs int64) error {
	return s.driver.ReinforceMemoryItem(ctx, id, reinforcedTs)
}

// DeleteStaleMemoryItems removes stale low-salience items and returns the
// number of rows deleted.
func (s *Store) DeleteStaleMemoryItems(ctx context.Context, delete *DeleteStaleMemoryItems) (int64, error) {
	return s.driver.DeleteStaleMemoryItems(ctx, delete)
}

// UpsertConversationSummary writes the rolling summary, last writer wins.
func (s *Store) UpsertConversationSummary(ctx context.Context, upsert *ConversationSummary) (*ConversationSummary, error) {
	return s.driver.UpsertConversationSummary(ctx, upsert)
}

func (s *Store) GetConversationSummary(ctx context.Context, conversationID int32) (*ConversationSummary, error) {
	return s.driver.GetConversationSummary(ctx, conversationID)
}
