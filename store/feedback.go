package store

import "context"

// TurnFeedback represents a user rating on an assistant turn.
type TurnFeedback struct {
	ID        int64
	TurnID    int64
	Rating    int32 // -1, 0, 1
	Note      *string
	CreatedTs int64
}

// FindTurnFeedback is the find condition for turn feedback.
type FindTurnFeedback struct {
	TurnID *int64
}

func (s *Store) CreateTurnFeedback(ctx context.Context, create *TurnFeedback) (*TurnFeedback, error) {
	return s.driver.CreateTurnFeedback(ctx, create)
}

func (s *Store) ListTurnFeedback(ctx context.Context, find *FindTurnFeedback) ([]*TurnFeedback, error) {
	return s.driver.ListTurnFeedback(ctx, find)
}
