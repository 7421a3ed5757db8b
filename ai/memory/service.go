// Package memory implements salience-weighted long-term memory with
// reinforcement and a periodic retention sweep.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hrygo/docpilot/ai/core/embedding"
	"github.com/hrygo/docpilot/ai/metrics"
	"github.com/hrygo/docpilot/store"
)

// Options configures the memory service.
type Options struct {
	RetentionDays int
	SalienceFloor float64
	RecallLimit   int
}

// Service manages long-term memory items and conversation summaries.
type Service struct {
	store    *store.Store
	embedder embedding.Service
	opts     Options
}

// NewService creates a memory Service. embedder may be nil; recall then
// falls back to salience ordering.
func NewService(s *store.Store, embedder embedding.Service, opts Options) *Service {
	if opts.RetentionDays <= 0 {
		opts.RetentionDays = 30
	}
	if opts.SalienceFloor <= 0 {
		opts.SalienceFloor = 0.3
	}
	if opts.RecallLimit <= 0 {
		opts.RecallLimit = 5
	}
	return &Service{store: s, embedder: embedder, opts: opts}
}

// Remember stores a new memory item. Salience must be in [0, 1].
func (s *Service) Remember(ctx context.Context, conversationID *int32, kind store.MemoryKind, content string, salience float64) (*store.MemoryItem, error) {
	if content == "" {
		return nil, fmt.Errorf("memory content must not be empty")
	}
	if salience < 0 || salience > 1 {
		return nil, fmt.Errorf("salience must be in [0, 1], got %v", salience)
	}
	if kind != store.MemoryKindEpisodic && kind != store.MemoryKindFact {
		return nil, fmt.Errorf("unknown memory kind %q", kind)
	}

	item := &store.MemoryItem{
		ConversationID: conversationID,
		Kind:           kind,
		Content:        content,
		Salience:       salience,
	}
	if s.embedder != nil {
		vector, err := s.embedder.Embed(ctx, content)
		if err != nil {
			// An unembedded item still participates in salience-ordered
			// recall, so store it anyway.
			slog.Warn("memory: embed failed, storing without vector", "error", err)
		} else {
			item.Embedding = vector
		}
	}
	return s.store.CreateMemoryItem(ctx, item)
}

// Recall returns memory items relevant to the query. With an embedder the
// query is embedded and items are ordered by vector similarity; otherwise
// by salience and recency.
func (s *Service) Recall(ctx context.Context, conversationID *int32, query string) ([]*store.MemoryItem, error) {
	find := &store.FindMemoryItem{
		ConversationID: conversationID,
		Limit:          &s.opts.RecallLimit,
	}
	if s.embedder != nil && query != "" {
		vector, err := s.embedder.Embed(ctx, query)
		if err != nil {
			slog.Warn("memory: embed failed, falling back to salience recall", "error", err)
		} else {
			find.Vector = vector
		}
	}
	return s.store.ListMemoryItems(ctx, find)
}

// Reinforce marks an item as recently useful.
func (s *Service) Reinforce(ctx context.Context, id int64) error {
	return s.store.ReinforceMemoryItem(ctx, id, time.Now().Unix())
}

// Sweep deletes items that are both past retention and below the salience
// floor, returning the number deleted.
func (s *Service) Sweep(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -s.opts.RetentionDays).Unix()
	deleted, err := s.store.DeleteStaleMemoryItems(ctx, &store.DeleteStaleMemoryItems{
		ReinforcedBeforeTs: cutoff,
		SalienceFloor:      s.opts.SalienceFloor,
	})
	if err != nil {
		return 0, fmt.Errorf("memory sweep: %w", err)
	}
	if deleted > 0 {
		metrics.MemorySweepDeleted.Add(float64(deleted))
		slog.Info("memory: sweep removed stale items", "deleted", deleted)
	}
	return deleted, nil
}

// UpsertSummary writes the conversation's rolling summary.
func (s *Service) UpsertSummary(ctx context.Context, conversationID int32, rolling string) error {
	_, err := s.store.UpsertConversationSummary(ctx, &store.ConversationSummary{
		ConversationID: conversationID,
		RollingSummary: rolling,
	})
	return err
}

// GetSummary returns the conversation's rolling summary, or nil when none
// has been written yet.
func (s *Service) GetSummary(ctx context.Context, conversationID int32) (*store.ConversationSummary, error) {
	return s.store.GetConversationSummary(ctx, conversationID)
}

// RunSweeper runs the retention sweep on a ticker until ctx is cancelled.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	slog.Info("memory: sweeper started", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			slog.Info("memory: sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				slog.Error("memory: sweep failed", "error", err)
			}
		}
	}
}
