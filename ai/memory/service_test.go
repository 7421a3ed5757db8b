package memory

import (
	"context"
	"testing"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/docpilot/store"
	storetest "github.com/hrygo/docpilot/store/test"
)

func TestRememberValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(storetest.NewTestingStore(ctx, t), nil, Options{})

	_, err := svc.Remember(ctx, nil, store.MemoryKindFact, "", 0.5)
	require.Error(t, err)
	_, err = svc.Remember(ctx, nil, store.MemoryKindFact, "water boils at 100C", 1.5)
	require.Error(t, err)
	_, err = svc.Remember(ctx, nil, "hunch", "something", 0.5)
	require.Error(t, err)

	item, err := svc.Remember(ctx, nil, store.MemoryKindFact, "water boils at 100C", 0.8)
	require.NoError(t, err)
	require.NotZero(t, item.ID)
	require.NotZero(t, item.LastReinforcedTs)
}

func TestRecallSalienceOrder(t *testing.T) {
	ctx := context.Background()
	s := storetest.NewTestingStore(ctx, t)
	svc := NewService(s, nil, Options{RecallLimit: 10})

	_, err := svc.Remember(ctx, nil, store.MemoryKindFact, "low salience", 0.2)
	require.NoError(t, err)
	_, err = svc.Remember(ctx, nil, store.MemoryKindEpisodic, "high salience", 0.9)
	require.NoError(t, err)
	_, err = svc.Remember(ctx, nil, store.MemoryKindFact, "mid salience", 0.5)
	require.NoError(t, err)

	items, err := svc.Recall(ctx, nil, "anything")
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.Equal(t, "high salience", items[0].Content)
	require.Equal(t, "mid salience", items[1].Content)
	require.Equal(t, "low salience", items[2].Content)
}

func TestRecallScopedToConversation(t *testing.T) {
	ctx := context.Background()
	s := storetest.NewTestingStore(ctx, t)
	svc := NewService(s, nil, Options{})

	convID := createConversation(ctx, t, s)
	_, err := svc.Remember(ctx, &convID, store.MemoryKindEpisodic, "in conversation", 0.5)
	require.NoError(t, err)
	_, err = svc.Remember(ctx, nil, store.MemoryKindFact, "global", 0.9)
	require.NoError(t, err)

	items, err := svc.Recall(ctx, &convID, "")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "in conversation", items[0].Content)
}

func TestSweepRequiresBothConditions(t *testing.T) {
	ctx := context.Background()
	s := storetest.NewTestingStore(ctx, t)
	svc := NewService(s, nil, Options{RetentionDays: 30, SalienceFloor: 0.3})

	stale := time.Now().AddDate(0, 0, -60).Unix()

	// Stale and low salience: the only deletion candidate.
	_, err := s.CreateMemoryItem(ctx, &store.MemoryItem{
		Kind: store.MemoryKindFact, Content: "stale low", Salience: 0.1, LastReinforcedTs: stale,
	})
	require.NoError(t, err)
	// Stale but salient: survives.
	_, err = s.CreateMemoryItem(ctx, &store.MemoryItem{
		Kind: store.MemoryKindFact, Content: "stale high", Salience: 0.9, LastReinforcedTs: stale,
	})
	require.NoError(t, err)
	// Low salience but fresh: survives.
	_, err = s.CreateMemoryItem(ctx, &store.MemoryItem{
		Kind: store.MemoryKindFact, Content: "fresh low", Salience: 0.1,
	})
	require.NoError(t, err)

	deleted, err := svc.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	items, err := s.ListMemoryItems(ctx, &store.FindMemoryItem{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, item := range items {
		require.NotEqual(t, "stale low", item.Content)
	}
}

func TestReinforceRescuesFromSweep(t *testing.T) {
	ctx := context.Background()
	s := storetest.NewTestingStore(ctx, t)
	svc := NewService(s, nil, Options{RetentionDays: 30, SalienceFloor: 0.3})

	stale := time.Now().AddDate(0, 0, -60).Unix()
	item, err := s.CreateMemoryItem(ctx, &store.MemoryItem{
		Kind: store.MemoryKindEpisodic, Content: "nearly forgotten", Salience: 0.1, LastReinforcedTs: stale,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Reinforce(ctx, item.ID))

	deleted, err := svc.Sweep(ctx)
	require.NoError(t, err)
	require.Zero(t, deleted)
}

func TestSummaryRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := storetest.NewTestingStore(ctx, t)
	svc := NewService(s, nil, Options{})

	convID := createConversation(ctx, t, s)

	got, err := svc.GetSummary(ctx, convID)
	require.NoError(t, err)
	require.Nil(t, got)

	require.NoError(t, svc.UpsertSummary(ctx, convID, "first summary"))
	require.NoError(t, svc.UpsertSummary(ctx, convID, "second summary"))

	got, err = svc.GetSummary(ctx, convID)
	require.NoError(t, err)
	require.Equal(t, "second summary", got.RollingSummary)
}

func createConversation(ctx context.Context, t *testing.T, s *store.Store) int32 {
	conv, err := s.CreateConversation(ctx, &store.Conversation{
		UID:      shortuuid.New(),
		Title:    "test",
		Provider: "openai",
		Model:    "gpt-4o-mini",
	})
	require.NoError(t, err)
	return conv.ID
}
