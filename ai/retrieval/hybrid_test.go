package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/docpilot/store"
)

func match(id int64, title string, score float64) *store.FragmentMatch {
	return &store.FragmentMatch{
		Fragment:      store.Fragment{ID: id, Text: "text"},
		DocumentTitle: title,
		Score:         score,
	}
}

func TestFuseWeightsBothSides(t *testing.T) {
	r, err := NewHybridRetriever(nil, nil, 0.7)
	require.NoError(t, err)

	fused := r.fuse(
		[]*store.FragmentMatch{match(1, "a", 0.9), match(2, "b", 0.5)},
		[]*store.FragmentMatch{match(1, "a", 0.4), match(3, "c", 0.8)},
	)
	require.Len(t, fused, 3)

	byID := map[int64]*ScoredFragment{}
	for _, f := range fused {
		byID[f.Fragment.ID] = f
	}
	// Present in both sides: weighted combination.
	require.InDelta(t, 0.7*0.9+0.3*0.4, byID[1].HybridScore, 1e-9)
	// Missing side scores zero.
	require.InDelta(t, 0.7*0.5, byID[2].HybridScore, 1e-9)
	require.InDelta(t, 0.3*0.8, byID[3].HybridScore, 1e-9)
}

func TestFuseOrdering(t *testing.T) {
	r, err := NewHybridRetriever(nil, nil, 0.5)
	require.NoError(t, err)

	// Fragments 1 and 2 tie on hybrid score; 2 has the higher vector score.
	// Fragments 3 and 4 tie on everything; lower id wins.
	fused := r.fuse(
		[]*store.FragmentMatch{match(1, "a", 0.4), match(2, "a", 0.6), match(4, "a", 0.3), match(3, "a", 0.3)},
		[]*store.FragmentMatch{match(1, "a", 0.6), match(2, "a", 0.4)},
	)
	require.Len(t, fused, 4)
	require.Equal(t, int64(2), fused[0].Fragment.ID)
	require.Equal(t, int64(1), fused[1].Fragment.ID)
	require.Equal(t, int64(3), fused[2].Fragment.ID)
	require.Equal(t, int64(4), fused[3].Fragment.ID)
}

func TestFuseAlphaExtremes(t *testing.T) {
	vector := []*store.FragmentMatch{match(1, "a", 0.9)}
	lexical := []*store.FragmentMatch{match(1, "a", 0.2)}

	pureVector, err := NewHybridRetriever(nil, nil, 1.0)
	require.NoError(t, err)
	fused := pureVector.fuse(vector, lexical)
	require.InDelta(t, 0.9, fused[0].HybridScore, 1e-9)

	pureLexical, err := NewHybridRetriever(nil, nil, 0.0)
	require.NoError(t, err)
	fused = pureLexical.fuse(vector, lexical)
	require.InDelta(t, 0.2, fused[0].HybridScore, 1e-9)
}

func TestNewHybridRetrieverRejectsBadAlpha(t *testing.T) {
	_, err := NewHybridRetriever(nil, nil, -0.1)
	require.Error(t, err)
	_, err = NewHybridRetriever(nil, nil, 1.1)
	require.Error(t, err)
}

func TestSearchValidation(t *testing.T) {
	r, err := NewHybridRetriever(nil, nil, 0.7)
	require.NoError(t, err)

	_, err = r.Search(context.Background(), &SearchRequest{Query: "q", TopK: 0})
	require.Error(t, err)
	_, err = r.Search(context.Background(), &SearchRequest{Query: "q", TopK: -3})
	require.Error(t, err)
	_, err = r.Search(context.Background(), &SearchRequest{Query: "", TopK: 5})
	require.Error(t, err)
}

func TestConfidenceGate(t *testing.T) {
	gate := NewConfidenceGate(0.7)

	a := gate.Assess(nil)
	require.Equal(t, 0.0, a.Score)
	require.False(t, a.Confident)

	a = gate.Assess([]*ScoredFragment{{HybridScore: 0.69}})
	require.False(t, a.Confident)

	a = gate.Assess([]*ScoredFragment{{HybridScore: 0.7}, {HybridScore: 0.2}})
	require.True(t, a.Confident)
	require.Equal(t, 0.7, a.Score)
}

func TestConfidenceMonotonicity(t *testing.T) {
	gate := NewConfidenceGate(0.7)
	ranked := []*ScoredFragment{
		{HybridScore: 0.8},
		{HybridScore: 0.6},
		{HybridScore: 0.1},
	}

	// Removing the top fragment never increases confidence.
	prev := gate.Assess(ranked).Score
	for len(ranked) > 0 {
		ranked = ranked[1:]
		next := gate.Assess(ranked).Score
		require.LessOrEqual(t, next, prev)
		prev = next
	}
	require.Equal(t, 0.0, prev)
}
