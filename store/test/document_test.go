package test

import (
	"context"
	"testing"

	"github.com/lithammer/shortuuid/v4"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/docpilot/store"
)

func TestDocumentFragmentCRUD(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	doc, err := ts.CreateDocument(ctx, &store.Document{UID: shortuuid.New(), Title: "Handbook"})
	require.NoError(t, err)
	require.NotZero(t, doc.ID)

	page := int32(7)
	frag, err := ts.CreateFragment(ctx, &store.Fragment{
		DocumentID:   doc.ID,
		OrdinalIndex: 0,
		Page:         &page,
		Text:         "All employees get 25 vacation days.",
		Embedding:    []float32{1, 0, 0},
	})
	require.NoError(t, err)
	require.NotZero(t, frag.ID)

	fragments, err := ts.ListFragments(ctx, &store.FindFragment{DocumentID: &doc.ID})
	require.NoError(t, err)
	require.Len(t, fragments, 1)
	require.Equal(t, []float32{1, 0, 0}, fragments[0].Embedding)
	require.Equal(t, int32(7), *fragments[0].Page)

	// Fragments cascade with the document.
	require.NoError(t, ts.DeleteDocument(ctx, &store.DeleteDocument{ID: doc.ID}))
	fragments, err = ts.ListFragments(ctx, &store.FindFragment{DocumentID: &doc.ID})
	require.NoError(t, err)
	require.Empty(t, fragments)
}

func TestVectorSearchOrdersBySimilarity(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	doc, err := ts.CreateDocument(ctx, &store.Document{UID: shortuuid.New(), Title: "Handbook"})
	require.NoError(t, err)

	vectors := map[string][]float32{
		"exact":      {1, 0, 0},
		"close":      {0.9, 0.1, 0},
		"orthogonal": {0, 1, 0},
	}
	for text, v := range vectors {
		_, err := ts.CreateFragment(ctx, &store.Fragment{DocumentID: doc.ID, Text: text, Embedding: v})
		require.NoError(t, err)
	}
	// Unembedded fragments never match.
	_, err = ts.CreateFragment(ctx, &store.Fragment{DocumentID: doc.ID, Text: "no vector"})
	require.NoError(t, err)

	matches, err := ts.VectorSearchFragments(ctx, []float32{1, 0, 0}, &store.FragmentScope{Limit: 10})
	require.NoError(t, err)
	require.Len(t, matches, 3)
	require.Equal(t, "exact", matches[0].Text)
	require.Equal(t, "close", matches[1].Text)
	require.Equal(t, "orthogonal", matches[2].Text)
	require.InDelta(t, 1.0, matches[0].Score, 1e-6)
	require.Greater(t, matches[1].Score, matches[2].Score)
	require.Equal(t, "Handbook", matches[0].DocumentTitle)
}

func TestLexicalSearchMatchesText(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	doc, err := ts.CreateDocument(ctx, &store.Document{UID: shortuuid.New(), Title: "Handbook"})
	require.NoError(t, err)

	for _, text := range []string{
		"vacation policy for all employees",
		"completely unrelated content about databases",
	} {
		_, err := ts.CreateFragment(ctx, &store.Fragment{DocumentID: doc.ID, Text: text})
		require.NoError(t, err)
	}

	matches, err := ts.LexicalSearchFragments(ctx, "vacation policy", &store.FragmentScope{Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	require.Equal(t, "vacation policy for all employees", matches[0].Text)
}

func TestFragmentScopeByConversation(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	linked, err := ts.CreateDocument(ctx, &store.Document{UID: shortuuid.New(), Title: "Linked"})
	require.NoError(t, err)
	other, err := ts.CreateDocument(ctx, &store.Document{UID: shortuuid.New(), Title: "Other"})
	require.NoError(t, err)

	for _, doc := range []*store.Document{linked, other} {
		_, err := ts.CreateFragment(ctx, &store.Fragment{
			DocumentID: doc.ID,
			Text:       "shared text in both documents",
			Embedding:  []float32{1, 0, 0},
		})
		require.NoError(t, err)
	}

	conv, err := ts.CreateConversation(ctx, &store.Conversation{
		UID: shortuuid.New(), Title: "c", Provider: "openai", Model: "gpt-4o-mini",
	})
	require.NoError(t, err)
	require.NoError(t, ts.LinkConversationDocument(ctx, conv.ID, linked.ID))

	matches, err := ts.VectorSearchFragments(ctx, []float32{1, 0, 0}, &store.FragmentScope{
		ConversationID: &conv.ID,
		Limit:          10,
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "Linked", matches[0].DocumentTitle)

	matches, err = ts.LexicalSearchFragments(ctx, "shared text", &store.FragmentScope{
		ConversationID: &conv.ID,
		Limit:          10,
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "Linked", matches[0].DocumentTitle)
}

func TestFragmentScopeByDocumentIDs(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	a, err := ts.CreateDocument(ctx, &store.Document{UID: shortuuid.New(), Title: "A"})
	require.NoError(t, err)
	b, err := ts.CreateDocument(ctx, &store.Document{UID: shortuuid.New(), Title: "B"})
	require.NoError(t, err)

	for _, doc := range []*store.Document{a, b} {
		_, err := ts.CreateFragment(ctx, &store.Fragment{
			DocumentID: doc.ID,
			Text:       "same words",
			Embedding:  []float32{0, 1, 0},
		})
		require.NoError(t, err)
	}

	matches, err := ts.VectorSearchFragments(ctx, []float32{0, 1, 0}, &store.FragmentScope{
		DocumentIDs: []int32{b.ID},
		Limit:       10,
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "B", matches[0].DocumentTitle)
}
