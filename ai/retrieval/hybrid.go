// Package retrieval implements hybrid document fragment retrieval, fusing
// vector similarity and lexical (trigram) similarity into a single ranking.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/hrygo/docpilot/ai/core/embedding"
	"github.com/hrygo/docpilot/store"
)

// ScoredFragment is a fragment with its fused ranking score and the raw
// scores of the two underlying queries.
type ScoredFragment struct {
	Fragment      store.Fragment
	DocumentTitle string
	VectorScore   float64
	LexicalScore  float64
	HybridScore   float64
}

// SearchRequest describes a hybrid retrieval query.
type SearchRequest struct {
	Query          string
	TopK           int
	ConversationID *int32
	DocumentIDs    []int32
}

// HybridRetriever fuses vector and lexical search over document fragments.
//
// hybrid = alpha*vector + (1-alpha)*lexical, with a missing side scored 0.
type HybridRetriever struct {
	store    *store.Store
	embedder embedding.Service
	alpha    float64
}

// NewHybridRetriever creates a HybridRetriever. alpha is the vector-side
// weight of the fusion and must be in [0, 1].
func NewHybridRetriever(s *store.Store, embedder embedding.Service, alpha float64) (*HybridRetriever, error) {
	if alpha < 0 || alpha > 1 {
		return nil, fmt.Errorf("alpha must be in [0, 1], got %v", alpha)
	}
	return &HybridRetriever{store: s, embedder: embedder, alpha: alpha}, nil
}

// Search runs both similarity queries, unions the candidates by fragment id,
// and returns the top req.TopK fragments by fused score.
func (r *HybridRetriever) Search(ctx context.Context, req *SearchRequest) ([]*ScoredFragment, error) {
	if req.TopK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", req.TopK)
	}
	if req.Query == "" {
		return nil, fmt.Errorf("query must not be empty")
	}

	scope := &store.FragmentScope{
		ConversationID: req.ConversationID,
		DocumentIDs:    req.DocumentIDs,
		// Each side over-fetches so the fused ranking has a full candidate
		// pool even when the two result sets barely overlap.
		Limit: req.TopK * 2,
	}

	startTime := time.Now()

	queryVector, err := r.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	vectorMatches, err := r.store.VectorSearchFragments(ctx, queryVector, scope)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	lexicalMatches, err := r.store.LexicalSearchFragments(ctx, req.Query, scope)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	fused := r.fuse(vectorMatches, lexicalMatches)
	if len(fused) > req.TopK {
		fused = fused[:req.TopK]
	}

	slog.Debug("retrieval: hybrid search",
		"vector_candidates", len(vectorMatches),
		"lexical_candidates", len(lexicalMatches),
		"returned", len(fused),
		"duration_ms", time.Since(startTime).Milliseconds(),
	)
	return fused, nil
}

// fuse unions the two candidate sets by fragment id and ranks by fused
// score. Ordering is deterministic: fused score desc, then vector score
// desc, then fragment id asc.
func (r *HybridRetriever) fuse(vectorMatches, lexicalMatches []*store.FragmentMatch) []*ScoredFragment {
	byID := make(map[int64]*ScoredFragment, len(vectorMatches)+len(lexicalMatches))
	for _, m := range vectorMatches {
		byID[m.ID] = &ScoredFragment{
			Fragment:      m.Fragment,
			DocumentTitle: m.DocumentTitle,
			VectorScore:   m.Score,
		}
	}
	for _, m := range lexicalMatches {
		if sf, ok := byID[m.ID]; ok {
			sf.LexicalScore = m.Score
		} else {
			byID[m.ID] = &ScoredFragment{
				Fragment:      m.Fragment,
				DocumentTitle: m.DocumentTitle,
				LexicalScore:  m.Score,
			}
		}
	}

	fused := make([]*ScoredFragment, 0, len(byID))
	for _, sf := range byID {
		sf.HybridScore = r.alpha*sf.VectorScore + (1-r.alpha)*sf.LexicalScore
		fused = append(fused, sf)
	}
	sort.Slice(fused, func(i, j int) bool {
		if fused[i].HybridScore != fused[j].HybridScore {
			return fused[i].HybridScore > fused[j].HybridScore
		}
		if fused[i].VectorScore != fused[j].VectorScore {
			return fused[i].VectorScore > fused[j].VectorScore
		}
		return fused[i].Fragment.ID < fused[j].Fragment.ID
	})
	return fused
}
