package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/docpilot/ai/retrieval"
)

type searchRequest struct {
	Query       string  `json:"query"`
	TopK        int     `json:"top_k,omitempty"`
	DocumentIDs []int32 `json:"document_ids,omitempty"`
}

type searchHit struct {
	FragmentID    int64   `json:"fragment_id"`
	DocumentID    int32   `json:"document_id"`
	DocumentTitle string  `json:"document_title"`
	Page          *int32  `json:"page,omitempty"`
	Text          string  `json:"text"`
	VectorScore   float64 `json:"vector_score"`
	LexicalScore  float64 `json:"lexical_score"`
	HybridScore   float64 `json:"hybrid_score"`
}

type searchResponse struct {
	Hits       []*searchHit `json:"hits"`
	Confidence float64      `json:"confidence"`
	Confident  bool         `json:"confident"`
}

// Search runs a standalone hybrid retrieval query, exposing the raw
// component scores for inspection.
func (s *APIV1Service) Search(c echo.Context) error {
	ctx := c.Request().Context()
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "malformed request body")
	}
	if req.Query == "" {
		return errorResponse(c, http.StatusBadRequest, "query is required")
	}
	topK := req.TopK
	if topK <= 0 {
		topK = s.Profile.RetrievalTopK
	}

	fragments, err := s.Retriever.Search(ctx, &retrieval.SearchRequest{
		Query:       req.Query,
		TopK:        topK,
		DocumentIDs: req.DocumentIDs,
	})
	if err != nil {
		return internalError(c, err)
	}
	assessment := s.Gate.Assess(fragments)

	hits := make([]*searchHit, 0, len(fragments))
	for _, f := range fragments {
		hits = append(hits, &searchHit{
			FragmentID:    f.Fragment.ID,
			DocumentID:    f.Fragment.DocumentID,
			DocumentTitle: f.DocumentTitle,
			Page:          f.Fragment.Page,
			Text:          f.Fragment.Text,
			VectorScore:   f.VectorScore,
			LexicalScore:  f.LexicalScore,
			HybridScore:   f.HybridScore,
		})
	}
	return c.JSON(http.StatusOK, &searchResponse{
		Hits:       hits,
		Confidence: assessment.Score,
		Confident:  assessment.Confident,
	})
}
