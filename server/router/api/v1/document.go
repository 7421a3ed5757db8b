package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid/v4"

	"github.com/hrygo/docpilot/store"
)

type createDocumentRequest struct {
	Title     string                  `json:"title"`
	MimeType  *string                 `json:"mime_type,omitempty"`
	Summary   *string                 `json:"summary,omitempty"`
	Fragments []createFragmentRequest `json:"fragments"`
}

type createFragmentRequest struct {
	Text string `json:"text"`
	Page *int32 `json:"page,omitempty"`
}

type documentResponse struct {
	ID        int32   `json:"id"`
	UID       string  `json:"uid"`
	Title     string  `json:"title"`
	MimeType  *string `json:"mime_type,omitempty"`
	Summary   *string `json:"summary,omitempty"`
	Fragments int     `json:"fragments"`
	CreatedTs int64   `json:"created_ts"`
}

// CreateDocument ingests a pre-chunked document: the fragments are embedded
// in one batch and stored alongside the document row.
func (s *APIV1Service) CreateDocument(c echo.Context) error {
	ctx := c.Request().Context()
	var req createDocumentRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "malformed request body")
	}
	if req.Title == "" {
		return errorResponse(c, http.StatusBadRequest, "title is required")
	}
	if len(req.Fragments) == 0 {
		return errorResponse(c, http.StatusBadRequest, "at least one fragment is required")
	}
	for _, f := range req.Fragments {
		if f.Text == "" {
			return errorResponse(c, http.StatusBadRequest, "fragment text must not be empty")
		}
	}

	texts := make([]string, len(req.Fragments))
	for i, f := range req.Fragments {
		texts[i] = f.Text
	}
	vectors, err := s.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return internalError(c, err)
	}

	doc, err := s.Store.CreateDocument(ctx, &store.Document{
		UID:      shortuuid.New(),
		Title:    req.Title,
		MimeType: req.MimeType,
		Summary:  req.Summary,
	})
	if err != nil {
		return internalError(c, err)
	}

	for i, f := range req.Fragments {
		if _, err := s.Store.CreateFragment(ctx, &store.Fragment{
			DocumentID:   doc.ID,
			OrdinalIndex: int32(i),
			Page:         f.Page,
			Text:         f.Text,
			Embedding:    vectors[i],
		}); err != nil {
			return internalError(c, err)
		}
	}

	return c.JSON(http.StatusOK, &documentResponse{
		ID:        doc.ID,
		UID:       doc.UID,
		Title:     doc.Title,
		MimeType:  doc.MimeType,
		Summary:   doc.Summary,
		Fragments: len(req.Fragments),
		CreatedTs: doc.CreatedTs,
	})
}

func (s *APIV1Service) ListDocuments(c echo.Context) error {
	ctx := c.Request().Context()
	list, err := s.Store.ListDocuments(ctx, &store.FindDocument{})
	if err != nil {
		return internalError(c, err)
	}

	resp := make([]*documentResponse, 0, len(list))
	for _, doc := range list {
		fragments, err := s.Store.ListFragments(ctx, &store.FindFragment{DocumentID: &doc.ID})
		if err != nil {
			return internalError(c, err)
		}
		resp = append(resp, &documentResponse{
			ID:        doc.ID,
			UID:       doc.UID,
			Title:     doc.Title,
			MimeType:  doc.MimeType,
			Summary:   doc.Summary,
			Fragments: len(fragments),
			CreatedTs: doc.CreatedTs,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *APIV1Service) DeleteDocument(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, "invalid document id")
	}
	docID := int32(id)

	doc, err := s.Store.GetDocument(ctx, &store.FindDocument{ID: &docID})
	if err != nil {
		return internalError(c, err)
	}
	if doc == nil {
		return errorResponse(c, http.StatusNotFound, "document not found")
	}

	if err := s.Store.DeleteDocument(ctx, &store.DeleteDocument{ID: docID}); err != nil {
		return internalError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
