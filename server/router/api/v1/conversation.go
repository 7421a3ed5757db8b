package v1

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid/v4"

	"github.com/hrygo/docpilot/store"
)

// errs from handlers bubble through internalError; 4xx responses are
// written directly.

type createConversationRequest struct {
	Title       string   `json:"title"`
	Persona     string   `json:"persona,omitempty"`
	Provider    string   `json:"provider,omitempty"`
	Model       string   `json:"model,omitempty"`
	Temperature *float32 `json:"temperature,omitempty"`
	DocumentIDs []int32  `json:"document_ids,omitempty"`
}

type conversationResponse struct {
	UID         string   `json:"uid"`
	Title       string   `json:"title"`
	Persona     *string  `json:"persona,omitempty"`
	Provider    string   `json:"provider"`
	Model       string   `json:"model"`
	Temperature float32  `json:"temperature"`
	DocumentIDs []int32  `json:"document_ids,omitempty"`
	CreatedTs   int64    `json:"created_ts"`
	UpdatedTs   int64    `json:"updated_ts"`
}

func (s *APIV1Service) CreateConversation(c echo.Context) error {
	ctx := c.Request().Context()
	var req createConversationRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "malformed request body")
	}
	if req.Title == "" {
		return errorResponse(c, http.StatusBadRequest, "title is required")
	}

	create := &store.Conversation{
		UID:      shortuuid.New(),
		Title:    req.Title,
		Provider: req.Provider,
		Model:    req.Model,
	}
	if create.Provider == "" {
		create.Provider = s.Profile.LLMProvider
	}
	if create.Model == "" {
		create.Model = s.Profile.LLMModel
	}
	if req.Temperature != nil {
		create.Temperature = *req.Temperature
	} else {
		create.Temperature = 0.7
	}

	if req.Persona != "" {
		prompt, err := s.resolvePersona(ctx, req.Persona)
		if err != nil {
			return internalError(c, err)
		}
		if prompt == "" {
			return errorResponse(c, http.StatusBadRequest, "unknown persona")
		}
		create.Persona = &req.Persona
		create.SystemPrompt = prompt
	}

	conv, err := s.Store.CreateConversation(ctx, create)
	if err != nil {
		return internalError(c, err)
	}

	for _, docID := range req.DocumentIDs {
		doc, err := s.Store.GetDocument(ctx, &store.FindDocument{ID: &docID})
		if err != nil {
			return internalError(c, err)
		}
		if doc == nil {
			return errorResponse(c, http.StatusBadRequest, "unknown document")
		}
		if err := s.Store.LinkConversationDocument(ctx, conv.ID, docID); err != nil {
			return internalError(c, err)
		}
	}

	return c.JSON(http.StatusOK, s.convertConversation(ctx, conv))
}

func (s *APIV1Service) ListConversations(c echo.Context) error {
	ctx := c.Request().Context()
	list, err := s.Store.ListConversations(ctx, &store.FindConversation{})
	if err != nil {
		return internalError(c, err)
	}
	resp := make([]*conversationResponse, 0, len(list))
	for _, conv := range list {
		resp = append(resp, s.convertConversation(ctx, conv))
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *APIV1Service) GetConversation(c echo.Context) error {
	ctx := c.Request().Context()
	conv, err := s.findConversation(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.convertConversation(ctx, conv))
}

type updateConversationRequest struct {
	Title   *string `json:"title,omitempty"`
	Persona *string `json:"persona,omitempty"`
}

func (s *APIV1Service) UpdateConversation(c echo.Context) error {
	ctx := c.Request().Context()
	conv, err := s.findConversation(c)
	if err != nil {
		return err
	}

	var req updateConversationRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "malformed request body")
	}

	now := time.Now().Unix()
	updated, err := s.Store.UpdateConversation(ctx, &store.UpdateConversation{
		ID:        conv.ID,
		Title:     req.Title,
		Persona:   req.Persona,
		UpdatedTs: &now,
	})
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, s.convertConversation(ctx, updated))
}

func (s *APIV1Service) DeleteConversation(c echo.Context) error {
	conv, err := s.findConversation(c)
	if err != nil {
		return err
	}
	if err := s.Store.DeleteConversation(c.Request().Context(), &store.DeleteConversation{ID: conv.ID}); err != nil {
		return internalError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// findConversation resolves the :uid path param, writing the 404 itself.
func (s *APIV1Service) findConversation(c echo.Context) (*store.Conversation, error) {
	uid := c.Param("uid")
	conv, err := s.Store.GetConversation(c.Request().Context(), &store.FindConversation{UID: &uid})
	if err != nil {
		return nil, internalError(c, err)
	}
	if conv == nil {
		return nil, errorResponse(c, http.StatusNotFound, "conversation not found")
	}
	return conv, nil
}

func (s *APIV1Service) convertConversation(ctx context.Context, conv *store.Conversation) *conversationResponse {
	docIDs, err := s.Store.ListConversationDocumentIDs(ctx, conv.ID)
	if err != nil {
		slog.Warn("api: list conversation documents failed", "conversation_id", conv.ID, "error", err)
	}
	return &conversationResponse{
		UID:         conv.UID,
		Title:       conv.Title,
		Persona:     conv.Persona,
		Provider:    conv.Provider,
		Model:       conv.Model,
		Temperature: conv.Temperature,
		DocumentIDs: docIDs,
		CreatedTs:   conv.CreatedTs,
		UpdatedTs:   conv.UpdatedTs,
	}
}
