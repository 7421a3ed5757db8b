package v1

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/docpilot/ai/agent"
	"github.com/hrygo/docpilot/ai/citation"
	"github.com/hrygo/docpilot/store"
)

type sendMessageRequest struct {
	Content string `json:"content"`
}

type messageResponse struct {
	ID         int64             `json:"id"`
	Role       string            `json:"role"`
	Content    string            `json:"content"`
	Sources    []citation.Source `json:"sources,omitempty"`
	Confidence *float64          `json:"confidence,omitempty"`
	Degraded   bool              `json:"degraded,omitempty"`
	Events     []agent.Event     `json:"events,omitempty"`
	CreatedTs  int64             `json:"created_ts"`
}

// SendMessage answers one user message synchronously.
func (s *APIV1Service) SendMessage(c echo.Context) error {
	ctx := c.Request().Context()
	conv, err := s.findConversation(c)
	if err != nil {
		return err
	}

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "malformed request body")
	}
	if req.Content == "" {
		return errorResponse(c, http.StatusBadRequest, "content is required")
	}

	// The user turn must be durable before generation starts; losing it
	// would desync the visible transcript from the model context.
	userTurn, err := s.Store.CreateTurn(ctx, &store.Turn{
		ConversationID: conv.ID,
		Role:           "user",
		Content:        req.Content,
	})
	if err != nil {
		return internalError(c, err)
	}

	reply, err := s.Orchestrator.Respond(ctx, &agent.Request{
		Conversation: conv,
		Query:        req.Content,
	})
	if err != nil {
		return internalError(c, err)
	}

	assistantTurn, err := s.saveAssistantTurn(ctx, conv.ID, reply.Answer, reply.Sources)
	if err != nil {
		return internalError(c, err)
	}

	s.afterExchange(conv.ID, req.Content, reply.Answer)

	confidence := reply.Confidence
	return c.JSON(http.StatusOK, []*messageResponse{
		{
			ID:        userTurn.ID,
			Role:      "user",
			Content:   userTurn.Content,
			CreatedTs: userTurn.CreatedTs,
		},
		{
			ID:         assistantTurn.ID,
			Role:       "assistant",
			Content:    reply.Answer,
			Sources:    reply.Sources,
			Confidence: &confidence,
			Degraded:   reply.Degraded,
			Events:     reply.Events,
			CreatedTs:  assistantTurn.CreatedTs,
		},
	})
}

// ListMessages returns the conversation transcript, oldest first.
func (s *APIV1Service) ListMessages(c echo.Context) error {
	ctx := c.Request().Context()
	conv, err := s.findConversation(c)
	if err != nil {
		return err
	}

	turns, err := s.Store.ListTurns(ctx, &store.FindTurn{ConversationID: &conv.ID})
	if err != nil {
		return internalError(c, err)
	}

	resp := make([]*messageResponse, 0, len(turns))
	for _, t := range turns {
		m := &messageResponse{
			ID:        t.ID,
			Role:      t.Role,
			Content:   t.Content,
			CreatedTs: t.CreatedTs,
		}
		if t.Sources != nil {
			if err := json.Unmarshal([]byte(*t.Sources), &m.Sources); err != nil {
				slog.Warn("api: undecodable sources payload", "turn_id", t.ID, "error", err)
			}
		}
		resp = append(resp, m)
	}
	return c.JSON(http.StatusOK, resp)
}

// StreamMessage answers one user message over SSE. Streaming bypasses the
// tool loop; the accumulated answer is persisted when the stream ends, even
// when the client disconnects mid-stream.
func (s *APIV1Service) StreamMessage(c echo.Context) error {
	ctx := c.Request().Context()
	conv, err := s.findConversation(c)
	if err != nil {
		return err
	}

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "malformed request body")
	}
	if req.Content == "" {
		return errorResponse(c, http.StatusBadRequest, "content is required")
	}

	if _, err := s.Store.CreateTurn(ctx, &store.Turn{
		ConversationID: conv.ID,
		Role:           "user",
		Content:        req.Content,
	}); err != nil {
		return internalError(c, err)
	}

	content, errs, sources, err := s.Orchestrator.RespondStream(ctx, &agent.Request{
		Conversation: conv,
		Query:        req.Content,
	})
	if err != nil {
		return internalError(c, err)
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set(echo.HeaderConnection, "keep-alive")
	resp.WriteHeader(http.StatusOK)
	resp.Flush()

	accumulated := ""
	for chunk := range content {
		accumulated += chunk
		if err := writeSSE(resp, "message", chunk); err != nil {
			slog.Warn("api: stream client gone, persisting partial answer", "error", err)
			break
		}
		resp.Flush()
	}
	if streamErr := <-errs; streamErr != nil {
		slog.Error("api: stream failed", "error", streamErr)
		_ = writeSSE(resp, "error", "stream interrupted")
		resp.Flush()
	}

	if accumulated != "" {
		saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := s.saveAssistantTurn(saveCtx, conv.ID, accumulated, sources); err != nil {
			slog.Error("api: persist streamed answer failed", "conversation_id", conv.ID, "error", err)
		} else {
			s.afterExchange(conv.ID, req.Content, accumulated)
		}
	}

	_ = writeSSE(resp, "done", "")
	resp.Flush()
	return nil
}

func writeSSE(resp *echo.Response, event, data string) error {
	payload, err := json.Marshal(map[string]string{"content": data})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(resp, "event: %s\ndata: %s\n\n", event, payload)
	return err
}

func (s *APIV1Service) saveAssistantTurn(ctx context.Context, conversationID int32, answer string, sources []citation.Source) (*store.Turn, error) {
	turn := &store.Turn{
		ConversationID: conversationID,
		Role:           "assistant",
		Content:        answer,
	}
	if len(sources) > 0 {
		payload, err := json.Marshal(sources)
		if err != nil {
			return nil, err
		}
		str := string(payload)
		turn.Sources = &str
	}
	return s.Store.CreateTurn(ctx, turn)
}

// afterExchange runs the post-turn bookkeeping: rolling summary refresh and
// an episodic memory of the exchange. Both are best-effort.
func (s *APIV1Service) afterExchange(conversationID int32, userMessage, assistantMessage string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		s.Summary.Refresh(ctx, conversationID, userMessage, assistantMessage)

		episode := fmt.Sprintf("User asked: %s", userMessage)
		if _, err := s.Memory.Remember(ctx, &conversationID, store.MemoryKindEpisodic, episode, 0.5); err != nil {
			slog.Warn("api: record episode failed", "conversation_id", conversationID, "error", err)
		}
	}()
}
