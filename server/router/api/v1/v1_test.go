package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/docpilot/ai/agent"
	"github.com/hrygo/docpilot/ai/core/llm"
	"github.com/hrygo/docpilot/ai/memory"
	"github.com/hrygo/docpilot/ai/retrieval"
	"github.com/hrygo/docpilot/ai/summary"
	"github.com/hrygo/docpilot/internal/profile"
	storetest "github.com/hrygo/docpilot/store/test"
)

// fakeEmbedder maps every text to the same unit vector so any query matches
// any fragment.
type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (f fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (fakeEmbedder) Dimensions() int { return 3 }

// fakeLLM always answers with a fixed cited sentence.
type fakeLLM struct{}

func (fakeLLM) Complete(ctx context.Context, messages []llm.Message, tools []llm.ToolDescriptor) (*llm.Response, *llm.CallStats, error) {
	return &llm.Response{Content: "Grounded answer [1]."}, &llm.CallStats{TotalTokens: 5}, nil
}

func (fakeLLM) Stream(ctx context.Context, messages []llm.Message) (<-chan string, <-chan error) {
	content := make(chan string, 1)
	errs := make(chan error, 1)
	content <- "Grounded answer [1]."
	close(content)
	close(errs)
	return content, errs
}

type fakeProvider struct{}

func (fakeProvider) For(llm.Override) (llm.Service, error) { return fakeLLM{}, nil }

func newTestService(t *testing.T) *APIV1Service {
	ctx := context.Background()
	s := storetest.NewTestingStore(ctx, t)
	p := &profile.Profile{
		Mode:                "prod",
		Driver:              "sqlite",
		LLMProvider:         "openai",
		LLMModel:            "gpt-4o-mini",
		RetrievalTopK:       5,
		HybridAlpha:         0.7,
		ConfidenceThreshold: 0.7,
	}

	embedder := fakeEmbedder{}
	retriever, err := retrieval.NewHybridRetriever(s, embedder, p.HybridAlpha)
	require.NoError(t, err)
	gate := retrieval.NewConfidenceGate(p.ConfidenceThreshold)
	memoryService := memory.NewService(s, embedder, memory.Options{})
	orchestrator := agent.NewOrchestrator(fakeProvider{}, retriever, gate, memoryService, s, nil, agent.Options{})

	return &APIV1Service{
		Profile:      p,
		Store:        s,
		Embedder:     embedder,
		Retriever:    retriever,
		Gate:         gate,
		Memory:       memoryService,
		Summary:      summary.NewService(nil, memoryService),
		Orchestrator: orchestrator,
	}
}

func request(t *testing.T, svc *APIV1Service, method, path, body string) *httptest.ResponseRecorder {
	e := echo.New()
	svc.Register(e.Group("/api/v1"))

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestConversationLifecycle(t *testing.T) {
	svc := newTestService(t)

	rec := request(t, svc, http.MethodPost, "/api/v1/conversations", `{"title": "Onboarding"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	conv := decode[conversationResponse](t, rec)
	require.NotEmpty(t, conv.UID)
	require.Equal(t, "Onboarding", conv.Title)
	require.Equal(t, "openai", conv.Provider)

	rec = request(t, svc, http.MethodGet, "/api/v1/conversations/"+conv.UID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = request(t, svc, http.MethodPatch, "/api/v1/conversations/"+conv.UID, `{"title": "Renamed"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Renamed", decode[conversationResponse](t, rec).Title)

	rec = request(t, svc, http.MethodDelete, "/api/v1/conversations/"+conv.UID, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = request(t, svc, http.MethodGet, "/api/v1/conversations/"+conv.UID, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateConversationValidation(t *testing.T) {
	svc := newTestService(t)

	rec := request(t, svc, http.MethodPost, "/api/v1/conversations", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = request(t, svc, http.MethodPost, "/api/v1/conversations", `{"title": "x", "persona": "nonexistent"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = request(t, svc, http.MethodPost, "/api/v1/conversations", `{"title": "x", "document_ids": [999]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateConversationWithPersonaAndDocuments(t *testing.T) {
	svc := newTestService(t)

	rec := request(t, svc, http.MethodPost, "/api/v1/documents",
		`{"title": "Handbook", "fragments": [{"text": "All employees get 25 vacation days.", "page": 3}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decode[documentResponse](t, rec)

	rec = request(t, svc, http.MethodPost, "/api/v1/conversations",
		`{"title": "HR", "persona": "concise", "document_ids": [`+itoa(doc.ID)+`]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	conv := decode[conversationResponse](t, rec)
	require.NotNil(t, conv.Persona)
	require.Equal(t, "concise", *conv.Persona)
	require.Equal(t, []int32{doc.ID}, conv.DocumentIDs)
}

func TestSendMessagePersistsTurns(t *testing.T) {
	svc := newTestService(t)

	rec := request(t, svc, http.MethodPost, "/api/v1/documents",
		`{"title": "Handbook", "fragments": [{"text": "All employees get 25 vacation days."}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decode[documentResponse](t, rec)

	rec = request(t, svc, http.MethodPost, "/api/v1/conversations",
		`{"title": "HR", "document_ids": [`+itoa(doc.ID)+`]}`)
	conv := decode[conversationResponse](t, rec)

	rec = request(t, svc, http.MethodPost, "/api/v1/conversations/"+conv.UID+"/messages",
		`{"content": "How many vacation days?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	messages := decode[[]*messageResponse](t, rec)
	require.Len(t, messages, 2)
	require.Equal(t, "user", messages[0].Role)
	require.Equal(t, "assistant", messages[1].Role)
	require.Equal(t, "Grounded answer [1].", messages[1].Content)
	require.Len(t, messages[1].Sources, 1)
	require.Equal(t, "Handbook", messages[1].Sources[0].Title)

	rec = request(t, svc, http.MethodGet, "/api/v1/conversations/"+conv.UID+"/messages", "")
	require.Equal(t, http.StatusOK, rec.Code)
	transcript := decode[[]*messageResponse](t, rec)
	require.Len(t, transcript, 2)
	require.Len(t, transcript[1].Sources, 1)
}

func TestSendMessageUnknownConversation(t *testing.T) {
	svc := newTestService(t)
	rec := request(t, svc, http.MethodPost, "/api/v1/conversations/nope/messages", `{"content": "hi"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearchEndpoint(t *testing.T) {
	svc := newTestService(t)

	rec := request(t, svc, http.MethodPost, "/api/v1/documents",
		`{"title": "Handbook", "fragments": [{"text": "All employees get 25 vacation days."}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = request(t, svc, http.MethodPost, "/api/v1/search", `{"query": "vacation days"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[searchResponse](t, rec)
	require.Len(t, result.Hits, 1)
	require.Equal(t, "Handbook", result.Hits[0].DocumentTitle)
	require.Greater(t, result.Hits[0].HybridScore, 0.0)

	rec = request(t, svc, http.MethodPost, "/api/v1/search", `{"query": ""}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPersonaEndpoints(t *testing.T) {
	svc := newTestService(t)

	rec := request(t, svc, http.MethodGet, "/api/v1/personas", "")
	require.Equal(t, http.StatusOK, rec.Code)
	personas := decode[[]*personaResponse](t, rec)
	require.GreaterOrEqual(t, len(personas), 4)

	rec = request(t, svc, http.MethodPost, "/api/v1/personas", `{"name": "pirate", "prompt": "Answer like a pirate."}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = request(t, svc, http.MethodPost, "/api/v1/personas", `{"name": "pirate", "prompt": "again"}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = request(t, svc, http.MethodDelete, "/api/v1/personas/default", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = request(t, svc, http.MethodDelete, "/api/v1/personas/pirate", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestFeedbackEndpoint(t *testing.T) {
	svc := newTestService(t)

	rec := request(t, svc, http.MethodPost, "/api/v1/conversations", `{"title": "c"}`)
	conv := decode[conversationResponse](t, rec)

	rec = request(t, svc, http.MethodPost, "/api/v1/conversations/"+conv.UID+"/messages", `{"content": "hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	messages := decode[[]*messageResponse](t, rec)
	userTurn, assistantTurn := messages[0], messages[1]

	rec = request(t, svc, http.MethodPost, "/api/v1/turns/"+itoa64(assistantTurn.ID)+"/feedback", `{"rating": 1, "note": "good"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	fb := decode[feedbackResponse](t, rec)
	require.Equal(t, int32(1), fb.Rating)

	rec = request(t, svc, http.MethodPost, "/api/v1/turns/"+itoa64(assistantTurn.ID)+"/feedback", `{"rating": 2}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = request(t, svc, http.MethodPost, "/api/v1/turns/"+itoa64(userTurn.ID)+"/feedback", `{"rating": -1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = request(t, svc, http.MethodPost, "/api/v1/turns/999999/feedback", `{"rating": 0}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func itoa(v int32) string {
	return strconv.FormatInt(int64(v), 10)
}

func itoa64(v int64) string {
	return strconv.FormatInt(v, 10)
}
