// Package v1 exposes the REST API.
package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/docpilot/ai"
	"github.com/hrygo/docpilot/ai/agent"
	"github.com/hrygo/docpilot/ai/agent/tools"
	"github.com/hrygo/docpilot/ai/core/embedding"
	"github.com/hrygo/docpilot/ai/core/llm"
	"github.com/hrygo/docpilot/ai/memory"
	"github.com/hrygo/docpilot/ai/retrieval"
	"github.com/hrygo/docpilot/ai/summary"
	"github.com/hrygo/docpilot/internal/profile"
	"github.com/hrygo/docpilot/store"
)

// APIV1Service bundles the v1 route handlers and their dependencies.
type APIV1Service struct {
	Profile *profile.Profile
	Store   *store.Store

	Embedder     embedding.Service
	Retriever    agent.Retriever
	Gate         *retrieval.ConfidenceGate
	Memory       *memory.Service
	Summary      *summary.Service
	Orchestrator *agent.Orchestrator
}

// NewAPIV1Service wires the AI pipeline from the profile.
func NewAPIV1Service(p *profile.Profile, s *store.Store) (*APIV1Service, error) {
	cfg := ai.NewConfigFromProfile(p)

	embedder, err := embedding.NewService(embedding.Options{
		Model:      cfg.Embedding.Model,
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Dimensions: cfg.Embedding.Dimensions,
	})
	if err != nil {
		return nil, err
	}

	factory := llm.NewFactory(llm.Options{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	})

	retriever, err := retrieval.NewHybridRetriever(s, embedder, cfg.Retrieval.HybridAlpha)
	if err != nil {
		return nil, err
	}
	gate := retrieval.NewConfidenceGate(cfg.Retrieval.ConfidenceThreshold)
	memoryService := memory.NewService(s, embedder, memory.Options{
		RetentionDays: cfg.Memory.RetentionDays,
		SalienceFloor: cfg.Memory.SalienceFloor,
		RecallLimit:   cfg.Memory.RecallLimit,
	})

	summaryLLM, err := factory.Default()
	if err != nil {
		slog.Warn("api: summary model unavailable, fallback folding only", "error", err)
		summaryLLM = nil
	}
	summaryService := summary.NewService(summaryLLM, memoryService)

	serp := tools.NewSerpClient(cfg.Agent.SerpAPIKey)
	if !serp.Configured() {
		slog.Info("api: web search not configured, search tools degrade")
	}

	orchestrator := agent.NewOrchestrator(factory, retriever, gate, memoryService, s, serp, agent.Options{
		MaxIterations: cfg.Agent.MaxIterations,
		HistoryLimit:  cfg.Agent.HistoryLimit,
		TopK:          cfg.Retrieval.TopK,
	})

	return &APIV1Service{
		Profile:      p,
		Store:        s,
		Embedder:     embedder,
		Retriever:    retriever,
		Gate:         gate,
		Memory:       memoryService,
		Summary:      summaryService,
		Orchestrator: orchestrator,
	}, nil
}

// Register mounts all v1 routes on the group.
func (s *APIV1Service) Register(g *echo.Group) {
	g.POST("/conversations", s.CreateConversation)
	g.GET("/conversations", s.ListConversations)
	g.GET("/conversations/:uid", s.GetConversation)
	g.PATCH("/conversations/:uid", s.UpdateConversation)
	g.DELETE("/conversations/:uid", s.DeleteConversation)

	g.POST("/conversations/:uid/messages", s.SendMessage)
	g.GET("/conversations/:uid/messages", s.ListMessages)
	g.POST("/conversations/:uid/messages/stream", s.StreamMessage)

	g.POST("/documents", s.CreateDocument)
	g.GET("/documents", s.ListDocuments)
	g.DELETE("/documents/:id", s.DeleteDocument)

	g.POST("/search", s.Search)

	g.GET("/personas", s.ListPersonas)
	g.POST("/personas", s.CreatePersona)
	g.DELETE("/personas/:name", s.DeletePersona)

	g.POST("/turns/:id/feedback", s.CreateFeedback)
}

// errorResponse builds an HTTPError so it propagates as a non-nil error
// through helpers; echo's error handler renders it as {"message": ...}.
func errorResponse(c echo.Context, status int, message string) error {
	return echo.NewHTTPError(status, message)
}

func internalError(c echo.Context, err error) error {
	slog.Error("api: request failed", "path", c.Path(), "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}
