package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hrygo/docpilot/ai/agent/tools"
	"github.com/hrygo/docpilot/ai/citation"
	"github.com/hrygo/docpilot/ai/core/llm"
	"github.com/hrygo/docpilot/ai/memory"
	"github.com/hrygo/docpilot/ai/metrics"
	"github.com/hrygo/docpilot/ai/retrieval"
	"github.com/hrygo/docpilot/store"
)

const defaultSystemPrompt = `You are a helpful assistant that answers questions
grounded in the provided document excerpts. Cite sources with bracketed
numbers like [1]. If the documents do not contain the answer, say so or use
the available tools.`

// LLMProvider yields a model service for the requested override.
type LLMProvider interface {
	For(ov llm.Override) (llm.Service, error)
}

// Retriever runs a hybrid retrieval query.
type Retriever interface {
	Search(ctx context.Context, req *retrieval.SearchRequest) ([]*retrieval.ScoredFragment, error)
}

// Options bounds the run.
type Options struct {
	MaxIterations int
	HistoryLimit  int
	TopK          int
}

// Orchestrator composes retrieval context, memory, and tools into one
// grounded assistant answer per user message.
type Orchestrator struct {
	llm       LLMProvider
	retriever Retriever
	gate      *retrieval.ConfidenceGate
	memory    *memory.Service
	store     *store.Store
	serp      *tools.SerpClient
	opts      Options
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(provider LLMProvider, retriever Retriever, gate *retrieval.ConfidenceGate, memoryService *memory.Service, s *store.Store, serp *tools.SerpClient, opts Options) *Orchestrator {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 5
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 10
	}
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	return &Orchestrator{
		llm:       provider,
		retriever: retriever,
		gate:      gate,
		memory:    memoryService,
		store:     s,
		serp:      serp,
		opts:      opts,
	}
}

// Request is one user message to answer.
type Request struct {
	Conversation *store.Conversation
	Query        string
	// DisableTools forces the direct path: no tool loop, with an eager web
	// search injected when retrieval confidence is low.
	DisableTools bool
}

// Reply is the orchestrator's answer with its provenance.
type Reply struct {
	Answer     string
	Sources    []citation.Source
	Confidence float64
	Confident  bool
	Degraded   bool
	Events     []Event
	Stats      llm.CallStats
}

// Respond answers one user message. Errors from the model mid-run degrade
// to an answer built from the retrieved context rather than failing the
// request.
func (o *Orchestrator) Respond(ctx context.Context, req *Request) (reply *Reply, err error) {
	startTime := time.Now()
	defer func() {
		metrics.ChatDuration.Observe(time.Since(startTime).Seconds())
		if r := recover(); r != nil {
			slog.Error("agent: run panicked, returning degraded reply", "panic", r)
			reply, err = o.degradedReply(reply, fmt.Sprintf("panic: %v", r)), nil
		}
	}()

	if req.Query == "" {
		return nil, fmt.Errorf("query must not be empty")
	}
	if req.Conversation == nil {
		return nil, fmt.Errorf("conversation is required")
	}

	rec := &eventRecorder{}
	builder := citation.NewBuilder()
	reply = &Reply{}

	svc, err := o.llm.For(llm.Override{
		Provider:    req.Conversation.Provider,
		Model:       req.Conversation.Model,
		Temperature: &req.Conversation.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("model provider: %w", err)
	}

	fragments, assessment := o.retrieve(ctx, req, rec)
	reply.Confidence = assessment.Score
	reply.Confident = assessment.Confident

	messages := o.composeContext(ctx, req, fragments, builder, rec, assessment)

	var answer string
	var stats llm.CallStats
	if req.DisableTools {
		answer, stats, err = o.respondDirect(ctx, svc, req, messages, builder, rec, assessment)
	} else {
		answer, stats, err = o.respondWithTools(ctx, svc, req, messages, builder, rec)
	}
	if err != nil {
		slog.Error("agent: model failed, degrading", "error", err)
		metrics.ChatRequests.WithLabelValues("degraded").Inc()
		degraded := o.degradedAnswer(fragments)
		rec.record(StageDegraded, err.Error())
		reply.Answer = degraded
		reply.Degraded = true
		reply.Sources = builder.Sources()
		reply.Events = rec.events
		return reply, nil
	}

	rec.record(StageAnswer, fmt.Sprintf("%d chars", len(answer)))
	metrics.ChatRequests.WithLabelValues("ok").Inc()
	metrics.RecordStats(stats.PromptTokens, stats.CompletionTokens)

	reply.Answer = answer
	reply.Stats = stats
	// Every retrieved fragment and web search stays in the source list,
	// whether or not the model cited it inline.
	reply.Sources = builder.Sources()
	reply.Events = rec.events
	return reply, nil
}

// RespondStream streams an answer token by token. Streaming bypasses the
// tool loop; retrieval context is still composed, with the direct path's
// eager web search applied on low confidence.
func (o *Orchestrator) RespondStream(ctx context.Context, req *Request) (<-chan string, <-chan error, []citation.Source, error) {
	if req.Query == "" {
		return nil, nil, nil, fmt.Errorf("query must not be empty")
	}
	if req.Conversation == nil {
		return nil, nil, nil, fmt.Errorf("conversation is required")
	}

	svc, err := o.llm.For(llm.Override{
		Provider:    req.Conversation.Provider,
		Model:       req.Conversation.Model,
		Temperature: &req.Conversation.Temperature,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("model provider: %w", err)
	}

	rec := &eventRecorder{}
	builder := citation.NewBuilder()

	fragments, assessment := o.retrieve(ctx, req, rec)
	messages := o.composeContext(ctx, req, fragments, builder, rec, assessment)
	if !assessment.Confident {
		messages = o.injectWebResults(ctx, req.Query, messages, builder, rec)
	}
	messages = append(messages, llm.UserMessage(req.Query))

	content, errs := svc.Stream(ctx, messages)
	return content, errs, builder.Sources(), nil
}

func (o *Orchestrator) retrieve(ctx context.Context, req *Request, rec *eventRecorder) ([]*retrieval.ScoredFragment, retrieval.Assessment) {
	fragments, err := o.retriever.Search(ctx, &retrieval.SearchRequest{
		Query:          req.Query,
		TopK:           o.opts.TopK,
		ConversationID: &req.Conversation.ID,
	})
	if err != nil {
		// A failed retrieval leaves the model to answer from history and
		// tools instead of failing the chat.
		slog.Warn("agent: retrieval failed", "error", err)
		fragments = nil
	}
	rec.record(StageRetrieval, fmt.Sprintf("%d fragments", len(fragments)))

	assessment := o.gate.Assess(fragments)
	metrics.RetrievalConfidence.Observe(assessment.Score)
	rec.record(StageConfidence, fmt.Sprintf("score=%.3f confident=%t", assessment.Score, assessment.Confident))
	return fragments, assessment
}

// composeContext builds the message prefix: system prompt, rolling summary,
// recalled memory, and the retrieved fragments with their citation headers.
func (o *Orchestrator) composeContext(ctx context.Context, req *Request, fragments []*retrieval.ScoredFragment, builder *citation.Builder, rec *eventRecorder, assessment retrieval.Assessment) []llm.Message {
	systemPrompt := req.Conversation.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}

	var b strings.Builder
	b.WriteString(systemPrompt)

	if summaryRow, err := o.memory.GetSummary(ctx, req.Conversation.ID); err != nil {
		slog.Warn("agent: summary load failed", "error", err)
	} else if summaryRow != nil && summaryRow.RollingSummary != "" {
		b.WriteString("\n\nConversation so far:\n")
		b.WriteString(summaryRow.RollingSummary)
	}

	items, err := o.memory.Recall(ctx, &req.Conversation.ID, req.Query)
	if err != nil {
		slog.Warn("agent: memory recall failed", "error", err)
	}
	rec.record(StageRecall, fmt.Sprintf("%d items", len(items)))
	if len(items) > 0 {
		b.WriteString("\n\nRelevant memory:\n")
		for _, item := range items {
			fmt.Fprintf(&b, "- %s\n", item.Content)
			if err := o.memory.Reinforce(ctx, item.ID); err != nil {
				slog.Warn("agent: reinforce failed", "id", item.ID, "error", err)
			}
		}
	}

	if len(fragments) > 0 {
		b.WriteString("\n\nDocument excerpts:\n")
		for _, f := range fragments {
			docID := f.Fragment.DocumentID
			fragID := f.Fragment.ID
			id := builder.AddDocument(f.DocumentTitle, snippet(f.Fragment.Text), f.Fragment.Page, &docID, &fragID, f.HybridScore)
			header := fmt.Sprintf("[Source %d: %s", id, f.DocumentTitle)
			if f.Fragment.Page != nil {
				header += fmt.Sprintf(" - Page %d", *f.Fragment.Page)
			}
			header += "]"
			b.WriteString(header)
			b.WriteString("\n")
			b.WriteString(f.Fragment.Text)
			b.WriteString("\n\n")
		}
	}

	if !assessment.Confident {
		b.WriteString("\nThe document excerpts may not fully answer the question. Use the available tools when they can help, and say when you are unsure.")
	}

	messages := []llm.Message{llm.SystemMessage(b.String())}
	messages = append(messages, o.historyMessages(ctx, req.Conversation.ID)...)
	return messages
}

func (o *Orchestrator) historyMessages(ctx context.Context, conversationID int32) []llm.Message {
	limit := o.opts.HistoryLimit
	turns, err := o.store.ListTurns(ctx, &store.FindTurn{
		ConversationID: &conversationID,
		Limit:          &limit,
	})
	if err != nil {
		slog.Warn("agent: history load failed", "error", err)
		return nil
	}
	messages := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, llm.Message{Role: t.Role, Content: t.Content})
	}
	return messages
}

// respondDirect answers without the tool loop. Low retrieval confidence
// triggers an eager web search whose results are injected into context.
func (o *Orchestrator) respondDirect(ctx context.Context, svc llm.Service, req *Request, messages []llm.Message, builder *citation.Builder, rec *eventRecorder, assessment retrieval.Assessment) (string, llm.CallStats, error) {
	if !assessment.Confident {
		messages = o.injectWebResults(ctx, req.Query, messages, builder, rec)
	}
	messages = append(messages, llm.UserMessage(req.Query))

	resp, stats, err := svc.Complete(ctx, messages, nil)
	if err != nil {
		return "", llm.CallStats{}, err
	}
	return resp.Content, deref(stats), nil
}

// injectWebResults runs an immediate web search and appends the results as
// additional cited context.
func (o *Orchestrator) injectWebResults(ctx context.Context, query string, messages []llm.Message, builder *citation.Builder, rec *eventRecorder) []llm.Message {
	if o.serp == nil || !o.serp.Configured() {
		return messages
	}
	results, err := o.serp.Search(ctx, "google", query)
	if err != nil {
		slog.Warn("agent: eager web search failed", "error", err)
		return messages
	}
	rec.record(StageWebSearch, fmt.Sprintf("%d results", len(results)))
	if len(results) == 0 {
		return messages
	}

	var b strings.Builder
	b.WriteString("Web results:\n")
	for _, r := range results {
		id := builder.AddWeb(r.Title, r.Snippet, r.Link)
		fmt.Fprintf(&b, "[Source %d: %s]\n%s\n%s\n\n", id, r.Title, r.Snippet, r.Link)
	}
	messages[0].Content += "\n\n" + strings.TrimSpace(b.String())
	return messages
}

// respondWithTools runs the bounded tool loop: each round the model may
// request tool calls, which execute concurrently; their results are fed
// back keyed by call id. After the iteration bound a final call without
// tools forces an answer.
func (o *Orchestrator) respondWithTools(ctx context.Context, svc llm.Service, req *Request, messages []llm.Message, builder *citation.Builder, rec *eventRecorder) (string, llm.CallStats, error) {
	registry := o.buildRegistry(builder)
	descriptors := registry.Descriptors()
	messages = append(messages, llm.UserMessage(req.Query))

	var total llm.CallStats
	for iteration := 0; iteration < o.opts.MaxIterations; iteration++ {
		resp, stats, err := svc.Complete(ctx, messages, descriptors)
		if err != nil {
			return "", total, err
		}
		accumulate(&total, stats)

		if len(resp.ToolCalls) == 0 {
			return resp.Content, total, nil
		}
		rec.record(StageToolRound, fmt.Sprintf("round=%d calls=%d", iteration+1, len(resp.ToolCalls)))

		messages = append(messages, llm.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		results := o.executeCalls(ctx, registry, resp.ToolCalls, rec)
		for i, call := range resp.ToolCalls {
			messages = append(messages, llm.ToolResultMessage(call.ID, results[i]))
		}
	}

	// Iteration bound reached: force a final answer without tools.
	slog.Warn("agent: tool loop bound reached, forcing final answer", "iterations", o.opts.MaxIterations)
	resp, stats, err := svc.Complete(ctx, messages, nil)
	if err != nil {
		return "", total, err
	}
	accumulate(&total, stats)
	return resp.Content, total, nil
}

// executeCalls runs a round's tool calls concurrently and returns results
// positionally matching the calls.
func (o *Orchestrator) executeCalls(ctx context.Context, registry *Registry, calls []llm.ToolCall, rec *eventRecorder) []string {
	results := make([]string, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			startTime := time.Now()
			result := registry.execute(gctx, call)
			outcome := "ok"
			if strings.HasPrefix(result, "Error:") {
				outcome = "error"
			}
			metrics.ToolCalls.WithLabelValues(call.Name, outcome).Inc()
			slog.Debug("agent: tool executed",
				"tool", call.Name,
				"outcome", outcome,
				"duration_ms", time.Since(startTime).Milliseconds(),
			)
			results[i] = result
			return nil
		})
	}
	_ = g.Wait()
	for i, call := range calls {
		rec.record(StageToolCall, fmt.Sprintf("%s: %s", call.Name, snippet(results[i])))
	}
	return results
}

func (o *Orchestrator) buildRegistry(builder *citation.Builder) *Registry {
	sink := func(r tools.SearchResult) {
		builder.AddWeb(r.Title, r.Snippet, r.Link)
	}
	return NewRegistry(
		tools.NewCalculator(),
		tools.NewWebSearch(o.serp, sink),
		tools.NewNewsSearch(o.serp, sink),
	)
}

// degradedAnswer builds a best-effort reply from retrieved context when the
// model is unavailable.
func (o *Orchestrator) degradedAnswer(fragments []*retrieval.ScoredFragment) string {
	if len(fragments) == 0 {
		return "I could not generate an answer right now. Please try again."
	}
	var b strings.Builder
	b.WriteString("I could not generate a full answer right now. The most relevant document excerpts were:\n\n")
	for i, f := range fragments {
		if i >= 3 {
			break
		}
		fmt.Fprintf(&b, "%s: %s\n\n", f.DocumentTitle, snippet(f.Fragment.Text))
	}
	return strings.TrimSpace(b.String())
}

func (o *Orchestrator) degradedReply(partial *Reply, detail string) *Reply {
	if partial == nil {
		partial = &Reply{}
	}
	if partial.Answer == "" {
		partial.Answer = "I could not generate an answer right now. Please try again."
	}
	partial.Degraded = true
	partial.Events = append(partial.Events, Event{Stage: StageDegraded, Detail: detail})
	metrics.ChatRequests.WithLabelValues("degraded").Inc()
	return partial
}

func snippet(text string) string {
	const maxRunes = 200
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= maxRunes {
		return string(runes)
	}
	return string(runes[:maxRunes]) + "..."
}

func accumulate(total *llm.CallStats, stats *llm.CallStats) {
	if stats == nil {
		return
	}
	total.PromptTokens += stats.PromptTokens
	total.CompletionTokens += stats.CompletionTokens
	total.TotalTokens += stats.TotalTokens
	total.TotalDurationMs += stats.TotalDurationMs
}

func deref(stats *llm.CallStats) llm.CallStats {
	if stats == nil {
		return llm.CallStats{}
	}
	return *stats
}
