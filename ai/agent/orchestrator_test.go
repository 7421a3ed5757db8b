package agent

import (
	"context"
	"fmt"
	"testing"

	"github.com/lithammer/shortuuid/v4"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/docpilot/ai/citation"
	"github.com/hrygo/docpilot/ai/core/llm"
	"github.com/hrygo/docpilot/ai/memory"
	"github.com/hrygo/docpilot/ai/retrieval"
	"github.com/hrygo/docpilot/store"
	storetest "github.com/hrygo/docpilot/store/test"
)

// scriptedLLM replays a fixed sequence of responses and records every
// request it receives.
type scriptedLLM struct {
	responses []*llm.Response
	err       error
	calls     [][]llm.Message
	toolSets  [][]llm.ToolDescriptor
}

func (s *scriptedLLM) Complete(ctx context.Context, messages []llm.Message, tools []llm.ToolDescriptor) (*llm.Response, *llm.CallStats, error) {
	s.calls = append(s.calls, messages)
	s.toolSets = append(s.toolSets, tools)
	if s.err != nil {
		return nil, nil, s.err
	}
	idx := len(s.calls) - 1
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	return s.responses[idx], &llm.CallStats{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}, nil
}

func (s *scriptedLLM) Stream(ctx context.Context, messages []llm.Message) (<-chan string, <-chan error) {
	content := make(chan string, 1)
	errs := make(chan error, 1)
	content <- "streamed"
	close(content)
	close(errs)
	return content, errs
}

type fixedProvider struct{ svc llm.Service }

func (p fixedProvider) For(llm.Override) (llm.Service, error) { return p.svc, nil }

type fixedRetriever struct {
	fragments []*retrieval.ScoredFragment
	err       error
}

func (r fixedRetriever) Search(ctx context.Context, req *retrieval.SearchRequest) ([]*retrieval.ScoredFragment, error) {
	return r.fragments, r.err
}

func newTestOrchestrator(t *testing.T, svc llm.Service, fragments []*retrieval.ScoredFragment) (*Orchestrator, *store.Store, *store.Conversation) {
	ctx := context.Background()
	s := storetest.NewTestingStore(ctx, t)
	conv, err := s.CreateConversation(ctx, &store.Conversation{
		UID:      shortuuid.New(),
		Title:    "test",
		Provider: "openai",
		Model:    "gpt-4o-mini",
	})
	require.NoError(t, err)

	o := NewOrchestrator(
		fixedProvider{svc: svc},
		fixedRetriever{fragments: fragments},
		retrieval.NewConfidenceGate(0.7),
		memory.NewService(s, nil, memory.Options{}),
		s,
		nil,
		Options{MaxIterations: 3, HistoryLimit: 10, TopK: 5},
	)
	return o, s, conv
}

func scoredFragment(id int64, title, text string, score float64) *retrieval.ScoredFragment {
	return &retrieval.ScoredFragment{
		Fragment:      store.Fragment{ID: id, DocumentID: 1, Text: text},
		DocumentTitle: title,
		HybridScore:   score,
		VectorScore:   score,
	}
}

func TestRespondWithoutToolCalls(t *testing.T) {
	svc := &scriptedLLM{responses: []*llm.Response{
		{Content: "The handbook says so [1]."},
	}}
	fragments := []*retrieval.ScoredFragment{
		scoredFragment(1, "Handbook", "All employees get 25 vacation days.", 0.9),
	}
	o, _, conv := newTestOrchestrator(t, svc, fragments)

	reply, err := o.Respond(context.Background(), &Request{Conversation: conv, Query: "how many vacation days?"})
	require.NoError(t, err)
	require.Equal(t, "The handbook says so [1].", reply.Answer)
	require.False(t, reply.Degraded)
	require.True(t, reply.Confident)
	require.InDelta(t, 0.9, reply.Confidence, 1e-9)

	require.Len(t, reply.Sources, 1)
	require.Equal(t, citation.SourceTypeDocument, reply.Sources[0].Type)
	require.Equal(t, "Handbook", reply.Sources[0].Title)
	require.Equal(t, 1, reply.Sources[0].CitationID)

	// One model call, with tools offered.
	require.Len(t, svc.calls, 1)
	require.NotEmpty(t, svc.toolSets[0])

	// Context carries the citation header and the fragment text.
	system := svc.calls[0][0]
	require.Equal(t, "system", system.Role)
	require.Contains(t, system.Content, "[Source 1: Handbook]")
	require.Contains(t, system.Content, "25 vacation days")
}

func TestRespondKeepsUncitedSources(t *testing.T) {
	// The model answers without inline markers; the source list still
	// carries every retrieved fragment.
	svc := &scriptedLLM{responses: []*llm.Response{
		{Content: "Employees get 25 vacation days per year."},
	}}
	fragments := []*retrieval.ScoredFragment{
		scoredFragment(1, "Handbook", "All employees get 25 vacation days.", 0.9),
		scoredFragment(2, "Policy FAQ", "Vacation carries over up to 5 days.", 0.8),
	}
	o, _, conv := newTestOrchestrator(t, svc, fragments)

	reply, err := o.Respond(context.Background(), &Request{Conversation: conv, Query: "how many vacation days?"})
	require.NoError(t, err)
	require.Empty(t, citation.Extract(reply.Answer))
	require.Len(t, reply.Sources, 2)
	require.Equal(t, 1, reply.Sources[0].CitationID)
	require.Equal(t, "Handbook", reply.Sources[0].Title)
	require.Equal(t, 2, reply.Sources[1].CitationID)
	require.Equal(t, "Policy FAQ", reply.Sources[1].Title)
}

func TestRespondExecutesToolRound(t *testing.T) {
	svc := &scriptedLLM{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "calculator", Arguments: `{"expression": "2+2"}`}}},
		{Content: "The result is 4."},
	}}
	o, _, conv := newTestOrchestrator(t, svc, nil)

	reply, err := o.Respond(context.Background(), &Request{Conversation: conv, Query: "what is 2+2?"})
	require.NoError(t, err)
	require.Equal(t, "The result is 4.", reply.Answer)
	require.Len(t, svc.calls, 2)

	// The second request carries the assistant tool call and its result,
	// correlated by call id.
	second := svc.calls[1]
	toolMsg := second[len(second)-1]
	require.Equal(t, "tool", toolMsg.Role)
	require.Equal(t, "call_1", toolMsg.ToolCallID)
	require.Equal(t, "Result: 4", toolMsg.Content)

	assistantMsg := second[len(second)-2]
	require.Equal(t, "assistant", assistantMsg.Role)
	require.Len(t, assistantMsg.ToolCalls, 1)
}

func TestRespondUnknownToolFeedsErrorBack(t *testing.T) {
	svc := &scriptedLLM{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "call_9", Name: "time_travel", Arguments: `{}`}}},
		{Content: "I cannot do that."},
	}}
	o, _, conv := newTestOrchestrator(t, svc, nil)

	reply, err := o.Respond(context.Background(), &Request{Conversation: conv, Query: "go back to 1999"})
	require.NoError(t, err)
	require.Equal(t, "I cannot do that.", reply.Answer)

	second := svc.calls[1]
	toolMsg := second[len(second)-1]
	require.Equal(t, "call_9", toolMsg.ToolCallID)
	require.Contains(t, toolMsg.Content, `unknown tool "time_travel"`)
}

func TestRespondForcesFinalAnswerAtBound(t *testing.T) {
	// The model keeps asking for tools; the loop must stop after
	// MaxIterations rounds plus one forced no-tools call.
	svc := &scriptedLLM{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "c", Name: "calculator", Arguments: `{"expression": "1+1"}`}}},
	}}
	o, _, conv := newTestOrchestrator(t, svc, nil)

	reply, err := o.Respond(context.Background(), &Request{Conversation: conv, Query: "loop forever"})
	require.NoError(t, err)
	require.NotNil(t, reply)
	require.Len(t, svc.calls, 4) // MaxIterations=3 rounds + forced final

	// The forced final call offers no tools.
	require.Empty(t, svc.toolSets[len(svc.toolSets)-1])
	for _, tools := range svc.toolSets[:len(svc.toolSets)-1] {
		require.NotEmpty(t, tools)
	}
}

func TestRespondDegradesOnModelFailure(t *testing.T) {
	svc := &scriptedLLM{err: fmt.Errorf("upstream unavailable")}
	fragments := []*retrieval.ScoredFragment{
		scoredFragment(1, "Handbook", "All employees get 25 vacation days.", 0.9),
	}
	o, _, conv := newTestOrchestrator(t, svc, fragments)

	reply, err := o.Respond(context.Background(), &Request{Conversation: conv, Query: "vacation days?"})
	require.NoError(t, err)
	require.True(t, reply.Degraded)
	require.Contains(t, reply.Answer, "Handbook")
	require.Contains(t, reply.Answer, "25 vacation days")

	// The retrieved fragments stay attached as provenance.
	require.Len(t, reply.Sources, 1)
	require.Equal(t, citation.SourceTypeDocument, reply.Sources[0].Type)
}

func TestRespondDirectPathWithoutTools(t *testing.T) {
	svc := &scriptedLLM{responses: []*llm.Response{{Content: "Direct answer."}}}
	o, _, conv := newTestOrchestrator(t, svc, nil)

	// Empty fragment universe, no memories, tools disabled: the model's
	// direct answer comes back with no sources and no tool traffic.
	reply, err := o.Respond(context.Background(), &Request{Conversation: conv, Query: "anything", DisableTools: true})
	require.NoError(t, err)
	require.Equal(t, "Direct answer.", reply.Answer)
	require.Empty(t, reply.Sources)

	require.Len(t, svc.calls, 1)
	require.Empty(t, svc.toolSets[0])
	for _, ev := range reply.Events {
		require.NotEqual(t, StageToolRound, ev.Stage)
		require.NotEqual(t, StageToolCall, ev.Stage)
	}
}

func TestRespondDirectPathSkipsEagerSearchWhenConfident(t *testing.T) {
	svc := &scriptedLLM{responses: []*llm.Response{{Content: "From the docs [1]."}}}
	fragments := []*retrieval.ScoredFragment{
		scoredFragment(1, "Handbook", "All employees get 25 vacation days.", 0.9),
	}
	o, _, conv := newTestOrchestrator(t, svc, fragments)

	reply, err := o.Respond(context.Background(), &Request{Conversation: conv, Query: "vacation?", DisableTools: true})
	require.NoError(t, err)
	require.True(t, reply.Confident)
	for _, ev := range reply.Events {
		require.NotEqual(t, StageWebSearch, ev.Stage)
	}
}

func TestRespondLowConfidenceAdvisory(t *testing.T) {
	svc := &scriptedLLM{responses: []*llm.Response{{Content: "Best effort."}}}
	fragments := []*retrieval.ScoredFragment{
		scoredFragment(1, "Handbook", "Unrelated text.", 0.2),
	}
	o, _, conv := newTestOrchestrator(t, svc, fragments)

	reply, err := o.Respond(context.Background(), &Request{Conversation: conv, Query: "something else"})
	require.NoError(t, err)
	require.False(t, reply.Confident)

	// Low confidence stays advisory on the tool path: tools remain offered
	// and the system prompt flags the gap.
	require.NotEmpty(t, svc.toolSets[0])
	require.Contains(t, svc.calls[0][0].Content, "may not fully answer")
}

func TestRespondIncludesHistory(t *testing.T) {
	svc := &scriptedLLM{responses: []*llm.Response{{Content: "ok"}}}
	o, s, conv := newTestOrchestrator(t, svc, nil)
	ctx := context.Background()

	_, err := s.CreateTurn(ctx, &store.Turn{ConversationID: conv.ID, Role: "user", Content: "earlier question"})
	require.NoError(t, err)
	_, err = s.CreateTurn(ctx, &store.Turn{ConversationID: conv.ID, Role: "assistant", Content: "earlier answer"})
	require.NoError(t, err)

	_, err = o.Respond(ctx, &Request{Conversation: conv, Query: "follow-up"})
	require.NoError(t, err)

	msgs := svc.calls[0]
	require.Equal(t, "user", msgs[1].Role)
	require.Equal(t, "earlier question", msgs[1].Content)
	require.Equal(t, "assistant", msgs[2].Role)
	require.Equal(t, "earlier answer", msgs[2].Content)
	require.Equal(t, "follow-up", msgs[len(msgs)-1].Content)
}

func TestRespondValidation(t *testing.T) {
	o, _, conv := newTestOrchestrator(t, &scriptedLLM{responses: []*llm.Response{{Content: "x"}}}, nil)

	_, err := o.Respond(context.Background(), &Request{Conversation: conv, Query: ""})
	require.Error(t, err)
	_, err = o.Respond(context.Background(), &Request{Conversation: nil, Query: "q"})
	require.Error(t, err)
}

func TestRespondStreamBypassesTools(t *testing.T) {
	svc := &scriptedLLM{responses: []*llm.Response{{Content: "unused"}}}
	o, _, conv := newTestOrchestrator(t, svc, nil)

	content, errs, sources, err := o.RespondStream(context.Background(), &Request{Conversation: conv, Query: "stream it"})
	require.NoError(t, err)
	require.Empty(t, sources)

	var got string
	for chunk := range content {
		got += chunk
	}
	require.Equal(t, "streamed", got)
	require.NoError(t, <-errs)
	// Streaming never issues tool-enabled completions.
	require.Empty(t, svc.calls)
}
