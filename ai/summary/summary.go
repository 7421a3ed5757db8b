// Package summary maintains the rolling conversation summary used to keep
// long conversations inside the model context window.
package summary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hrygo/docpilot/ai/core/llm"
	"github.com/hrygo/docpilot/ai/memory"
)

const (
	// maxSummaryRunes bounds the stored rolling summary.
	maxSummaryRunes = 2000

	foldPrompt = `You maintain a rolling summary of a conversation.
Fold the new exchange into the existing summary. Keep stable facts,
decisions, and open questions; drop pleasantries. Reply with the updated
summary only, at most 200 words.`
)

// Service folds conversation turns into a rolling summary.
type Service struct {
	llm    llm.Service
	memory *memory.Service
}

// NewService creates a summary Service. llm may be nil; folding then always
// uses the deterministic fallback.
func NewService(llmService llm.Service, memoryService *memory.Service) *Service {
	return &Service{llm: llmService, memory: memoryService}
}

// Refresh folds the latest user/assistant exchange into the conversation's
// rolling summary and persists it. Summary failures never surface to the
// caller beyond logging; the chat flow must not depend on summarization.
func (s *Service) Refresh(ctx context.Context, conversationID int32, userMessage, assistantMessage string) {
	existing := ""
	if current, err := s.memory.GetSummary(ctx, conversationID); err != nil {
		slog.Warn("summary: load failed", "conversation_id", conversationID, "error", err)
	} else if current != nil {
		existing = current.RollingSummary
	}

	updated := s.fold(ctx, existing, userMessage, assistantMessage)
	if err := s.memory.UpsertSummary(ctx, conversationID, updated); err != nil {
		slog.Warn("summary: persist failed", "conversation_id", conversationID, "error", err)
	}
}

func (s *Service) fold(ctx context.Context, existing, userMessage, assistantMessage string) string {
	if s.llm != nil {
		messages := []llm.Message{
			llm.SystemMessage(foldPrompt),
			llm.UserMessage(fmt.Sprintf(
				"Current summary:\n%s\n\nNew exchange:\nUser: %s\nAssistant: %s",
				existing, userMessage, assistantMessage,
			)),
		}
		resp, _, err := s.llm.Complete(ctx, messages, nil)
		if err == nil && strings.TrimSpace(resp.Content) != "" {
			return truncateRunes(strings.TrimSpace(resp.Content), maxSummaryRunes)
		}
		if err != nil {
			slog.Warn("summary: model fold failed, using fallback", "error", err)
		}
	}
	return FallbackFold(existing, userMessage, assistantMessage)
}

// FallbackFold deterministically appends the exchange to the summary and
// truncates from the front, keeping the most recent material.
func FallbackFold(existing, userMessage, assistantMessage string) string {
	var b strings.Builder
	if existing != "" {
		b.WriteString(existing)
		b.WriteString("\n")
	}
	b.WriteString("User: ")
	b.WriteString(truncateRunes(userMessage, 200))
	b.WriteString("\nAssistant: ")
	b.WriteString(truncateRunes(assistantMessage, 200))

	folded := b.String()
	runes := []rune(folded)
	if len(runes) > maxSummaryRunes {
		folded = string(runes[len(runes)-maxSummaryRunes:])
	}
	return folded
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
