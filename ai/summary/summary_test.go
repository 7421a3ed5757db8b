package summary

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFallbackFoldAppendsExchange(t *testing.T) {
	folded := FallbackFold("", "what is Go?", "Go is a programming language.")
	require.Contains(t, folded, "User: what is Go?")
	require.Contains(t, folded, "Assistant: Go is a programming language.")

	folded2 := FallbackFold(folded, "who made it?", "Google.")
	require.Contains(t, folded2, "what is Go?")
	require.Contains(t, folded2, "who made it?")
}

func TestFallbackFoldKeepsRecentMaterial(t *testing.T) {
	existing := strings.Repeat("old ", 1000)
	folded := FallbackFold(existing, "newest question", "newest answer")

	require.LessOrEqual(t, len([]rune(folded)), maxSummaryRunes)
	require.Contains(t, folded, "newest question")
	require.Contains(t, folded, "newest answer")
}

func TestFallbackFoldTruncatesLongMessages(t *testing.T) {
	long := strings.Repeat("x", 500)
	folded := FallbackFold("", long, "short")
	require.Contains(t, folded, "...")
	require.Contains(t, folded, "Assistant: short")
}
