package citation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []int
	}{
		{"no markers", "plain answer with no sources", []int{}},
		{"single", "per the handbook [1].", []int{1}},
		{"ordered", "first [2] then [1] then [3]", []int{2, 1, 3}},
		{"repeats kept", "see [1] and again [1], plus [2]", []int{1, 1, 2}},
		{"multi digit", "late source [12]", []int{12}},
		{"ignores non numeric", "a list [a] and a cite [4]", []int{4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Extract(tt.text))
		})
	}
}

func TestBuilderSequencesDocumentsThenWeb(t *testing.T) {
	b := NewBuilder()
	require.Equal(t, 1, b.AddDocument("Handbook", "snippet one", nil, nil, nil, 0.9))
	require.Equal(t, 2, b.AddDocument("Handbook", "snippet two", nil, nil, nil, 0.8))
	require.Equal(t, 3, b.AddWeb("Result", "web snippet", "https://example.com"))

	sources := b.Sources()
	require.Len(t, sources, 3)
	require.Equal(t, SourceTypeDocument, sources[0].Type)
	require.Equal(t, SourceTypeDocument, sources[1].Type)
	require.Equal(t, SourceTypeWeb, sources[2].Type)
	require.Equal(t, 3, sources[2].CitationID)
	require.Equal(t, "https://example.com", sources[2].URL)
}

func TestCitedFiltersToReferenced(t *testing.T) {
	b := NewBuilder()
	b.AddDocument("A", "", nil, nil, nil, 0)
	b.AddDocument("B", "", nil, nil, nil, 0)
	b.AddWeb("C", "", "https://c.example")

	cited := Cited(b.Sources(), "uses [3] and [1] only")
	require.Len(t, cited, 2)
	require.Equal(t, 1, cited[0].CitationID)
	require.Equal(t, 3, cited[1].CitationID)
}
