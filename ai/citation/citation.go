// Package citation extracts bracketed citation markers from model output
// and builds the ordered source list attached to assistant turns.
package citation

import (
	"regexp"
	"strconv"
)

var markerPattern = regexp.MustCompile(`\[(\d+)\]`)

// SourceTypeDocument and SourceTypeWeb discriminate source entries.
const (
	SourceTypeDocument = "document"
	SourceTypeWeb      = "web"
)

// Source is one entry of an assistant turn's source list.
type Source struct {
	CitationID int     `json:"citation_id"`
	Type       string  `json:"type"` // document or web
	Title      string  `json:"title"`
	Snippet    string  `json:"snippet,omitempty"`
	Page       *int32  `json:"page,omitempty"`
	DocumentID *int32  `json:"document_id,omitempty"`
	FragmentID *int64  `json:"fragment_id,omitempty"`
	URL        string  `json:"url,omitempty"`
	Score      float64 `json:"score,omitempty"`
}

// Extract returns the citation ids appearing in text, in order of
// appearance. Repeated markers repeat in the result.
func Extract(text string) []int {
	matches := markerPattern.FindAllStringSubmatch(text, -1)
	ids := make([]int, 0, len(matches))
	for _, m := range matches {
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// Builder assigns sequential citation ids to sources as they are added:
// document fragments first, then web results continuing the sequence.
type Builder struct {
	sources []Source
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddDocument appends a document fragment source and returns its citation id.
func (b *Builder) AddDocument(title, snippet string, page *int32, documentID *int32, fragmentID *int64, score float64) int {
	id := len(b.sources) + 1
	b.sources = append(b.sources, Source{
		CitationID: id,
		Type:       SourceTypeDocument,
		Title:      title,
		Snippet:    snippet,
		Page:       page,
		DocumentID: documentID,
		FragmentID: fragmentID,
		Score:      score,
	})
	return id
}

// AddWeb appends a web result source and returns its citation id.
func (b *Builder) AddWeb(title, snippet, url string) int {
	id := len(b.sources) + 1
	b.sources = append(b.sources, Source{
		CitationID: id,
		Type:       SourceTypeWeb,
		Title:      title,
		Snippet:    snippet,
		URL:        url,
	})
	return id
}

// Sources returns the accumulated source list in citation id order.
func (b *Builder) Sources() []Source {
	return b.sources
}

// Cited is a narrowed view of a source list: only entries whose citation id
// appears in the answer text, in citation id order. The full source list
// attached to a reply is never filtered this way; every retrieved fragment
// and web result is provenance regardless of inline markers.
func Cited(sources []Source, answer string) []Source {
	cited := map[int]bool{}
	for _, id := range Extract(answer) {
		cited[id] = true
	}
	out := make([]Source, 0, len(sources))
	for _, s := range sources {
		if cited[s.CitationID] {
			out = append(out, s)
		}
	}
	return out
}
