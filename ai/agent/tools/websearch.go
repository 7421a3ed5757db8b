package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hrygo/docpilot/ai/core/llm"
)

// ResultSink receives structured web results so the caller can attach them
// to the answer's source list.
type ResultSink func(result SearchResult)

// WebSearch searches the web through the configured search provider.
type WebSearch struct {
	client *SerpClient
	sink   ResultSink
}

// NewWebSearch creates the web search tool. sink may be nil.
func NewWebSearch(client *SerpClient, sink ResultSink) *WebSearch {
	return &WebSearch{client: client, sink: sink}
}

func (w *WebSearch) Name() string { return "web_search" }

func (w *WebSearch) Descriptor() llm.ToolDescriptor {
	return llm.ToolDescriptor{
		Name:        w.Name(),
		Description: "Search the web for current information not found in the documents.",
		Parameters: `{
			"type": "object",
			"properties": {
				"query": {
					"type": "string",
					"description": "The search query"
				}
			},
			"required": ["query"]
		}`,
	}
}

func (w *WebSearch) Call(ctx context.Context, arguments string) (string, error) {
	return runSearch(ctx, w.client, w.sink, "google", arguments)
}

// NewsSearch searches recent news through the configured search provider.
type NewsSearch struct {
	client *SerpClient
	sink   ResultSink
}

// NewNewsSearch creates the news search tool. sink may be nil.
func NewNewsSearch(client *SerpClient, sink ResultSink) *NewsSearch {
	return &NewsSearch{client: client, sink: sink}
}

func (n *NewsSearch) Name() string { return "news_search" }

func (n *NewsSearch) Descriptor() llm.ToolDescriptor {
	return llm.ToolDescriptor{
		Name:        n.Name(),
		Description: "Search recent news articles.",
		Parameters: `{
			"type": "object",
			"properties": {
				"query": {
					"type": "string",
					"description": "The news search query"
				}
			},
			"required": ["query"]
		}`,
	}
}

func (n *NewsSearch) Call(ctx context.Context, arguments string) (string, error) {
	return runSearch(ctx, n.client, n.sink, "google_news", arguments)
}

func runSearch(ctx context.Context, client *SerpClient, sink ResultSink, engine, arguments string) (string, error) {
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if strings.TrimSpace(args.Query) == "" {
		return "", fmt.Errorf("query must not be empty")
	}

	if !client.Configured() {
		// Degrade instead of erroring so the model can answer from what it
		// has rather than aborting the run.
		return "Web search is not configured.", nil
	}

	results, err := client.Search(ctx, engine, args.Query)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "No results found.", nil
	}

	var b strings.Builder
	for i, r := range results {
		if sink != nil {
			sink(r)
		}
		fmt.Fprintf(&b, "%d. %s\n%s\n%s\n\n", i+1, r.Title, r.Snippet, r.Link)
	}
	return strings.TrimSpace(b.String()), nil
}
