package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	serpAPIEndpoint  = "https://serpapi.com/search"
	serpAPIMaxResult = 5
)

// SerpClient calls the SerpAPI search endpoint. A nil key yields a client
// that reports itself unconfigured instead of failing calls.
type SerpClient struct {
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
}

// SearchResult is one organic result entry.
type SearchResult struct {
	Title   string
	Snippet string
	Link    string
}

// NewSerpClient creates a SerpClient. The limiter smooths bursts against
// the upstream per-second quota.
func NewSerpClient(apiKey string) *SerpClient {
	return &SerpClient{
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Second), 2),
	}
}

// Configured reports whether an API key is present. Safe on a nil client.
func (c *SerpClient) Configured() bool {
	return c != nil && c.apiKey != ""
}

// Search runs a query against the given engine ("google" or "google_news")
// and returns up to five results.
func (c *SerpClient) Search(ctx context.Context, engine, query string) ([]SearchResult, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("search is not configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("engine", engine)
	params.Set("q", query)
	params.Set("api_key", c.apiKey)
	params.Set("num", fmt.Sprintf("%d", serpAPIMaxResult))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, serpAPIEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	var payload struct {
		OrganicResults []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
			Link    string `json:"link"`
		} `json:"organic_results"`
		NewsResults []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
			Link    string `json:"link"`
		} `json:"news_results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	results := make([]SearchResult, 0, serpAPIMaxResult)
	for _, r := range payload.OrganicResults {
		results = append(results, SearchResult{Title: r.Title, Snippet: r.Snippet, Link: r.Link})
	}
	for _, r := range payload.NewsResults {
		results = append(results, SearchResult{Title: r.Title, Snippet: r.Snippet, Link: r.Link})
	}
	if len(results) > serpAPIMaxResult {
		results = results[:serpAPIMaxResult]
	}
	return results, nil
}
