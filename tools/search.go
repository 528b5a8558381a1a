package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const maxSearchResults = 5

// SearchFetcher queries a SearXNG-compatible search endpoint.
type SearchFetcher struct {
	httpClient *http.Client
	baseURL    string
}

// NewSearchFetcher creates a search fetcher. baseURL points at the search
// instance, e.g. "http://localhost:8888/search".
func NewSearchFetcher(baseURL string) *SearchFetcher {
	return &SearchFetcher{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
	}
}

func (f *SearchFetcher) Name() string { return "search" }

type searchResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Fetch runs the query and returns the top results.
func (f *SearchFetcher) Fetch(ctx context.Context, query string) ([]Result, error) {
	endpoint := fmt.Sprintf("%s?q=%s&format=json", f.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create search request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not reach search provider: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search provider returned non-200 status: %s", resp.Status)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("could not decode search response: %w", err)
	}

	results := make([]Result, 0, maxSearchResults)
	for _, r := range parsed.Results {
		results = append(results, Result{Title: r.Title, URL: r.URL, Content: r.Content})
		if len(results) >= maxSearchResults {
			break
		}
	}
	return results, nil
}
