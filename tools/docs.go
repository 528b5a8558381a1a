package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const maxDocEntries = 3

// DocsFetcher looks up library documentation from a docs index service.
type DocsFetcher struct {
	httpClient *http.Client
	baseURL    string
}

// NewDocsFetcher creates a docs fetcher. baseURL points at the index
// endpoint, e.g. "http://localhost:9292/lookup".
func NewDocsFetcher(baseURL string) *DocsFetcher {
	return &DocsFetcher{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
	}
}

func (f *DocsFetcher) Name() string { return "docs" }

type docsResponse struct {
	Entries []struct {
		Library string `json:"library"`
		Path    string `json:"path"`
		Excerpt string `json:"excerpt"`
	} `json:"entries"`
}

// Fetch resolves the query against the docs index.
func (f *DocsFetcher) Fetch(ctx context.Context, query string) ([]Result, error) {
	endpoint := fmt.Sprintf("%s?q=%s", f.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create docs request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not reach docs provider: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("docs provider returned non-200 status: %s", resp.Status)
	}

	var parsed docsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("could not decode docs response: %w", err)
	}

	results := make([]Result, 0, maxDocEntries)
	for _, e := range parsed.Entries {
		results = append(results, Result{Title: e.Library, URL: e.Path, Content: e.Excerpt})
		if len(results) >= maxDocEntries {
			break
		}
	}
	return results, nil
}
