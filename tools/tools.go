// Package tools fetches external content (search results, library docs, page
// text) and folds it into prompts before they reach a chat provider.
package tools

import "context"

// Result is one piece of fetched context.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Fetcher retrieves external content for a query.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, query string) ([]Result, error)
}
