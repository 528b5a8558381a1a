package tools

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/EasterCompany/dex-assistant-service/utils"
)

const maxPageChars = 8000

var urlPattern = regexp.MustCompile(`https?://\S+`)

// BrowseFetcher downloads a page and extracts its readable text.
type BrowseFetcher struct {
	httpClient *http.Client
}

// NewBrowseFetcher creates a browse fetcher.
func NewBrowseFetcher() *BrowseFetcher {
	return &BrowseFetcher{
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (f *BrowseFetcher) Name() string { return "browse" }

// Fetch retrieves the first URL found in query and returns the page text as a
// single result. A query with no URL yields no results.
func (f *BrowseFetcher) Fetch(ctx context.Context, query string) ([]Result, error) {
	pageURL := urlPattern.FindString(query)
	if pageURL == "" {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create page request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not fetch page: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page returned non-200 status: %s", resp.Status)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not parse page: %w", err)
	}

	title, text := extractText(doc)
	if text == "" {
		return nil, nil
	}
	text = utils.TruncateString(text, maxPageChars)

	return []Result{{Title: title, URL: pageURL, Content: text}}, nil
}

// extractText walks the parsed document collecting visible text, skipping
// script/style/nav chrome.
func extractText(doc *html.Node) (title, text string) {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "nav", "footer", "header", "noscript":
				return
			case "title":
				if title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
				return
			}
		}
		if n.Type == html.TextNode {
			t := strings.TrimSpace(n.Data)
			if t != "" {
				if buf.Len() > 0 {
					buf.WriteString(" ")
				}
				buf.WriteString(t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return title, buf.String()
}
