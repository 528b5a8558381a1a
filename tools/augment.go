package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/EasterCompany/dex-assistant-service/intent"
	logger "github.com/EasterCompany/dex-assistant-service/log"
	"github.com/EasterCompany/dex-assistant-service/utils"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxContextChars bounds the fetched context appended to a prompt.
const DefaultMaxContextChars = 4000

const defaultCacheSize = 256

// Augmenter rewrites prompts with external tool context. Fetch failures and
// empty results leave the prompt untouched so the chat flow never blocks on a
// tool provider.
type Augmenter struct {
	fetchers   map[intent.Tool]Fetcher
	cache      *lru.Cache[string, []Result]
	maxContext int
	logger     logger.Logger
}

// NewAugmenter builds an augmenter over the given fetchers. maxContext caps
// the appended context in characters; cacheSize bounds the shared result
// cache (both fall back to defaults when non-positive).
func NewAugmenter(fetchers map[intent.Tool]Fetcher, maxContext, cacheSize int, log logger.Logger) (*Augmenter, error) {
	if maxContext <= 0 {
		maxContext = DefaultMaxContextChars
	}
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, err := lru.New[string, []Result](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("could not create result cache: %w", err)
	}
	return &Augmenter{
		fetchers:   fetchers,
		cache:      cache,
		maxContext: maxContext,
		logger:     log,
	}, nil
}

// Augment fetches context for the matched tool and appends it to prompt
// under a fixed template. Any failure returns the original prompt unchanged.
func (a *Augmenter) Augment(ctx context.Context, match intent.Match, prompt string) string {
	if match.Tool == intent.ToolNone {
		return prompt
	}
	fetcher, ok := a.fetchers[match.Tool]
	if !ok {
		return prompt
	}

	results := a.fetch(ctx, fetcher, match)
	if len(results) == 0 {
		return prompt
	}

	context := utils.TruncateString(formatResults(results), a.maxContext)

	return fmt.Sprintf("%s\n\n--- External context (%s: %s) ---\n%s\n--- End context ---",
		prompt, match.Tool, match.Query, context)
}

// fetch consults the shared cache before hitting the tool provider.
func (a *Augmenter) fetch(ctx context.Context, fetcher Fetcher, match intent.Match) []Result {
	cacheKey := string(match.Tool) + ":" + match.Query
	if cached, ok := a.cache.Get(cacheKey); ok {
		return cached
	}

	results, err := fetcher.Fetch(ctx, match.Query)
	if err != nil {
		if a.logger != nil {
			a.logger.Error(fmt.Sprintf("fetching %s context for %q", fetcher.Name(), match.Query), err)
		}
		return nil
	}
	if len(results) > 0 {
		a.cache.Add(cacheKey, results)
	}
	return results
}

// formatResults renders fetched results as plain text blocks.
func formatResults(results []Result) string {
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if r.Title != "" {
			b.WriteString(r.Title)
			b.WriteString("\n")
		}
		if r.URL != "" {
			b.WriteString(r.URL)
			b.WriteString("\n")
		}
		b.WriteString(r.Content)
	}
	return b.String()
}
