package tools

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/EasterCompany/dex-assistant-service/intent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	results []Result
	err     error
	calls   int
}

func (f *fakeFetcher) Name() string { return "fake" }

func (f *fakeFetcher) Fetch(ctx context.Context, query string) ([]Result, error) {
	f.calls++
	return f.results, f.err
}

func newTestAugmenter(t *testing.T, f Fetcher, maxContext int) *Augmenter {
	t.Helper()
	a, err := NewAugmenter(map[intent.Tool]Fetcher{intent.ToolSearch: f}, maxContext, 8, nil)
	require.NoError(t, err)
	return a
}

func TestAugment_AppendsContext(t *testing.T) {
	fetcher := &fakeFetcher{results: []Result{
		{Title: "Tokyo Weather", URL: "https://example.com/w", Content: "Sunny, 24C."},
	}}
	a := newTestAugmenter(t, fetcher, 0)

	out := a.Augment(context.Background(), intent.Match{Tool: intent.ToolSearch, Query: "weather in Tokyo"}, "What's the weather?")

	assert.True(t, strings.HasPrefix(out, "What's the weather?"))
	assert.Contains(t, out, "External context (search: weather in Tokyo)")
	assert.Contains(t, out, "Tokyo Weather")
	assert.Contains(t, out, "Sunny, 24C.")
	assert.Contains(t, out, "--- End context ---")
}

func TestAugment_TruncationKeepsValidUTF8(t *testing.T) {
	fetcher := &fakeFetcher{results: []Result{
		{Content: strings.Repeat("東京の天気は晴れです。", 50)},
	}}
	a := newTestAugmenter(t, fetcher, 100)

	out := a.Augment(context.Background(), intent.Match{Tool: intent.ToolSearch, Query: "q"}, "prompt")

	assert.True(t, utf8.ValidString(out))
	assert.Contains(t, out, "東京の天気は晴れです。")
	assert.NotContains(t, out, string(utf8.RuneError))
}

func TestAugment_FailOpenOnError(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("provider down")}
	a := newTestAugmenter(t, fetcher, 0)

	out := a.Augment(context.Background(), intent.Match{Tool: intent.ToolSearch, Query: "q"}, "original prompt")
	assert.Equal(t, "original prompt", out)
}

func TestAugment_FailOpenOnEmptyResults(t *testing.T) {
	fetcher := &fakeFetcher{}
	a := newTestAugmenter(t, fetcher, 0)

	out := a.Augment(context.Background(), intent.Match{Tool: intent.ToolSearch, Query: "q"}, "original prompt")
	assert.Equal(t, "original prompt", out)
}

func TestAugment_NoneAndUnknownToolPassThrough(t *testing.T) {
	fetcher := &fakeFetcher{results: []Result{{Content: "stuff"}}}
	a := newTestAugmenter(t, fetcher, 0)

	out := a.Augment(context.Background(), intent.Match{Tool: intent.ToolNone, Query: "q"}, "prompt")
	assert.Equal(t, "prompt", out)
	assert.Zero(t, fetcher.calls)

	// No fetcher registered for docs.
	out = a.Augment(context.Background(), intent.Match{Tool: intent.ToolDocs, Query: "q"}, "prompt")
	assert.Equal(t, "prompt", out)
}

func TestAugment_TruncatesToBudget(t *testing.T) {
	fetcher := &fakeFetcher{results: []Result{{Content: strings.Repeat("z", 500)}}}
	a := newTestAugmenter(t, fetcher, 100)

	out := a.Augment(context.Background(), intent.Match{Tool: intent.ToolSearch, Query: "q"}, "p")

	assert.Contains(t, out, strings.Repeat("z", 100))
	assert.NotContains(t, out, strings.Repeat("z", 101))
}

func TestAugment_CachesResults(t *testing.T) {
	fetcher := &fakeFetcher{results: []Result{{Content: "cached"}}}
	a := newTestAugmenter(t, fetcher, 0)

	match := intent.Match{Tool: intent.ToolSearch, Query: "same query"}
	first := a.Augment(context.Background(), match, "p")
	second := a.Augment(context.Background(), match, "p")

	assert.Equal(t, first, second)
	assert.Equal(t, 1, fetcher.calls, "second call must be served from cache")
}

func TestAugment_ErrorsAreNotCached(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("flaky")}
	a := newTestAugmenter(t, fetcher, 0)

	match := intent.Match{Tool: intent.ToolSearch, Query: "q"}
	a.Augment(context.Background(), match, "p")

	fetcher.err = nil
	fetcher.results = []Result{{Content: "recovered"}}
	out := a.Augment(context.Background(), match, "p")

	assert.Contains(t, out, "recovered")
	assert.Equal(t, 2, fetcher.calls)
}
