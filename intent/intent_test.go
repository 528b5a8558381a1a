package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect_ExplicitPrefixes(t *testing.T) {
	tests := []struct {
		input string
		tool  Tool
		query string
	}{
		{"search: weather in Tokyo", ToolSearch, "weather in Tokyo"},
		{"Search: weather in Tokyo", ToolSearch, "weather in Tokyo"},
		{"docs: redis pipelines", ToolDocs, "redis pipelines"},
		{"browse: https://example.com", ToolBrowse, "https://example.com"},
		{"  search:   padded   ", ToolSearch, "padded"},
	}

	for _, tt := range tests {
		m := Detect(tt.input)
		assert.Equal(t, tt.tool, m.Tool, tt.input)
		assert.Equal(t, tt.query, m.Query, tt.input)
	}
}

func TestDetect_PatternKeepsFullText(t *testing.T) {
	m := Detect("can you look up the population of Norway")
	assert.Equal(t, ToolSearch, m.Tool)
	assert.Equal(t, "can you look up the population of Norway", m.Query)

	m = Detect("where is the documentation for discordgo")
	assert.Equal(t, ToolDocs, m.Tool)

	m = Detect("check https://example.com/changelog for me")
	assert.Equal(t, ToolBrowse, m.Tool)
}

func TestDetect_PrefixBeatsPattern(t *testing.T) {
	// The body mentions docs, but the explicit prefix decides the tool.
	m := Detect("search: where are the docs for redis")
	assert.Equal(t, ToolSearch, m.Tool)
	assert.Equal(t, "where are the docs for redis", m.Query)
}

func TestDetect_FirstPatternWins(t *testing.T) {
	// "search" and "documentation" both appear; the search rule sits earlier
	// in the table so it wins.
	m := Detect("search the documentation for chunked uploads")
	assert.Equal(t, ToolSearch, m.Tool)
}

func TestDetect_NoTrigger(t *testing.T) {
	m := Detect("tell me a joke about goroutines")
	assert.Equal(t, ToolNone, m.Tool)
	assert.Equal(t, "tell me a joke about goroutines", m.Query)
}

func TestDetect_EmptyInput(t *testing.T) {
	m := Detect("   ")
	assert.Equal(t, ToolNone, m.Tool)
	assert.Equal(t, "", m.Query)
}
