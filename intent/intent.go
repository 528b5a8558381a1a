// Package intent classifies a user utterance into at most one external tool
// category and extracts the residual query text.
package intent

import (
	"regexp"
	"strings"
)

// Tool identifies the external capability a message should be routed to.
type Tool string

const (
	ToolSearch Tool = "search"
	ToolDocs   Tool = "docs"
	ToolBrowse Tool = "browse"
	ToolNone   Tool = "none"
)

// Match is the result of classifying a single message. Query holds the text
// to hand to the tool: the remainder after an explicit prefix, or the full
// message when a pattern matched instead.
type Match struct {
	Tool  Tool   `json:"tool"`
	Query string `json:"query"`
}

// prefixRule maps an explicit command prefix to its tool.
type prefixRule struct {
	prefix string
	tool   Tool
}

// patternRule maps a trigger pattern to its tool.
type patternRule struct {
	pattern *regexp.Regexp
	tool    Tool
}

// Rules are evaluated in declaration order and the first match wins. The
// ordering is load-bearing: overlapping patterns resolve by position in this
// table, and explicit prefixes always beat patterns.
var (
	prefixRules = []prefixRule{
		{"search:", ToolSearch},
		{"docs:", ToolDocs},
		{"browse:", ToolBrowse},
	}

	patternRules = []patternRule{
		{regexp.MustCompile(`(?i)\b(search|google|look up|find out)\b`), ToolSearch},
		{regexp.MustCompile(`(?i)\b(documentation|docs for|api reference|library docs)\b`), ToolDocs},
		{regexp.MustCompile(`(?i)\b(browse|open (the )?page|fetch (the )?url|read (the )?website)\b`), ToolBrowse},
		{regexp.MustCompile(`(?i)https?://\S+`), ToolBrowse},
	}
)

// Detect classifies text. Explicit prefixes are checked first, then the
// pattern table in fixed order. Text with no trigger yields ToolNone with the
// full text as query.
func Detect(text string) Match {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	for _, rule := range prefixRules {
		if strings.HasPrefix(lower, rule.prefix) {
			return Match{
				Tool:  rule.tool,
				Query: strings.TrimSpace(trimmed[len(rule.prefix):]),
			}
		}
	}

	for _, rule := range patternRules {
		if rule.pattern.MatchString(trimmed) {
			return Match{Tool: rule.tool, Query: trimmed}
		}
	}

	return Match{Tool: ToolNone, Query: trimmed}
}
