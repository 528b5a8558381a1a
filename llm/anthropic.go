package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/EasterCompany/dex-assistant-service/interfaces"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicMaxTokens = 2048

// AnthropicClient wraps the Anthropic messages API.
type AnthropicClient struct {
	client       *anthropic.Client
	model        string
	systemPrompt string
}

// NewAnthropic creates an Anthropic provider.
func NewAnthropic(apiKey, model, systemPrompt string) *AnthropicClient {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	if model == "" {
		model = string(anthropic.ModelClaudeSonnet4_0)
	}
	return &AnthropicClient{
		client:       &client,
		model:        model,
		systemPrompt: systemPrompt,
	}
}

func (c *AnthropicClient) Name() string { return "anthropic" }

// Complete runs a full completion over the message history.
func (c *AnthropicClient) Complete(ctx context.Context, messages []interfaces.Message) (string, error) {
	var converted []anthropic.MessageParam
	var systemExtra []string
	for _, m := range messages {
		switch m.Role {
		case "assistant":
			converted = append(converted, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		case "system":
			// Anthropic takes system text out-of-band.
			systemExtra = append(systemExtra, m.Content)
		default:
			converted = append(converted, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: anthropicMaxTokens,
		Messages:  converted,
	}

	system := c.systemPrompt
	if len(systemExtra) > 0 {
		system = strings.TrimSpace(system + "\n" + strings.Join(systemExtra, "\n"))
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic completion: %w", err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if textBlock, ok := block.AsAny().(anthropic.TextBlock); ok {
			out.WriteString(textBlock.Text)
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("empty anthropic response")
	}
	return out.String(), nil
}
