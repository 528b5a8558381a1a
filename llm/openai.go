package llm

import (
	"context"
	"fmt"

	"github.com/EasterCompany/dex-assistant-service/interfaces"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIClient wraps the OpenAI chat completions API.
type OpenAIClient struct {
	client       openai.Client
	model        string
	systemPrompt string
}

// NewOpenAI creates an OpenAI provider.
func NewOpenAI(apiKey, model, systemPrompt string) *OpenAIClient {
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	return &OpenAIClient{
		client:       openai.NewClient(option.WithAPIKey(apiKey)),
		model:        model,
		systemPrompt: systemPrompt,
	}
}

func (c *OpenAIClient) Name() string { return "openai" }

// Complete runs a full completion over the message history.
func (c *OpenAIClient) Complete(ctx context.Context, messages []interfaces.Message) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages: c.convert(messages),
		Model:    c.model,
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

// convert maps internal messages onto the SDK's union params.
func (c *OpenAIClient) convert(messages []interfaces.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if c.systemPrompt != "" {
		out = append(out, openai.SystemMessage(c.systemPrompt))
	}
	for _, m := range messages {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
