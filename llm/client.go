// Package llm wraps the chat-completion providers behind a single factory.
package llm

import (
	"fmt"

	"github.com/EasterCompany/dex-assistant-service/config"
	"github.com/EasterCompany/dex-assistant-service/interfaces"
)

// New builds the chat provider selected by configuration. The returned value
// is one of the concrete variants in this package; callers that want
// incremental output can type-assert to interfaces.StreamingChatProvider.
func New(cfg config.ProviderConfig, persona *interfaces.Persona) (interfaces.ChatProvider, error) {
	systemPrompt, err := createSystemMessage(persona)
	if err != nil {
		return nil, fmt.Errorf("failed to create system message: %w", err)
	}

	switch cfg.Name {
	case "", "ollama":
		return NewOllama(cfg.OllamaURL, cfg.OllamaModel, systemPrompt), nil
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("openai provider selected but no API key configured")
		}
		return NewOpenAI(cfg.OpenAIKey, cfg.OpenAIModel, systemPrompt), nil
	case "anthropic":
		if cfg.AnthropicKey == "" {
			return nil, fmt.Errorf("anthropic provider selected but no API key configured")
		}
		return NewAnthropic(cfg.AnthropicKey, cfg.AnthropicModel, systemPrompt), nil
	default:
		return nil, fmt.Errorf("unknown chat provider %q", cfg.Name)
	}
}

// withSystem prepends the system prompt to a message history.
func withSystem(systemPrompt string, messages []interfaces.Message) []interfaces.Message {
	if systemPrompt == "" {
		return messages
	}
	out := make([]interfaces.Message, 0, len(messages)+1)
	out = append(out, interfaces.Message{Role: "system", Content: systemPrompt})
	return append(out, messages...)
}
