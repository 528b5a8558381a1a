// Package interfaces defines interfaces for various application components.
package interfaces

import "context"

// Message is a single chat turn handed to a provider.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// ChatProvider is the interface for chat-completion backends. Concrete
// implementations live in the llm package; the factory there returns the
// variant selected by configuration.
type ChatProvider interface {
	// Name returns the provider identifier (e.g. "ollama", "openai").
	Name() string
	// Complete runs a full completion over the message history.
	Complete(ctx context.Context, messages []Message) (string, error)
}

// StreamingChatProvider is implemented by providers that can deliver the
// response incrementally. onDelta receives each content fragment in order.
type StreamingChatProvider interface {
	ChatProvider
	StreamComplete(ctx context.Context, messages []Message, onDelta func(string)) (string, error)
}

// Persona describes the assistant's identity, used to render the system
// prompt.
type Persona struct {
	Name        string   `json:"name"`
	Alias       []string `json:"alias"`
	Pronouns    string   `json:"pronouns"`
	Description string   `json:"description"`
	Tone        []string `json:"tone"`
	Formality   string   `json:"formality"`
	Verbosity   string   `json:"verbosity"`
}
