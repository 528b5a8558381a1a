package interfaces

import "context"

// Synthesizer is the interface for the text-to-speech module.
type Synthesizer interface {
	// Synthesize renders text as encoded audio using the given voice.
	// An empty voice selects the engine default.
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}
