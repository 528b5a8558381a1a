package interfaces

import (
	"context"
	"io"
)

// SpeechToText is the interface for the speech-to-text module.
type SpeechToText interface {
	// Transcribe converts a complete audio clip into text.
	Transcribe(ctx context.Context, audioData []byte) (string, error)
	// StreamingTranscribe reads audio from reader and sends interim
	// transcripts through transcriptChan until the stream ends.
	StreamingTranscribe(ctx context.Context, reader io.Reader, transcriptChan chan<- string, errChan chan<- error)
}
