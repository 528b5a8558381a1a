// Package stt transcribes client audio with Google Cloud Speech.
package stt

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
)

// STT wraps a Google Cloud Speech client.
type STT struct {
	client *speech.Client
}

// NewClient dials Google Cloud Speech using Application Default Credentials.
func NewClient() (*STT, error) {
	client, err := speech.NewClient(context.Background())
	if err != nil {
		return nil, fmt.Errorf("could not create speech client: %w", err)
	}
	return &STT{client: client}, nil
}

// Close releases the underlying gRPC connection.
func (s *STT) Close() {
	if s.client != nil {
		_ = s.client.Close()
	}
}

// recognitionConfig matches the audio the gateway accepts: ogg/opus frames
// at 48kHz, as produced by browser MediaRecorder clients.
func recognitionConfig() *speechpb.RecognitionConfig {
	return &speechpb.RecognitionConfig{
		Encoding:        speechpb.RecognitionConfig_OGG_OPUS,
		SampleRateHertz: 48000,
		LanguageCode:    "en-US",
	}
}

// Transcribe converts a complete audio clip into text. Results from all
// recognition segments are joined into a single trimmed transcript.
func (s *STT) Transcribe(ctx context.Context, audioData []byte) (string, error) {
	resp, err := s.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: recognitionConfig(),
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audioData},
		},
	})
	if err != nil {
		return "", fmt.Errorf("could not recognize audio: %w", err)
	}

	var out strings.Builder
	for _, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		out.WriteString(result.Alternatives[0].Transcript)
	}
	return strings.TrimSpace(out.String()), nil
}

// StreamingTranscribe pumps audio from reader into a streaming recognize
// session and forwards interim and final transcripts on transcriptChan.
// The channel is closed when the recognizer drains; failures go to errChan.
func (s *STT) StreamingTranscribe(ctx context.Context, reader io.Reader, transcriptChan chan<- string, errChan chan<- error) {
	stream, err := s.client.StreamingRecognize(ctx)
	if err != nil {
		errChan <- fmt.Errorf("could not open streaming recognize: %w", err)
		return
	}

	cfg := &speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config:         recognitionConfig(),
				InterimResults: true,
			},
		},
	}
	if err := stream.Send(cfg); err != nil {
		errChan <- fmt.Errorf("could not send streaming config: %w", err)
		return
	}

	go pumpAudio(stream, reader, errChan)

	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			errChan <- fmt.Errorf("could not receive streaming results: %w", err)
			return
		}
		if len(resp.Results) == 0 || len(resp.Results[0].Alternatives) == 0 {
			continue
		}
		transcriptChan <- resp.Results[0].Alternatives[0].Transcript
	}
	close(transcriptChan)
}

// pumpAudio copies reader into the recognize stream until EOF, then half
// closes so the recognizer can flush its final results.
func pumpAudio(stream speechpb.Speech_StreamingRecognizeClient, reader io.Reader, errChan chan<- error) {
	buf := make([]byte, 4096)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			req := &speechpb.StreamingRecognizeRequest{
				StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
					AudioContent: buf[:n],
				},
			}
			if sendErr := stream.Send(req); sendErr != nil {
				log.Printf("[STT] could not send audio frame: %v", sendErr)
			}
		}
		if err == io.EOF {
			if closeErr := stream.CloseSend(); closeErr != nil {
				log.Printf("[STT] could not close send side: %v", closeErr)
			}
			return
		}
		if err != nil {
			errChan <- err
			return
		}
	}
}
