// Package tts renders text as audio through a local speech synthesis server.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to a Coqui-style TTS HTTP server. The concrete engine behind
// the endpoint is interchangeable; the service only needs encoded audio back.
type Client struct {
	httpClient   *http.Client
	URL          string
	DefaultVoice string
}

// NewClient creates a synthesis client. An empty url falls back to the local
// default.
func NewClient(url, defaultVoice string) *Client {
	if url == "" {
		url = "http://localhost:5002/api/tts"
	}
	return &Client{
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		URL:          url,
		DefaultVoice: defaultVoice,
	}
}

type synthesisRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

// Synthesize renders text with the given voice and returns the encoded audio.
func (c *Client) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("no text to synthesize")
	}
	if voice == "" {
		voice = c.DefaultVoice
	}

	payload, err := json.Marshal(synthesisRequest{Text: text, Voice: voice})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal synthesis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach TTS server: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("TTS server returned non-200 status: %s, body: %s", resp.Status, string(body))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read synthesized audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("TTS server returned empty audio")
	}
	return audio, nil
}
