package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/EasterCompany/dex-assistant-service/interfaces"
)

// OllamaClient talks to a local Ollama server over its chat API.
type OllamaClient struct {
	httpClient   *http.Client
	URL          string
	Model        string
	SystemPrompt string
}

// NewOllama creates an Ollama provider. Empty url/model fall back to the
// local defaults.
func NewOllama(url, model, systemPrompt string) *OllamaClient {
	if url == "" {
		url = "http://localhost:11434/api/chat"
	}
	if model == "" {
		model = "dolphin3:latest"
	}
	return &OllamaClient{
		httpClient:   &http.Client{},
		URL:          url,
		Model:        model,
		SystemPrompt: systemPrompt,
	}
}

func (c *OllamaClient) Name() string { return "ollama" }

type ollamaRequest struct {
	Model    string               `json:"model"`
	Messages []interfaces.Message `json:"messages"`
	Stream   bool                 `json:"stream"`
}

type ollamaResponse struct {
	Model     string             `json:"model"`
	CreatedAt time.Time          `json:"created_at"`
	Message   interfaces.Message `json:"message"`
	Done      bool               `json:"done"`
}

// Complete runs a full, non-streaming completion.
func (c *OllamaClient) Complete(ctx context.Context, messages []interfaces.Message) (string, error) {
	body, err := c.send(ctx, messages, false)
	if err != nil {
		return "", err
	}
	defer func() { _ = body.Close() }()

	var resp ollamaResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return "", fmt.Errorf("failed to decode ollama response: %w", err)
	}
	return resp.Message.Content, nil
}

// StreamComplete streams the completion, calling onDelta for each content
// fragment, and returns the full response.
func (c *OllamaClient) StreamComplete(ctx context.Context, messages []interfaces.Message, onDelta func(string)) (string, error) {
	body, err := c.send(ctx, messages, true)
	if err != nil {
		return "", err
	}
	defer func() { _ = body.Close() }()

	reader := bufio.NewReader(body)
	var full strings.Builder
	for {
		line, err := reader.ReadBytes('\n')
		if err == io.EOF {
			break
		}
		if err != nil {
			return full.String(), fmt.Errorf("error reading ollama stream: %w", err)
		}

		var streamResp ollamaResponse
		if err := json.Unmarshal(line, &streamResp); err != nil {
			continue
		}
		if streamResp.Message.Content != "" {
			full.WriteString(streamResp.Message.Content)
			if onDelta != nil {
				onDelta(streamResp.Message.Content)
			}
		}
		if streamResp.Done {
			break
		}
	}
	return full.String(), nil
}

// send posts the chat request and returns the response body.
func (c *OllamaClient) send(ctx context.Context, messages []interfaces.Message, stream bool) (io.ReadCloser, error) {
	request := ollamaRequest{
		Model:    c.Model,
		Messages: withSystem(c.SystemPrompt, messages),
		Stream:   stream,
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to ollama: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, fmt.Errorf("ollama returned non-200 status: %s, body: %s", resp.Status, string(body))
	}

	return resp.Body, nil
}
