// Package gateway exposes the assistant over a WebSocket connection per
// client.
package gateway

import "encoding/json"

// Envelope is the wire frame for every gateway event, in both directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Inbound event types.
const (
	EventChat         = "chat"
	EventAudio        = "audio"
	EventReadStart    = "read_start"
	EventReadPlay     = "read_play"
	EventReadPause    = "read_pause"
	EventReadStop     = "read_stop"
	EventReadNext     = "read_next"
	EventReadPrev     = "read_prev"
	EventReadSeek     = "read_seek"
	EventReadProgress = "read_progress"
	EventReadEnd      = "read_end"
	EventChunkDone    = "chunk_done"
)

// Outbound event types.
const (
	EventChatDelta    = "chat_delta"
	EventChatResponse = "chat_response"
	EventTranscript   = "transcript"
	EventReadChunk    = "read_chunk"
	EventReadAudio    = "read_audio"
	EventReadComplete = "read_complete"
	EventError        = "error"
	EventReady        = "ready"
)

// ChatRequest asks the assistant a question.
type ChatRequest struct {
	Text string `json:"text"`
}

// AudioClip carries a complete recorded utterance. Audio is base64 on the
// wire via encoding/json's []byte handling.
type AudioClip struct {
	Audio []byte `json:"audio"`
}

// ReadStartRequest opens a reading session over the supplied text.
type ReadStartRequest struct {
	Text         string `json:"text"`
	Source       string `json:"source"`
	MaxChunkSize int    `json:"max_chunk_size"`
}

// SeekRequest jumps to an absolute chunk index.
type SeekRequest struct {
	Index int `json:"index"`
}

// ChatPayload carries assistant text back to the client.
type ChatPayload struct {
	Text string `json:"text"`
}

// TranscriptPayload carries the recognized text of an audio clip.
type TranscriptPayload struct {
	Text string `json:"text"`
}

// ChunkPayload carries one reading chunk to the client.
type ChunkPayload struct {
	Index int    `json:"index"`
	Total int    `json:"total"`
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// AudioPayload carries synthesized audio for a chunk.
type AudioPayload struct {
	Index int    `json:"index"`
	Audio []byte `json:"audio"`
}

// ErrorPayload reports a handler failure to the client.
type ErrorPayload struct {
	Message string `json:"message"`
}

// ReadyPayload is sent once when a client connects.
type ReadyPayload struct {
	ClientID string `json:"client_id"`
}

// mustEnvelope marshals a payload into an envelope. Marshal failures cannot
// happen for our own payload types, so they degrade to an empty data field.
func mustEnvelope(eventType string, payload any) Envelope {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{Type: eventType}
	}
	return Envelope{Type: eventType, Data: data}
}
