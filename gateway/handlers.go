package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/EasterCompany/dex-assistant-service/cache"
	"github.com/EasterCompany/dex-assistant-service/chunker"
	"github.com/EasterCompany/dex-assistant-service/intent"
	"github.com/EasterCompany/dex-assistant-service/interfaces"
	"github.com/EasterCompany/dex-assistant-service/reading"
	"github.com/EasterCompany/dex-assistant-service/utils"
	"github.com/EasterCompany/dex-assistant-service/worker"
)

const (
	chatHistoryLimit = 20
	chatTimeout      = 2 * time.Minute
	sttTimeout       = 30 * time.Second
)

func historyKey(clientID string) string {
	return "gateway:" + clientID
}

// handleChat runs the full assistant pipeline for one text message. The
// completion runs off the read loop so playback control stays responsive
// while the provider thinks.
func (s *Server) handleChat(c *Client, env Envelope) {
	var req ChatRequest
	if err := json.Unmarshal(env.Data, &req); err != nil {
		c.sendError("could not parse chat request")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		c.sendError("empty message")
		return
	}
	go s.runChat(c, text)
}

func (s *Server) runChat(c *Client, text string) {
	defer func() {
		if r := recover(); r != nil {
			s.Logger.Error("chat pipeline panicked", fmt.Errorf("%v", r))
			c.sendError("internal error")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), chatTimeout)
	defer cancel()

	match := intent.Detect(text)
	prompt := text
	if s.Augmenter != nil {
		prompt = s.Augmenter.Augment(ctx, match, text)
	}

	messages := s.loadHistory(c.ID)
	messages = append(messages, interfaces.Message{Role: "user", Content: prompt})

	var reply string
	var err error
	if streamer, ok := s.Provider.(interfaces.StreamingChatProvider); ok {
		reply, err = streamer.StreamComplete(ctx, messages, func(delta string) {
			c.Send(mustEnvelope(EventChatDelta, ChatPayload{Text: delta}))
		})
	} else {
		reply, err = s.Provider.Complete(ctx, messages)
	}
	if err != nil {
		s.Logger.Error(fmt.Sprintf("completing chat for client %s", c.ID), err)
		c.sendError("the assistant could not respond, try again")
		return
	}

	c.Send(mustEnvelope(EventChatResponse, ChatPayload{Text: reply}))
	utils.IncrementEventsSent()
	s.saveTurn(c.ID, text, reply)
}

// loadHistory rebuilds the provider message history from the cache. The
// stored entries hold the user's original text, not the augmented prompt.
func (s *Server) loadHistory(clientID string) []interfaces.Message {
	if s.DB == nil {
		return nil
	}
	entries, err := s.DB.GetHistory(historyKey(clientID), chatHistoryLimit)
	if err != nil {
		s.Logger.Error(fmt.Sprintf("loading history for %s", clientID), err)
		return nil
	}
	messages := make([]interfaces.Message, 0, len(entries))
	for _, e := range entries {
		messages = append(messages, interfaces.Message{Role: e.Role, Content: e.Content})
	}
	return messages
}

func (s *Server) saveTurn(clientID, userText, reply string) {
	if s.DB == nil {
		return
	}
	key := historyKey(clientID)
	now := time.Now()
	turns := []cache.HistoryEntry{
		{Role: "user", Author: clientID, Content: userText, Timestamp: now},
		{Role: "assistant", Author: s.Provider.Name(), Content: reply, Timestamp: now},
	}
	for _, t := range turns {
		if err := s.DB.AddHistoryEntry(key, t); err != nil {
			s.Logger.Error(fmt.Sprintf("saving history for %s", clientID), err)
			return
		}
	}
}

// handleAudio transcribes a recorded utterance and feeds the transcript into
// the chat pipeline.
func (s *Server) handleAudio(c *Client, env Envelope) {
	if s.STT == nil {
		c.sendError("speech recognition is not configured")
		return
	}
	var clip AudioClip
	if err := json.Unmarshal(env.Data, &clip); err != nil {
		c.sendError("could not parse audio clip")
		return
	}
	if len(clip.Audio) == 0 {
		c.sendError("empty audio clip")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sttTimeout)
	job := worker.TranscriptionJob{
		Ctx:      ctx,
		ClientID: c.ID,
		Audio:    clip.Audio,
		STT:      s.STT,
		Logger:   s.Logger,
		OnTranscript: func(clientID, transcript string) {
			defer cancel()
			c.Send(mustEnvelope(EventTranscript, TranscriptPayload{Text: transcript}))
			s.runChat(c, transcript)
		},
		OnError: func(clientID string, err error) {
			defer cancel()
			c.sendError(err.Error())
		},
	}
	if !s.Pool.Submit(job) {
		cancel()
		c.sendError("transcription queue is full, try again")
	}
}

func (s *Server) handleReadStart(c *Client, env Envelope) {
	var req ReadStartRequest
	if err := json.Unmarshal(env.Data, &req); err != nil {
		c.sendError("could not parse read request")
		return
	}

	session, err := s.Reading.Create(c.ID, req.Source, req.Text, req.MaxChunkSize)
	if err != nil {
		switch {
		case errors.Is(err, reading.ErrEmptyText):
			c.sendError("nothing to read")
		case errors.Is(err, reading.ErrTextTooLarge):
			c.sendError("text is too large to read")
		default:
			s.Logger.Error(fmt.Sprintf("creating reading session for %s", c.ID), err)
			c.sendError("could not start reading")
		}
		return
	}

	s.persistSession(session)
	s.sendProgress(c, session)
}

func (s *Server) handleReadPlay(c *Client, env Envelope) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	session.SetState(reading.StatePlaying)
	s.persistSession(session)
	if chunk, ok := session.Current(); ok {
		s.deliverChunk(c, session, chunk)
	}
	s.sendProgress(c, session)
}

func (s *Server) handleReadPause(c *Client, env Envelope) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	if session.GetState() != reading.StatePlaying {
		c.sendError("nothing is playing")
		return
	}
	session.SetState(reading.StatePaused)
	s.persistSession(session)
	s.sendProgress(c, session)
}

func (s *Server) handleReadStop(c *Client, env Envelope) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	session.SetState(reading.StateStopped)
	s.persistSession(session)
	s.sendProgress(c, session)
}

func (s *Server) handleReadNext(c *Client, env Envelope) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	chunk, ok := session.Next()
	if !ok {
		c.sendError("already at the last chunk")
		return
	}
	s.persistSession(session)
	s.deliverChunk(c, session, chunk)
	s.sendProgress(c, session)
}

func (s *Server) handleReadPrev(c *Client, env Envelope) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	chunk, ok := session.Previous()
	if !ok {
		c.sendError("already at the first chunk")
		return
	}
	s.persistSession(session)
	s.deliverChunk(c, session, chunk)
	s.sendProgress(c, session)
}

func (s *Server) handleReadSeek(c *Client, env Envelope) {
	var req SeekRequest
	if err := json.Unmarshal(env.Data, &req); err != nil {
		c.sendError("could not parse seek request")
		return
	}
	session, ok := s.session(c)
	if !ok {
		return
	}
	if err := session.Seek(req.Index); err != nil {
		c.sendError(fmt.Sprintf("chunk %d is out of range", req.Index))
		return
	}
	s.persistSession(session)
	if chunk, ok := session.Current(); ok {
		s.deliverChunk(c, session, chunk)
	}
	s.sendProgress(c, session)
}

func (s *Server) handleReadProgress(c *Client, env Envelope) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	s.sendProgress(c, session)
}

func (s *Server) handleReadEnd(c *Client, env Envelope) {
	s.Reading.Delete(c.ID)
	if s.DB != nil {
		if err := s.DB.DeleteReadingSession(c.ID); err != nil {
			s.Logger.Error(fmt.Sprintf("deleting reading session for %s", c.ID), err)
		}
	}
}

// handleChunkDone is the client's signal that the current chunk finished
// playing. Auto-advance only happens while the session is in the playing
// state; a pause or stop that raced the signal wins.
func (s *Server) handleChunkDone(c *Client, env Envelope) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	next, advanced, completed := session.ChunkFinished()
	s.persistSession(session)
	if completed {
		c.Send(mustEnvelope(EventReadComplete, session.Progress()))
		return
	}
	if advanced {
		s.deliverChunk(c, session, next)
		s.sendProgress(c, session)
	}
}

func (s *Server) session(c *Client) (*reading.Session, bool) {
	session, err := s.Reading.Get(c.ID)
	if err != nil {
		c.sendError("no reading session, send read_start first")
		return nil, false
	}
	return session, true
}

// deliverChunk sends the chunk text immediately and follows up with audio,
// served from the cache when a previous pass already synthesized it.
func (s *Server) deliverChunk(c *Client, session *reading.Session, chunk chunker.Chunk) {
	progress := session.Progress()
	c.Send(mustEnvelope(EventReadChunk, ChunkPayload{
		Index: progress.Index,
		Total: progress.Total,
		Text:  chunk.Text,
		Start: chunk.Start,
		End:   chunk.End,
	}))
	utils.IncrementEventsSent()

	if s.TTS == nil {
		return
	}

	index := progress.Index
	if s.DB != nil {
		key := fmt.Sprintf("%s:%d", session.ID, index)
		if audio, err := s.DB.LoadAudio(key); err == nil && len(audio) > 0 {
			c.Send(mustEnvelope(EventReadAudio, AudioPayload{Index: index, Audio: audio}))
			return
		}
	}

	job := worker.SynthesisJob{
		Ctx:        context.Background(),
		SessionID:  session.ID,
		ChunkIndex: index,
		Text:       chunk.Text,
		Voice:      s.Voice,
		TTS:        s.TTS,
		DB:         s.DB,
		AudioTTL:   s.AudioTTL,
		Logger:     s.Logger,
		OnAudio: func(sessionID string, chunkIndex int, audio []byte) {
			c.Send(mustEnvelope(EventReadAudio, AudioPayload{Index: chunkIndex, Audio: audio}))
		},
		OnError: func(sessionID string, chunkIndex int, err error) {
			c.sendError(fmt.Sprintf("could not synthesize chunk %d", chunkIndex))
		},
	}
	if !s.Pool.Submit(job) {
		c.sendError("synthesis queue is full")
	}
}

func (s *Server) sendProgress(c *Client, session *reading.Session) {
	c.Send(mustEnvelope(EventReadProgress, session.Progress()))
}

func (s *Server) persistSession(session *reading.Session) {
	if s.DB == nil {
		return
	}
	if err := s.DB.SaveReadingSession(session); err != nil {
		s.Logger.Error(fmt.Sprintf("persisting reading session %s", session.ID), err)
	}
}
