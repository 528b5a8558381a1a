package events

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/EasterCompany/dex-assistant-service/reading"
	"github.com/EasterCompany/dex-assistant-service/worker"
)

const (
	minChunkPause  = 2 * time.Second
	maxChunkPause  = 30 * time.Second
	synthesisWait  = 60 * time.Second
	wordsPerSecond = 3
)

// startPlayback launches the playback loop for a channel unless one is
// already running. voice is the TTS voice for this run of the loop.
func (h *Handler) startPlayback(s *discordgo.Session, channelID, voice string) {
	cancel := make(chan struct{})
	if _, running := h.playbacks.LoadOrStore(sessionKey(channelID), cancel); running {
		return
	}
	go h.playLoop(s, channelID, voice, cancel)
}

// stopPlayback interrupts a running playback loop, if any.
func (h *Handler) stopPlayback(channelID string) {
	if value, ok := h.playbacks.LoadAndDelete(sessionKey(channelID)); ok {
		close(value.(chan struct{}))
	}
}

// playLoop posts chunks one at a time while the session stays in the playing
// state. Each chunk is synthesized through the worker pool and attached as
// audio; the pacing pause keeps the channel readable.
func (h *Handler) playLoop(s *discordgo.Session, channelID, voice string, cancel chan struct{}) {
	key := sessionKey(channelID)
	// A quick stop/start cycle can register a newer loop under the same key
	// before this one unwinds; only remove our own cancel channel.
	defer h.playbacks.CompareAndDelete(key, cancel)

	for {
		session, err := h.Reading.Get(key)
		if err != nil {
			return
		}
		if session.GetState() != reading.StatePlaying {
			return
		}
		chunk, ok := session.Current()
		if !ok {
			return
		}

		progress := session.Progress()
		h.postChunk(s, channelID, progress, chunk.Text)
		h.speakChunk(s, channelID, key, progress.Index, chunk.Text, voice)

		select {
		case <-cancel:
			return
		case <-time.After(chunkPause(chunk.Text)):
		}

		_, advanced, completed := session.ChunkFinished()
		h.persistSession(session)
		if completed {
			h.reply(s, channelID, "Finished reading.")
			return
		}
		if !advanced {
			return
		}
	}
}

// speakChunk synthesizes a chunk on the worker pool and posts the audio as an
// attachment. Synthesis failures are logged by the job; playback continues
// with text only.
func (h *Handler) speakChunk(s *discordgo.Session, channelID, sessionID string, index int, text, voice string) {
	if h.TTS == nil {
		return
	}
	if voice == "" {
		voice = h.Assistant.TTSVoice
	}

	done := make(chan []byte, 1)
	job := worker.SynthesisJob{
		Ctx:        context.Background(),
		SessionID:  sessionID,
		ChunkIndex: index,
		Text:       text,
		Voice:      voice,
		TTS:        h.TTS,
		DB:         h.DB,
		AudioTTL:   time.Duration(h.Assistant.AudioTTLMinutes) * time.Minute,
		Logger:     h.Logger,
		OnAudio: func(_ string, _ int, audio []byte) {
			done <- audio
		},
		OnError: func(_ string, _ int, _ error) {
			close(done)
		},
	}
	if !h.Pool.Submit(job) {
		return
	}

	select {
	case audio, ok := <-done:
		if !ok || len(audio) == 0 {
			return
		}
		name := fmt.Sprintf("chunk-%03d.ogg", index+1)
		if _, err := s.ChannelFileSend(channelID, name, bytes.NewReader(audio)); err != nil {
			h.Logger.Error(fmt.Sprintf("posting audio for chunk %d in %s", index, channelID), err)
		}
	case <-time.After(synthesisWait):
	}
}

// chunkPause estimates how long a chunk takes to read aloud.
func chunkPause(text string) time.Duration {
	pause := time.Duration(len(strings.Fields(text))/wordsPerSecond) * time.Second
	if pause < minChunkPause {
		return minChunkPause
	}
	if pause > maxChunkPause {
		return maxChunkPause
	}
	return pause
}
