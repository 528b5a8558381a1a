// Package reading tracks per-client playback sessions over chunked text.
package reading

import (
	"fmt"
	"sync"
	"time"

	"github.com/EasterCompany/dex-assistant-service/chunker"
)

// State is the playback state of a reading session.
type State string

const (
	StateStopped State = "stopped"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
)

// Session holds one client's position and playback state through a chunked
// text. A session is driven by a single client, so the mutex only guards
// against the hosting transport touching it from its own goroutines.
type Session struct {
	Mutex     sync.Mutex      `json:"-"`
	ID        string          `json:"id"`
	Source    string          `json:"source"`
	Chunks    []chunker.Chunk `json:"chunks"`
	Index     int             `json:"index"`
	State     State           `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
}

// Progress is a snapshot of where a session is, suitable for sending to the
// client as-is.
type Progress struct {
	Index   int     `json:"index"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
	Text    string  `json:"text"`
	State   State   `json:"state"`
}

// Current returns the chunk at the session's current index.
func (s *Session) Current() (chunker.Chunk, bool) {
	s.Mutex.Lock()
	defer s.Mutex.Unlock()
	if len(s.Chunks) == 0 {
		return chunker.Chunk{}, false
	}
	return s.Chunks[s.Index], true
}

// Next advances to the following chunk. At the last chunk it returns false
// and leaves the index untouched.
func (s *Session) Next() (chunker.Chunk, bool) {
	s.Mutex.Lock()
	defer s.Mutex.Unlock()
	if s.Index+1 >= len(s.Chunks) {
		return chunker.Chunk{}, false
	}
	s.Index++
	return s.Chunks[s.Index], true
}

// Previous steps back to the preceding chunk. At the first chunk it returns
// false and leaves the index untouched.
func (s *Session) Previous() (chunker.Chunk, bool) {
	s.Mutex.Lock()
	defer s.Mutex.Unlock()
	if s.Index <= 0 {
		return chunker.Chunk{}, false
	}
	s.Index--
	return s.Chunks[s.Index], true
}

// Seek jumps to an absolute chunk index. An out-of-range index leaves the
// session unchanged.
func (s *Session) Seek(index int) error {
	s.Mutex.Lock()
	defer s.Mutex.Unlock()
	if index < 0 || index >= len(s.Chunks) {
		return fmt.Errorf("chunk index %d of %d: %w", index, len(s.Chunks), ErrIndexOutOfRange)
	}
	s.Index = index
	return nil
}

// SetState transitions the playback state.
func (s *Session) SetState(state State) {
	s.Mutex.Lock()
	defer s.Mutex.Unlock()
	s.State = state
}

// GetState returns the current playback state.
func (s *Session) GetState() State {
	s.Mutex.Lock()
	defer s.Mutex.Unlock()
	return s.State
}

// ChunkFinished is the auto-advance signal, fired when synthesis for the
// current chunk completes or the client acknowledges playback. While playing
// it moves to the next chunk; finishing the last chunk stops the session and
// reports completion. The signal is ignored outside the playing state.
func (s *Session) ChunkFinished() (next chunker.Chunk, ok bool, completed bool) {
	s.Mutex.Lock()
	defer s.Mutex.Unlock()
	if s.State != StatePlaying {
		return chunker.Chunk{}, false, false
	}
	if s.Index+1 >= len(s.Chunks) {
		s.State = StateStopped
		return chunker.Chunk{}, false, true
	}
	s.Index++
	return s.Chunks[s.Index], true, false
}

// Snapshot copies the session under its mutex. Persisting a live session
// must marshal the copy, not the original, as playback goroutines keep
// mutating Index and State.
func (s *Session) Snapshot() Session {
	s.Mutex.Lock()
	defer s.Mutex.Unlock()
	return Session{
		ID:        s.ID,
		Source:    s.Source,
		Chunks:    s.Chunks,
		Index:     s.Index,
		State:     s.State,
		CreatedAt: s.CreatedAt,
	}
}

// Progress reports the session's position as a client-facing snapshot.
func (s *Session) Progress() Progress {
	s.Mutex.Lock()
	defer s.Mutex.Unlock()
	p := Progress{
		Index: s.Index,
		Total: len(s.Chunks),
		State: s.State,
	}
	if p.Total > 0 {
		p.Text = s.Chunks[s.Index].Text
		p.Percent = float64(s.Index+1) / float64(p.Total) * 100
	}
	return p
}
