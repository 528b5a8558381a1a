package reading

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/EasterCompany/dex-assistant-service/chunker"
)

var (
	// ErrSessionNotFound is returned when no session exists for a client id.
	ErrSessionNotFound = errors.New("reading session not found")
	// ErrIndexOutOfRange is returned by seek operations with a bad index.
	ErrIndexOutOfRange = errors.New("chunk index out of range")
	// ErrTextTooLarge is returned when a source text exceeds the configured cap.
	ErrTextTooLarge = errors.New("text exceeds maximum reading size")
	// ErrEmptyText is returned when a source text contains no readable content.
	ErrEmptyText = errors.New("no readable text")
)

// DefaultMaxSourceChars caps the source text accepted by Create when the
// manager is built with a non-positive limit.
const DefaultMaxSourceChars = 100000

// Manager owns all reading sessions, keyed by an opaque client id. One
// session per client; sessions are never shared across clients.
type Manager struct {
	sessions sync.Map
	maxChars int
}

// NewManager creates a session manager. maxSourceChars bounds the text size
// accepted by Create; pass 0 for the default.
func NewManager(maxSourceChars int) *Manager {
	if maxSourceChars <= 0 {
		maxSourceChars = DefaultMaxSourceChars
	}
	return &Manager{maxChars: maxSourceChars}
}

// Create chunks text and registers a fresh stopped session for the client,
// replacing any session the client already had.
func (m *Manager) Create(clientID, source, text string, maxChunkSize int) (*Session, error) {
	if len(text) > m.maxChars {
		return nil, fmt.Errorf("%d chars (limit %d): %w", len(text), m.maxChars, ErrTextTooLarge)
	}
	chunks := chunker.Split(text, maxChunkSize)
	if len(chunks) == 0 {
		return nil, ErrEmptyText
	}
	session := &Session{
		ID:        clientID,
		Source:    source,
		Chunks:    chunks,
		Index:     0,
		State:     StateStopped,
		CreatedAt: time.Now(),
	}
	m.sessions.Store(clientID, session)
	return session, nil
}

// Get returns the client's session.
func (m *Manager) Get(clientID string) (*Session, error) {
	value, ok := m.sessions.Load(clientID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return value.(*Session), nil
}

// Delete drops the client's session. Used on disconnect and explicit end.
func (m *Manager) Delete(clientID string) {
	m.sessions.Delete(clientID)
}

// Restore re-registers a session snapshot, e.g. one reloaded from the cache
// at boot. Restored sessions come back paused so playback never resumes
// without the client asking for it.
func (m *Manager) Restore(session *Session) {
	if session == nil || len(session.Chunks) == 0 {
		return
	}
	if session.Index < 0 || session.Index >= len(session.Chunks) {
		session.Index = 0
	}
	if session.State == StatePlaying {
		session.State = StatePaused
	}
	m.sessions.Store(session.ID, session)
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	count := 0
	m.sessions.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}

// Range calls fn for every live session until fn returns false.
func (m *Manager) Range(fn func(*Session) bool) {
	m.sessions.Range(func(_, value any) bool {
		return fn(value.(*Session))
	})
}
