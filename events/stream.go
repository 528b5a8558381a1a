package events

import (
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/EasterCompany/dex-assistant-service/utils"
)

// streamEditInterval is how often pending content is flushed to Discord.
// Discord's rate limit bucket for message edits is roughly one per second
// per message; 1s is safe under the global limit too.
const streamEditInterval = time.Second

// StreamSession tracks one message being edited as provider deltas arrive.
type StreamSession struct {
	ChannelID       string
	MessageID       string
	CurrentContent  string
	LastSentContent string
	Done            bool
}

// StreamManager throttles streamed response edits so a fast provider cannot
// trip Discord rate limits. Updates overwrite the pending content; the ticker
// flushes at most one edit per message per interval.
type StreamManager struct {
	session *discordgo.Session
	streams map[string]*StreamSession
	mu      sync.Mutex
	ticker  *time.Ticker
	stop    chan struct{}
}

// NewStreamManager creates a stream manager bound to a Discord session.
func NewStreamManager(s *discordgo.Session) *StreamManager {
	sm := &StreamManager{
		session: s,
		streams: make(map[string]*StreamSession),
		ticker:  time.NewTicker(streamEditInterval),
		stop:    make(chan struct{}),
	}
	go sm.run()
	return sm
}

// Start posts the initial placeholder message and begins tracking it.
func (sm *StreamManager) Start(channelID, initialContent string) (*StreamSession, error) {
	if initialContent == "" {
		initialContent = "..."
	}
	msg, err := sm.session.ChannelMessageSend(channelID, initialContent)
	if err != nil {
		return nil, fmt.Errorf("could not send initial stream message: %w", err)
	}
	utils.IncrementMessagesSent()

	session := &StreamSession{
		ChannelID:       channelID,
		MessageID:       msg.ID,
		CurrentContent:  initialContent,
		LastSentContent: initialContent,
	}
	sm.mu.Lock()
	sm.streams[msg.ID] = session
	sm.mu.Unlock()
	return session, nil
}

// Update replaces the pending content for a tracked message.
func (sm *StreamManager) Update(messageID, content string) {
	sm.mu.Lock()
	if session, ok := sm.streams[messageID]; ok {
		session.CurrentContent = content
	}
	sm.mu.Unlock()
}

// Complete marks a stream as done; the final content flushes on the next tick
// and the session is dropped once synchronized.
func (sm *StreamManager) Complete(messageID, content string) {
	sm.mu.Lock()
	if session, ok := sm.streams[messageID]; ok {
		if content != "" {
			session.CurrentContent = content
		}
		session.Done = true
	}
	sm.mu.Unlock()
}

// Stop shuts the flush loop down.
func (sm *StreamManager) Stop() {
	sm.ticker.Stop()
	close(sm.stop)
}

func (sm *StreamManager) run() {
	for {
		select {
		case <-sm.stop:
			return
		case <-sm.ticker.C:
			sm.flush()
		}
	}
}

func (sm *StreamManager) flush() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for id, session := range sm.streams {
		if session.CurrentContent != session.LastSentContent {
			content := session.CurrentContent
			if utf8.RuneCountInString(content) > 2000 {
				content = utils.TruncateString(content, 1997) + "..."
			}
			_, err := sm.session.ChannelMessageEdit(session.ChannelID, session.MessageID, content)
			if err != nil {
				// A 404 means the message was deleted under us; stop tracking.
				if restErr, ok := err.(*discordgo.RESTError); ok && restErr.Response != nil && restErr.Response.StatusCode == 404 {
					delete(sm.streams, id)
					continue
				}
			} else {
				session.LastSentContent = session.CurrentContent
			}
		}

		if session.Done && session.CurrentContent == session.LastSentContent {
			delete(sm.streams, id)
		}
	}
}
