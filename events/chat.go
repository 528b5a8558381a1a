package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/EasterCompany/dex-assistant-service/cache"
	"github.com/EasterCompany/dex-assistant-service/intent"
	"github.com/EasterCompany/dex-assistant-service/interfaces"
)

const (
	typingInterval   = 8 * time.Second
	discordChatLimit = 20
	responseTimeout  = 2 * time.Minute
)

// respond runs the assistant pipeline for one channel message and streams
// the reply into a single Discord message via the throttled editor.
func (h *Handler) respond(s *discordgo.Session, m *discordgo.MessageCreate) {
	defer func() {
		if r := recover(); r != nil {
			h.Logger.Error("chat pipeline panicked", fmt.Errorf("%v", r))
		}
	}()

	userState := h.Users.GetOrCreateUserState(m.Author.ID)

	userState.Mutex.Lock()
	userState.interrupt()
	userState.State = StatePending

	// Keep the typing indicator alive while the provider works.
	ticker := time.NewTicker(typingInterval)
	userState.Timer = ticker
	go func() {
		for range ticker.C {
			_ = s.ChannelTyping(m.ChannelID)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), responseTimeout)
	userState.CancelFunc = cancel
	userState.State = StateStreaming
	userState.Mutex.Unlock()

	defer func() {
		userState.Mutex.Lock()
		ticker.Stop()
		if userState.Timer == ticker {
			userState.Timer = nil
		}
		userState.State = StateIdle
		userState.Mutex.Unlock()
		cancel()
	}()

	_ = s.ChannelTyping(m.ChannelID)

	text := h.cleanContent(s, m)
	match := intent.Detect(text)
	prompt := text
	if h.Augmenter != nil {
		prompt = h.Augmenter.Augment(ctx, match, text)
	}

	messages := h.channelHistory(s, m)
	messages = append(messages, interfaces.Message{Role: "user", Content: prompt})

	stream, err := h.Streams.Start(m.ChannelID, "...")
	if err != nil {
		h.Logger.Error(fmt.Sprintf("starting response stream in %s", m.ChannelID), err)
		return
	}

	var reply string
	if streamer, ok := h.Provider.(interfaces.StreamingChatProvider); ok {
		var b strings.Builder
		reply, err = streamer.StreamComplete(ctx, messages, func(delta string) {
			b.WriteString(delta)
			h.Streams.Update(stream.MessageID, b.String())
		})
	} else {
		reply, err = h.Provider.Complete(ctx, messages)
	}
	if err != nil {
		if ctx.Err() == context.Canceled {
			h.Streams.Complete(stream.MessageID, "*(interrupted)*")
			return
		}
		h.Logger.Error(fmt.Sprintf("completing chat for %s", m.Author.Username), err)
		h.Streams.Complete(stream.MessageID, "Sorry, I could not come up with a response.")
		return
	}

	h.Streams.Complete(stream.MessageID, reply)

	if h.DB != nil {
		entry := cache.HistoryEntry{
			Role:      "assistant",
			Author:    h.Provider.Name(),
			Content:   reply,
			Timestamp: time.Now(),
		}
		if err := h.DB.AddHistoryEntry(historyKey(m.ChannelID), entry); err != nil {
			h.Logger.Error(fmt.Sprintf("saving response in %s", m.ChannelID), err)
		}
	}
}

// cleanContent strips the bot mention so the provider sees the bare request.
func (h *Handler) cleanContent(s *discordgo.Session, m *discordgo.MessageCreate) string {
	text := m.Content
	if s.State.User != nil {
		for _, tag := range []string{"<@" + s.State.User.ID + ">", "<@!" + s.State.User.ID + ">"} {
			text = strings.ReplaceAll(text, tag, "")
		}
	}
	return strings.TrimSpace(text)
}

// channelHistory rebuilds the provider message list from the channel's cached
// history. The entry logged for the triggering message is dropped so it is
// not sent twice.
func (h *Handler) channelHistory(s *discordgo.Session, m *discordgo.MessageCreate) []interfaces.Message {
	if h.DB == nil {
		return nil
	}
	entries, err := h.DB.GetHistory(historyKey(m.ChannelID), discordChatLimit)
	if err != nil {
		h.Logger.Error(fmt.Sprintf("loading history for %s", m.ChannelID), err)
		return nil
	}
	if n := len(entries); n > 0 && entries[n-1].Author == m.Author.Username && entries[n-1].Content == m.Content {
		entries = entries[:n-1]
	}

	messages := make([]interfaces.Message, 0, len(entries))
	for _, e := range entries {
		content := e.Content
		if e.Role == "user" && e.Author != "" {
			content = fmt.Sprintf("%s: %s", e.Author, content)
		}
		messages = append(messages, interfaces.Message{Role: e.Role, Content: content})
	}
	return messages
}
