package events

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/EasterCompany/dex-assistant-service/profile"
	"github.com/EasterCompany/dex-assistant-service/reading"
	"github.com/EasterCompany/dex-assistant-service/utils"
)

type CommandHandlerFunc func(h *Handler, s *discordgo.Session, m *discordgo.MessageCreate, args []string)

var commandHandlers = map[string]CommandHandlerFunc{
	"read":     (*Handler).readCommand,
	"play":     (*Handler).playCommand,
	"resume":   (*Handler).playCommand,
	"pause":    (*Handler).pauseCommand,
	"stop":     (*Handler).stopCommand,
	"next":     (*Handler).nextCommand,
	"prev":     (*Handler).prevCommand,
	"seek":     (*Handler).seekCommand,
	"progress": (*Handler).progressCommand,
	"end":      (*Handler).endCommand,
	"clear":    (*Handler).clearCommand,
	"profile":  (*Handler).profileCommand,
	"help":     (*Handler).helpCommand,
}

func (h *Handler) routeCommand(s *discordgo.Session, m *discordgo.MessageCreate, prefix string) {
	parts := strings.Fields(m.Content)
	if len(parts) == 0 {
		return
	}

	command := strings.ToLower(strings.TrimPrefix(parts[0], prefix))
	handler, ok := commandHandlers[command]
	if !ok {
		h.handleUnknownCommand(s, m)
		return
	}
	handler(h, s, m, parts[1:])
}

func (h *Handler) handleUnknownCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	msg, err := s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("`%s` is not a valid command.", m.Content))
	if err != nil {
		return
	}
	time.Sleep(10 * time.Second)
	_ = s.ChannelMessageDelete(msg.ChannelID, msg.ID)
}

func (h *Handler) reply(s *discordgo.Session, channelID, content string) {
	if _, err := s.ChannelMessageSend(channelID, content); err != nil {
		h.Logger.Error(fmt.Sprintf("sending message in %s", channelID), err)
		return
	}
	utils.IncrementMessagesSent()
}

// readCommand opens a reading session over the text following the command.
// The user's cached profile controls the chunk size when one is set.
func (h *Handler) readCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		h.reply(s, m.ChannelID, "Give me something to read, e.g. `!read <text>`.")
		return
	}

	maxChunkSize := h.Assistant.MaxChunkSize
	if h.Profiles != nil {
		if p, err := h.Profiles.Get(context.Background(), m.Author.ID); err == nil && p != nil && p.MaxChunkSize > 0 {
			maxChunkSize = p.MaxChunkSize
		}
	}

	session, err := h.Reading.Create(sessionKey(m.ChannelID), "discord", text, maxChunkSize)
	if err != nil {
		switch {
		case errors.Is(err, reading.ErrTextTooLarge):
			h.reply(s, m.ChannelID, "That text is too large for me to read.")
		case errors.Is(err, reading.ErrEmptyText):
			h.reply(s, m.ChannelID, "Give me something to read, e.g. `!read <text>`.")
		default:
			h.Logger.Error(fmt.Sprintf("creating reading session in %s", m.ChannelID), err)
			h.reply(s, m.ChannelID, "I could not start reading that.")
		}
		return
	}

	h.persistSession(session)
	h.reply(s, m.ChannelID, fmt.Sprintf("Ready to read %d chunks. `!play` to start.", len(session.Chunks)))
}

func (h *Handler) playCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	session, ok := h.channelSession(s, m)
	if !ok {
		return
	}
	session.SetState(reading.StatePlaying)
	h.persistSession(session)
	h.startPlayback(s, m.ChannelID, h.voiceFor(m.Author.ID))
}

// voiceFor resolves the TTS voice for a user, preferring their stored
// profile over the service default.
func (h *Handler) voiceFor(userID string) string {
	if h.Profiles != nil {
		if p, err := h.Profiles.Get(context.Background(), userID); err == nil && p != nil && p.Voice != "" {
			return p.Voice
		}
	}
	return h.Assistant.TTSVoice
}

func (h *Handler) pauseCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	session, ok := h.channelSession(s, m)
	if !ok {
		return
	}
	if session.GetState() != reading.StatePlaying {
		h.reply(s, m.ChannelID, "Nothing is playing.")
		return
	}
	session.SetState(reading.StatePaused)
	h.persistSession(session)
	h.stopPlayback(m.ChannelID)
	h.reply(s, m.ChannelID, formatProgress(session.Progress()))
}

func (h *Handler) stopCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	session, ok := h.channelSession(s, m)
	if !ok {
		return
	}
	session.SetState(reading.StateStopped)
	h.persistSession(session)
	h.stopPlayback(m.ChannelID)
	h.reply(s, m.ChannelID, "Stopped.")
}

func (h *Handler) nextCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	session, ok := h.channelSession(s, m)
	if !ok {
		return
	}
	chunk, moved := session.Next()
	if !moved {
		h.reply(s, m.ChannelID, "Already at the last chunk.")
		return
	}
	h.persistSession(session)
	h.postChunk(s, m.ChannelID, session.Progress(), chunk.Text)
}

func (h *Handler) prevCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	session, ok := h.channelSession(s, m)
	if !ok {
		return
	}
	chunk, moved := session.Previous()
	if !moved {
		h.reply(s, m.ChannelID, "Already at the first chunk.")
		return
	}
	h.persistSession(session)
	h.postChunk(s, m.ChannelID, session.Progress(), chunk.Text)
}

func (h *Handler) seekCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if len(args) == 0 {
		h.reply(s, m.ChannelID, "Give me a chunk number, e.g. `!seek 3`.")
		return
	}
	index, err := strconv.Atoi(args[0])
	if err != nil {
		h.reply(s, m.ChannelID, fmt.Sprintf("`%s` is not a chunk number.", args[0]))
		return
	}

	session, ok := h.channelSession(s, m)
	if !ok {
		return
	}
	// Commands are 1-based for humans.
	if err := session.Seek(index - 1); err != nil {
		h.reply(s, m.ChannelID, fmt.Sprintf("Chunk %d is out of range.", index))
		return
	}
	h.persistSession(session)
	if chunk, ok := session.Current(); ok {
		h.postChunk(s, m.ChannelID, session.Progress(), chunk.Text)
	}
}

func (h *Handler) progressCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	session, ok := h.channelSession(s, m)
	if !ok {
		return
	}
	h.reply(s, m.ChannelID, formatProgress(session.Progress()))
}

func (h *Handler) endCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	h.stopPlayback(m.ChannelID)
	h.Reading.Delete(sessionKey(m.ChannelID))
	if h.DB != nil {
		if err := h.DB.DeleteReadingSession(sessionKey(m.ChannelID)); err != nil {
			h.Logger.Error(fmt.Sprintf("deleting reading session for %s", m.ChannelID), err)
		}
	}
	h.reply(s, m.ChannelID, "Reading session ended.")
}

// clearCommand removes the bot's messages from the channel and wipes the
// cached conversation history.
func (h *Handler) clearCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if h.DB != nil {
		if err := h.DB.ClearHistory(historyKey(m.ChannelID)); err != nil {
			h.Logger.Error(fmt.Sprintf("clearing history for %s", m.ChannelID), err)
		}
	}

	if m.GuildID == "" {
		// In DMs, the bot cannot delete messages. Provide feedback to the user.
		h.reply(s, m.ChannelID, "History cleared. I cannot delete messages in Direct Messages due to Discord API limitations.")
		return
	}
	botID := s.State.User.ID

	messages, err := s.ChannelMessages(m.ChannelID, 100, "", "", "")
	if err != nil {
		h.Logger.Error("Failed to fetch messages", err)
		return
	}

	for _, msg := range messages {
		if msg.Author.ID == botID {
			_ = s.ChannelMessageDelete(msg.ChannelID, msg.ID)
		}
	}
}

// profileCommand shows or edits the caller's stored preferences. Settable
// fields: voice, chunksize. `!profile reset` drops the profile entirely.
func (h *Handler) profileCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if h.Profiles == nil {
		h.reply(s, m.ChannelID, "Profiles are unavailable without the cache.")
		return
	}
	ctx := context.Background()

	if len(args) == 1 && strings.EqualFold(args[0], "reset") {
		if err := h.Profiles.Delete(ctx, m.Author.ID); err != nil {
			h.Logger.Error(fmt.Sprintf("resetting profile for %s", m.Author.ID), err)
			h.reply(s, m.ChannelID, "I could not reset your profile.")
			return
		}
		h.reply(s, m.ChannelID, "Profile reset to defaults.")
		return
	}

	p, err := h.Profiles.Get(ctx, m.Author.ID)
	if err != nil {
		h.Logger.Error(fmt.Sprintf("loading profile for %s", m.Author.ID), err)
		h.reply(s, m.ChannelID, "I could not load your profile.")
		return
	}
	if p == nil {
		p = &profile.UserProfile{UserID: m.Author.ID, Username: m.Author.Username}
		p.Defaults(h.Assistant.MaxChunkSize)
	}

	if len(args) == 0 {
		h.reply(s, m.ChannelID, fmt.Sprintf(
			"**Voice:** `%s` **Chunk size:** `%d`\nSet with `!profile voice <name>` or `!profile chunksize <n>`.",
			orDefault(p.Voice, h.Assistant.TTSVoice), p.MaxChunkSize))
		return
	}
	if len(args) < 2 {
		h.reply(s, m.ChannelID, "Usage: `!profile [voice <name>|chunksize <n>|reset]`.")
		return
	}

	switch strings.ToLower(args[0]) {
	case "voice":
		p.Voice = strings.Join(args[1:], " ")
	case "chunksize":
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			h.reply(s, m.ChannelID, "Chunk size must be a positive number.")
			return
		}
		p.MaxChunkSize = n
	default:
		h.reply(s, m.ChannelID, fmt.Sprintf("`%s` is not a profile field.", args[0]))
		return
	}

	p.LastActive = time.Now().UTC().Format(time.RFC3339)
	if err := h.Profiles.Save(ctx, p); err != nil {
		h.Logger.Error(fmt.Sprintf("saving profile for %s", m.Author.ID), err)
		h.reply(s, m.ChannelID, "I could not save your profile.")
		return
	}
	h.reply(s, m.ChannelID, "Profile updated.")
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func (h *Handler) helpCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	h.reply(s, m.ChannelID, strings.Join([]string{
		"**Reading**: `!read <text>`, `!play`, `!pause`, `!resume`, `!stop`,",
		"`!next`, `!prev`, `!seek <n>`, `!progress`, `!end`",
		"**Other**: `!clear` wipes my messages and our history,",
		"`!profile` tunes voice and chunk size, or just talk to me.",
		"Prefix a message with `search:`, `docs:` or `browse:` to pull in context.",
	}, " "))
}

func (h *Handler) channelSession(s *discordgo.Session, m *discordgo.MessageCreate) (*reading.Session, bool) {
	session, err := h.Reading.Get(sessionKey(m.ChannelID))
	if err != nil {
		h.reply(s, m.ChannelID, "No reading session here. Start one with `!read <text>`.")
		return nil, false
	}
	return session, true
}

func (h *Handler) persistSession(session *reading.Session) {
	if h.DB == nil {
		return
	}
	if err := h.DB.SaveReadingSession(session); err != nil {
		h.Logger.Error(fmt.Sprintf("persisting reading session %s", session.ID), err)
	}
}

func (h *Handler) postChunk(s *discordgo.Session, channelID string, progress reading.Progress, text string) {
	h.reply(s, channelID, fmt.Sprintf("**[%d/%d]** %s", progress.Index+1, progress.Total, text))
}

func formatProgress(p reading.Progress) string {
	return fmt.Sprintf("Chunk %d of %d (%.0f%%), %s.", p.Index+1, p.Total, p.Percent, p.State)
}
