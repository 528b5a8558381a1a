// Package events handles Discord gateway events and dispatches them to
// appropriate handlers.
package events

import (
	"fmt"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/EasterCompany/dex-assistant-service/cache"
	"github.com/EasterCompany/dex-assistant-service/config"
	"github.com/EasterCompany/dex-assistant-service/interfaces"
	logger "github.com/EasterCompany/dex-assistant-service/log"
	"github.com/EasterCompany/dex-assistant-service/profile"
	"github.com/EasterCompany/dex-assistant-service/reading"
	"github.com/EasterCompany/dex-assistant-service/tools"
	"github.com/EasterCompany/dex-assistant-service/utils"
	"github.com/EasterCompany/dex-assistant-service/worker"
)

// Handler routes Discord messages into the assistant pipeline. Reading
// sessions on this side are keyed by channel so a conversation keeps its
// place across reconnects.
type Handler struct {
	Session   *discordgo.Session
	DB        cache.Cache
	Provider  interfaces.ChatProvider
	Augmenter *tools.Augmenter
	Reading   *reading.Manager
	Pool      *worker.Pool
	TTS       interfaces.Synthesizer
	Profiles  *profile.Store
	Logger    logger.Logger
	Config    *config.DiscordConfig
	Assistant *config.AssistantConfig
	Streams   *StreamManager
	Users     *UserManager

	playbacks sync.Map // channelID -> chan struct{} (cancel)
}

// NewHandler wires a Discord message handler from its dependencies.
func NewHandler(s *discordgo.Session, db cache.Cache, provider interfaces.ChatProvider,
	augmenter *tools.Augmenter, readingMgr *reading.Manager, pool *worker.Pool,
	tts interfaces.Synthesizer, profiles *profile.Store, log logger.Logger,
	discordCfg *config.DiscordConfig, assistantCfg *config.AssistantConfig) *Handler {
	return &Handler{
		Session:   s,
		DB:        db,
		Provider:  provider,
		Augmenter: augmenter,
		Reading:   readingMgr,
		Pool:      pool,
		TTS:       tts,
		Profiles:  profiles,
		Logger:    log,
		Config:    discordCfg,
		Assistant: assistantCfg,
		Streams:   NewStreamManager(s),
		Users:     NewUserManager(),
	}
}

// sessionKey identifies a channel's reading session in the manager and the
// cache. The prefix keeps Discord sessions apart from gateway client ids.
func sessionKey(channelID string) string {
	return "discord:" + channelID
}

func historyKey(channelID string) string {
	return "discord:" + channelID
}

// Handle processes one MessageCreate event.
func (h *Handler) Handle(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.ID == s.State.User.ID {
		return
	}
	utils.IncrementMessagesReceived()

	defer func() {
		if r := recover(); r != nil {
			h.Logger.Error("message handler panicked", fmt.Errorf("%v", r))
		}
	}()

	prefix := h.Config.CommandPrefix
	if prefix == "" {
		prefix = "!"
	}
	if strings.HasPrefix(m.Content, prefix) {
		h.routeCommand(s, m, prefix)
		return
	}

	if h.DB != nil {
		entry := cache.HistoryEntry{
			Role:      "user",
			Author:    m.Author.Username,
			Content:   m.Content,
			Timestamp: m.Timestamp,
		}
		if err := h.DB.AddHistoryEntry(historyKey(m.ChannelID), entry); err != nil {
			h.Logger.Error(fmt.Sprintf("saving message %s", m.ID), err)
		}
	}

	if h.shouldRespond(s, m) {
		go h.respond(s, m)
	}
}

// shouldRespond decides whether the assistant engages with a non-command
// message: always in DMs, otherwise only when addressed by mention or by one
// of the persona's names.
func (h *Handler) shouldRespond(s *discordgo.Session, m *discordgo.MessageCreate) bool {
	if h.Provider == nil {
		return false
	}
	if m.GuildID == "" {
		return true
	}
	for _, user := range m.Mentions {
		if user.ID == s.State.User.ID {
			return true
		}
	}

	persona := h.Assistant.Persona
	if persona == nil {
		return false
	}
	content := strings.ToLower(m.Content)
	names := append([]string{persona.Name}, persona.Alias...)
	for _, name := range names {
		if name != "" && strings.HasPrefix(content, strings.ToLower(name)) {
			return true
		}
	}
	return false
}
