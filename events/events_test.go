package events

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EasterCompany/dex-assistant-service/cache"
	"github.com/EasterCompany/dex-assistant-service/config"
	"github.com/EasterCompany/dex-assistant-service/interfaces"
	logger "github.com/EasterCompany/dex-assistant-service/log"
	"github.com/EasterCompany/dex-assistant-service/reading"
	"github.com/EasterCompany/dex-assistant-service/worker"
)

type fakeCache struct {
	cache.Cache
	history map[string][]cache.HistoryEntry
}

func newFakeCache() *fakeCache {
	return &fakeCache{history: make(map[string][]cache.HistoryEntry)}
}

func (f *fakeCache) AddHistoryEntry(key string, e cache.HistoryEntry) error {
	f.history[key] = append(f.history[key], e)
	return nil
}

func (f *fakeCache) GetHistory(key string, limit int64) ([]cache.HistoryEntry, error) {
	entries := f.history[key]
	if int64(len(entries)) > limit {
		entries = entries[int64(len(entries))-limit:]
	}
	return entries, nil
}

func newTestSession(botID string) *discordgo.Session {
	s := &discordgo.Session{State: discordgo.NewState()}
	s.State.User = &discordgo.User{ID: botID, Username: "dexter"}
	return s
}

func newTestHandler(db cache.Cache) *Handler {
	return &Handler{
		DB:       db,
		Provider: stubProvider{},
		Reading:  reading.NewManager(0),
		Logger:   logger.NewConsole(),
		Config:   &config.DiscordConfig{CommandPrefix: "!"},
		Assistant: &config.AssistantConfig{
			MaxChunkSize: 500,
			Persona:      &interfaces.Persona{Name: "Dexter", Alias: []string{"Dex"}},
		},
	}
}

type stubProvider struct{}

func (stubProvider) Name() string { return "stub" }
func (stubProvider) Complete(_ context.Context, _ []interfaces.Message) (string, error) {
	return "", nil
}

func TestShouldRespondInDM(t *testing.T) {
	s := newTestSession("bot")
	h := newTestHandler(nil)
	m := &discordgo.MessageCreate{Message: &discordgo.Message{
		Content: "hello there",
		Author:  &discordgo.User{ID: "user"},
	}}
	assert.True(t, h.shouldRespond(s, m))
}

func TestShouldRespondOnMention(t *testing.T) {
	s := newTestSession("bot")
	h := newTestHandler(nil)
	m := &discordgo.MessageCreate{Message: &discordgo.Message{
		Content:  "<@bot> hello",
		GuildID:  "guild",
		Author:   &discordgo.User{ID: "user"},
		Mentions: []*discordgo.User{{ID: "bot"}},
	}}
	assert.True(t, h.shouldRespond(s, m))
}

func TestShouldRespondOnPersonaName(t *testing.T) {
	s := newTestSession("bot")
	h := newTestHandler(nil)
	m := &discordgo.MessageCreate{Message: &discordgo.Message{
		Content: "dex, what time is it?",
		GuildID: "guild",
		Author:  &discordgo.User{ID: "user"},
	}}
	assert.True(t, h.shouldRespond(s, m))
}

func TestShouldNotRespondToChatter(t *testing.T) {
	s := newTestSession("bot")
	h := newTestHandler(nil)
	m := &discordgo.MessageCreate{Message: &discordgo.Message{
		Content: "anyone up for a game?",
		GuildID: "guild",
		Author:  &discordgo.User{ID: "user"},
	}}
	assert.False(t, h.shouldRespond(s, m))
}

func TestCleanContentStripsMention(t *testing.T) {
	s := newTestSession("bot")
	h := newTestHandler(nil)
	m := &discordgo.MessageCreate{Message: &discordgo.Message{Content: "<@bot> what is Go?"}}
	assert.Equal(t, "what is Go?", h.cleanContent(s, m))

	m.Content = "<@!bot>   hi"
	assert.Equal(t, "hi", h.cleanContent(s, m))
}

func TestChannelHistoryDropsTriggerMessage(t *testing.T) {
	db := newFakeCache()
	h := newTestHandler(db)
	s := newTestSession("bot")

	key := historyKey("chan")
	require.NoError(t, db.AddHistoryEntry(key, cache.HistoryEntry{Role: "user", Author: "alice", Content: "earlier"}))
	require.NoError(t, db.AddHistoryEntry(key, cache.HistoryEntry{Role: "assistant", Author: "stub", Content: "reply"}))
	require.NoError(t, db.AddHistoryEntry(key, cache.HistoryEntry{Role: "user", Author: "alice", Content: "dex hello"}))

	m := &discordgo.MessageCreate{Message: &discordgo.Message{
		ChannelID: "chan",
		Content:   "dex hello",
		Author:    &discordgo.User{ID: "u1", Username: "alice"},
	}}

	messages := h.channelHistory(s, m)
	require.Len(t, messages, 2)
	assert.Equal(t, "alice: earlier", messages[0].Content)
	assert.Equal(t, "assistant", messages[1].Role)
	assert.Equal(t, "reply", messages[1].Content)
}

type fakeTTS struct {
	mu     sync.Mutex
	voices []string
}

func (f *fakeTTS) Synthesize(_ context.Context, _ string, voice string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.voices = append(f.voices, voice)
	return nil, nil
}

func (f *fakeTTS) heard() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.voices...)
}

func newSpeakingHandler(t *testing.T) (*Handler, *fakeTTS) {
	t.Helper()
	tts := &fakeTTS{}
	h := newTestHandler(nil)
	h.TTS = tts
	h.Assistant.TTSVoice = "service-default"
	h.Pool = worker.New(1, 4)
	h.Pool.Start()
	t.Cleanup(h.Pool.Stop)
	return h, tts
}

func TestSpeakChunkUsesRequestedVoice(t *testing.T) {
	h, tts := newSpeakingHandler(t)

	h.speakChunk(nil, "chan", "discord:chan", 0, "Hello.", "en_custom")

	voices := tts.heard()
	require.Len(t, voices, 1)
	assert.Equal(t, "en_custom", voices[0])
}

func TestSpeakChunkFallsBackToDefaultVoice(t *testing.T) {
	h, tts := newSpeakingHandler(t)

	h.speakChunk(nil, "chan", "discord:chan", 0, "Hello.", "")

	voices := tts.heard()
	require.Len(t, voices, 1)
	assert.Equal(t, "service-default", voices[0])
}

func TestVoiceForWithoutProfiles(t *testing.T) {
	h := newTestHandler(nil)
	h.Assistant.TTSVoice = "service-default"
	assert.Equal(t, "service-default", h.voiceFor("user"))
}

func TestPlayLoopExitKeepsNewerPlayback(t *testing.T) {
	h := newTestHandler(nil)
	key := sessionKey("chan")

	// No reading session exists, so the loop unwinds immediately.
	newer := make(chan struct{})
	h.playbacks.Store(key, newer)
	stale := make(chan struct{})
	h.playLoop(nil, "chan", "", stale)

	got, ok := h.playbacks.Load(key)
	require.True(t, ok, "a stale loop must not delete the newer loop's cancel channel")
	assert.Equal(t, newer, got)

	h.playbacks.Store(key, stale)
	h.playLoop(nil, "chan", "", stale)
	_, ok = h.playbacks.Load(key)
	assert.False(t, ok, "a loop removes its own cancel channel on exit")
}

func TestChunkPauseBounds(t *testing.T) {
	assert.Equal(t, minChunkPause, chunkPause("short"))
	assert.Equal(t, maxChunkPause, chunkPause(strings.Repeat("word ", 400)))
}

func TestFormatProgress(t *testing.T) {
	p := reading.Progress{Index: 1, Total: 4, Percent: 50, State: reading.StatePaused}
	assert.Equal(t, "Chunk 2 of 4 (50%), paused.", formatProgress(p))
}

func TestSessionKeysDistinct(t *testing.T) {
	assert.NotEqual(t, sessionKey("a"), sessionKey("b"))
	assert.Equal(t, sessionKey("a"), historyKey("a"))
}

func TestStreamManagerTracksContent(t *testing.T) {
	sm := &StreamManager{
		streams: make(map[string]*StreamSession),
	}
	sm.streams["m1"] = &StreamSession{ChannelID: "c", MessageID: "m1", CurrentContent: "...", LastSentContent: "..."}

	sm.Update("m1", "partial")
	assert.Equal(t, "partial", sm.streams["m1"].CurrentContent)

	sm.Complete("m1", "final")
	assert.Equal(t, "final", sm.streams["m1"].CurrentContent)
	assert.True(t, sm.streams["m1"].Done)

	// updates for unknown messages are ignored
	sm.Update("missing", "x")
	assert.NotContains(t, sm.streams, "missing")
}
