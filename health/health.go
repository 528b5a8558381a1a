// Package health formats dependency status lines for the dashboard and the
// boot report.
package health

import (
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/EasterCompany/dex-assistant-service/cache"
	"github.com/EasterCompany/dex-assistant-service/config"
	"github.com/EasterCompany/dex-assistant-service/interfaces"
	"github.com/EasterCompany/dex-assistant-service/system"
)

var probeClient = &http.Client{Timeout: 3 * time.Second}

// GetEndpointStatus checks an HTTP dependency and returns its status as a
// formatted string.
func GetEndpointStatus(url string) string {
	if url == "" {
		return "`Not Configured`"
	}
	resp, err := probeClient.Get(url)
	if err != nil {
		return fmt.Sprintf("**ERROR**: `%v`", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Sprintf("**ERROR**: `Status: %s`", resp.Status)
	}
	return "**OK**"
}

// GetProviderStatus reports the chat provider backing the assistant.
func GetProviderStatus(provider interfaces.ChatProvider, cfg *config.ProviderConfig) string {
	if provider == nil {
		return "**ERROR**: `Initialization failed`"
	}
	if provider.Name() == "ollama" {
		url := cfg.OllamaURL
		if url == "" {
			url = "http://localhost:11434"
		}
		return GetEndpointStatus(url)
	}
	// Hosted providers have no cheap liveness probe; initialized is OK.
	return fmt.Sprintf("**OK** (`%s`)", provider.Name())
}

// GetDiscordStatus reports the Discord connection, attempting a reopen when
// the session has dropped.
func GetDiscordStatus(s *discordgo.Session) string {
	if s == nil {
		return "`Not Configured`"
	}
	if s.DataReady {
		return "**OK**"
	}
	if err := s.Open(); err != nil {
		return fmt.Sprintf("**ERROR**: `%v`", err)
	}
	return "**OK** (reconnected)"
}

// GetCacheStatus pings Redis and reports the result.
func GetCacheStatus(c cache.Cache, cfg *config.RedisConfig) string {
	if cfg == nil || cfg.Addr == "" {
		return "`Not Configured`"
	}
	if c == nil {
		return "**ERROR**: `Initialization failed`"
	}
	if err := c.Ping(); err != nil {
		return fmt.Sprintf("**ERROR**: `%v`", err)
	}
	return "**OK**"
}

// GetSTTStatus reports the speech client. There is no cheap liveness call
// against the speech API, so a constructed client counts as healthy.
func GetSTTStatus(sttClient interfaces.SpeechToText) string {
	if sttClient == nil {
		return "`Not Configured`"
	}
	return "**OK**"
}

// GetGPUStatus samples the GPU when one is present. Hosts without
// nvidia-smi return nil info and no error.
func GetGPUStatus() (*system.GPUInfo, error) {
	if !system.IsNvidiaGPUInstalled() {
		return nil, nil
	}

	info, err := system.GetGPUInfo()
	if err != nil {
		return nil, fmt.Errorf("could not sample gpu: %w", err)
	}
	return info, nil
}

// GetActiveGuilds maps guild names to ids from the session state.
func GetActiveGuilds(s *discordgo.Session) map[string]string {
	out := make(map[string]string, len(s.State.Guilds))
	for _, g := range s.State.Guilds {
		out[g.Name] = g.ID
	}
	return out
}

// GetActiveChannels maps text channel names to ids across every guild the
// bot can see.
func GetActiveChannels(s *discordgo.Session) map[string]string {
	out := make(map[string]string)
	for _, g := range s.State.Guilds {
		for _, ch := range g.Channels {
			if ch.Type != discordgo.ChannelTypeGuildText {
				continue
			}
			out[ch.Name] = ch.ID
		}
	}
	return out
}

// GetActiveConversations maps DM recipient names to their channel ids.
func GetActiveConversations(s *discordgo.Session) map[string]string {
	out := make(map[string]string)
	for _, ch := range s.State.PrivateChannels {
		if ch.Type != discordgo.ChannelTypeDM {
			continue
		}
		for _, user := range ch.Recipients {
			out[user.Username] = ch.ID
		}
	}
	return out
}
