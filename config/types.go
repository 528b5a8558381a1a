package config

import (
	"github.com/EasterCompany/dex-assistant-service/interfaces"
)

// MainConfig is the root config file. It names the sub-config files that live
// alongside it in the config directory.
type MainConfig struct {
	DiscordConfig   string `json:"discord_config"`
	RedisConfig     string `json:"redis_config"`
	AssistantConfig string `json:"assistant_config"`
}

// DiscordConfig holds Discord-specific settings.
type DiscordConfig struct {
	Token         string `json:"token"`
	ServerID      string `json:"server_id"`
	LogChannelID  string `json:"log_channel_id"`
	MasterUser    string `json:"master_user"`
	CommandPrefix string `json:"command_prefix"`
	QuietMode     bool   `json:"quiet_mode"`
}

// RedisConfig holds the cache connection settings.
type RedisConfig struct {
	Addr     string `json:"addr"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// ProviderConfig selects and configures a chat-completion backend.
type ProviderConfig struct {
	Name           string `json:"name"` // ollama, openai, anthropic
	OllamaURL      string `json:"ollama_url"`
	OllamaModel    string `json:"ollama_model"`
	OpenAIKey      string `json:"openai_key"`
	OpenAIModel    string `json:"openai_model"`
	AnthropicKey   string `json:"anthropic_key"`
	AnthropicModel string `json:"anthropic_model"`
}

// ToolsConfig points at the external tool providers used for prompt
// augmentation. Empty URLs disable the corresponding tool.
type ToolsConfig struct {
	SearchURL       string `json:"search_url"`
	DocsURL         string `json:"docs_url"`
	MaxContextChars int    `json:"max_context_chars"`
	CacheSize       int    `json:"cache_size"`
}

// AssistantConfig holds everything that is not Discord or Redis: the gateway
// listener, reading limits, providers, synthesis and workers.
type AssistantConfig struct {
	GatewayAddr     string              `json:"gateway_addr"`
	StatusPort      int                 `json:"status_port"`
	MaxReadingChars int                 `json:"max_reading_chars"`
	MaxChunkSize    int                 `json:"max_chunk_size"`
	AudioTTLMinutes int                 `json:"audio_ttl_minutes"`
	Workers         int                 `json:"workers"`
	QueueSize       int                 `json:"queue_size"`
	TTSURL          string              `json:"tts_url"`
	TTSVoice        string              `json:"tts_voice"`
	Provider        ProviderConfig      `json:"provider"`
	Tools           ToolsConfig         `json:"tools"`
	Persona         *interfaces.Persona `json:"persona"`
}

// AllConfig bundles every loaded config file.
type AllConfig struct {
	Discord   *DiscordConfig
	Redis     *RedisConfig
	Assistant *AssistantConfig
}
