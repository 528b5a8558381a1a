package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/EasterCompany/dex-assistant-service/interfaces"
)

// Re-assign os.UserHomeDir to a variable so we can mock it in tests.
var osUserHomeDir = os.UserHomeDir

// getConfigDir constructs the path to the ~/Dexter/config directory.
func getConfigDir() (string, error) {
	home, err := osUserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not get user home directory: %w", err)
	}
	return filepath.Join(home, "Dexter", "config"), nil
}

// loadOrCreate reads a JSON config file, writing the provided defaults to
// disk first when the file does not exist yet.
func loadOrCreate(dir, filename string, v interface{}) error {
	path := filepath.Join(dir, filename)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("could not marshal default config for %s: %w", filename, err)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("could not create config directory: %w", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("could not write default config file %s: %w", filename, err)
		}
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read config file %s: %w", filename, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("could not decode config file %s: %w", filename, err)
	}
	return nil
}

// defaultMain returns the default root config.
func defaultMain() *MainConfig {
	return &MainConfig{
		DiscordConfig:   "discord.json",
		RedisConfig:     "redis.json",
		AssistantConfig: "assistant.json",
	}
}

// defaultDiscord returns the default Discord config.
func defaultDiscord() *DiscordConfig {
	return &DiscordConfig{CommandPrefix: "!"}
}

// defaultRedis returns the default cache config.
func defaultRedis() *RedisConfig {
	return &RedisConfig{Addr: "localhost:6379"}
}

// defaultAssistant returns the default assistant config.
func defaultAssistant() *AssistantConfig {
	return &AssistantConfig{
		GatewayAddr:     "127.0.0.1:8765",
		StatusPort:      8766,
		MaxReadingChars: 100000,
		MaxChunkSize:    500,
		AudioTTLMinutes: 30,
		Workers:         4,
		QueueSize:       64,
		TTSURL:          "http://localhost:5002/api/tts",
		Provider: ProviderConfig{
			Name:        "ollama",
			OllamaURL:   "http://localhost:11434/api/chat",
			OllamaModel: "dolphin3:latest",
		},
		Tools: ToolsConfig{
			MaxContextChars: 4000,
			CacheSize:       256,
		},
		Persona: &interfaces.Persona{
			Name:      "Dexter",
			Alias:     []string{"Dex"},
			Pronouns:  "we/us",
			Tone:      []string{"helpful", "direct"},
			Formality: "casual",
			Verbosity: "concise",
		},
	}
}

// LoadAllConfigs loads every config file from ~/Dexter/config, creating any
// missing file with defaults.
func LoadAllConfigs() (*AllConfig, error) {
	dir, err := getConfigDir()
	if err != nil {
		return nil, err
	}

	main := defaultMain()
	if err := loadOrCreate(dir, "config.json", main); err != nil {
		return nil, err
	}

	discord := defaultDiscord()
	if err := loadOrCreate(dir, main.DiscordConfig, discord); err != nil {
		return nil, err
	}

	redis := defaultRedis()
	if err := loadOrCreate(dir, main.RedisConfig, redis); err != nil {
		return nil, err
	}

	assistant := defaultAssistant()
	if err := loadOrCreate(dir, main.AssistantConfig, assistant); err != nil {
		return nil, err
	}

	return &AllConfig{
		Discord:   discord,
		Redis:     redis,
		Assistant: assistant,
	}, nil
}
