package reporting

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/EasterCompany/dex-assistant-service/cache"
	"github.com/EasterCompany/dex-assistant-service/config"
	"github.com/EasterCompany/dex-assistant-service/health"
	"github.com/EasterCompany/dex-assistant-service/interfaces"
	logger "github.com/EasterCompany/dex-assistant-service/log"
	"github.com/EasterCompany/dex-assistant-service/system"
)

func humanReadableBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}

func formatSystemStatus(cpuUsage, memUsage float64, gpuInfo *system.GPUInfo) string {
	lines := []string{
		"**System Status**",
		fmt.Sprintf("🖥️ CPU: `%.2f%%`", cpuUsage),
		fmt.Sprintf("🧮 Memory: `%.2f%%`", memUsage),
	}
	if gpuInfo != nil {
		lines = append(lines, fmt.Sprintf("🎞️ GPU: `%.2f%%` (`%s / %s`)",
			gpuInfo.Utilization,
			humanReadableBytes(uint64(gpuInfo.MemoryUsed*1024*1024)),
			humanReadableBytes(uint64(gpuInfo.MemoryTotal*1024*1024))))
	} else {
		lines = append(lines, "🎞️ GPU: `none detected`")
	}
	return strings.Join(lines, "\n")
}

func formatServiceStatus(discordStatus, cacheStatus, providerStatus, sttStatus, ttsStatus, searchStatus, docsStatus string) string {
	return strings.Join([]string{
		"**Service Status**",
		fmt.Sprintf("💬 Discord: %s", discordStatus),
		fmt.Sprintf("🗄️ Redis: %s", cacheStatus),
		fmt.Sprintf("🧠 Provider: %s", providerStatus),
		fmt.Sprintf("🎧 STT Client: %s", sttStatus),
		fmt.Sprintf("🔊 TTS Engine: %s", ttsStatus),
		fmt.Sprintf("🔎 Search Tool: %s", searchStatus),
		fmt.Sprintf("📚 Docs Tool: %s", docsStatus),
	}, "\n")
}

// PostFinalStatus replaces the boot message with the complete startup report
// and attaches the rendered system prompt for inspection.
func PostFinalStatus(s *discordgo.Session, db cache.Cache, cfg *config.AllConfig,
	provider interfaces.ChatProvider, sttClient interfaces.SpeechToText,
	bootMessageID, cleanupReport string, restoredSessions int,
	log logger.Logger, systemPrompt string) {

	cpuUsage, err := system.GetCPUUsage()
	if err != nil {
		log.Error("Failed to get CPU usage", err)
	}
	memUsage, err := system.GetMemoryUsage()
	if err != nil {
		log.Error("Failed to get memory usage", err)
	}
	gpuInfo, err := health.GetGPUStatus()
	if err != nil {
		log.Error("Failed to get GPU status", err)
	}

	serviceStatus := formatServiceStatus(
		health.GetDiscordStatus(s),
		health.GetCacheStatus(db, cfg.Redis),
		health.GetProviderStatus(provider, &cfg.Assistant.Provider),
		health.GetSTTStatus(sttClient),
		health.GetEndpointStatus(cfg.Assistant.TTSURL),
		health.GetEndpointStatus(cfg.Assistant.Tools.SearchURL),
		health.GetEndpointStatus(cfg.Assistant.Tools.DocsURL),
	)

	finalStatus := strings.Join([]string{
		formatSystemStatus(cpuUsage, memUsage, gpuInfo),
		"",
		serviceStatus,
		"",
		cleanupReport,
		"",
		"**Reach**",
		fmt.Sprintf("🛰️ Guilds: `%d` | Channels: `%d` | DMs: `%d`",
			len(health.GetActiveGuilds(s)), len(health.GetActiveChannels(s)),
			len(health.GetActiveConversations(s))),
		"",
		"**Reading Sessions**",
		fmt.Sprintf("📖 Restored: `%d`", restoredSessions),
	}, "\n")

	if bootMessageID != "" {
		_ = s.ChannelMessageDelete(cfg.Discord.LogChannelID, bootMessageID)
	}

	_, err = s.ChannelFileSendWithMessage(
		cfg.Discord.LogChannelID,
		finalStatus,
		"persona.md",
		bytes.NewBufferString(systemPrompt),
	)
	if err != nil {
		log.Error("posting final boot status", err)
	}
}
