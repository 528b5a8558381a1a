// Package startup runs the boot-time housekeeping tasks: log channel
// cleanup, audio cache purge and reading-session restore.
package startup

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/EasterCompany/dex-assistant-service/cache"
	"github.com/EasterCompany/dex-assistant-service/cleanup"
	"github.com/EasterCompany/dex-assistant-service/config"
	"github.com/EasterCompany/dex-assistant-service/health"
	logger "github.com/EasterCompany/dex-assistant-service/log"
	"github.com/EasterCompany/dex-assistant-service/reading"
)

// PerformCleanup clears the log channel and purges cached audio from the
// previous run. The boot message is spared. It returns a formatted report
// for the final status post.
func PerformCleanup(s *discordgo.Session, db cache.Cache, discordCfg *config.DiscordConfig, bootMessageID string, log logger.Logger) string {
	var audioCleaned int64
	if db != nil {
		var err error
		audioCleaned, err = db.CleanAllAudio()
		if err != nil {
			log.Error("cleaning audio cache", err)
		}
	}

	channelResult := cleanup.ClearChannel(s, discordCfg.LogChannelID, bootMessageID, log)

	// Responses interrupted by the previous shutdown are left as bare
	// placeholders in their channels; mark them so readers know.
	staleStreams := 0
	for _, channelID := range health.GetActiveChannels(s) {
		staleStreams += cleanup.CleanStaleStreams(s, channelID, log).Count
	}
	for _, channelID := range health.GetActiveConversations(s) {
		staleStreams += cleanup.CleanStaleStreams(s, channelID, log).Count
	}

	return strings.Join([]string{
		"**House Keeping**",
		fmt.Sprintf("🧹 Logs: `%d` removed.", channelResult.Count),
		fmt.Sprintf("🧹 Audio cache: `%d` clips purged.", audioCleaned),
		fmt.Sprintf("🧹 Stale streams: `%d` marked.", staleStreams),
	}, "\n")
}

// RestoreReadingSessions reloads persisted reading sessions into the manager.
// Restored sessions come back paused; a client resumes explicitly. Returns
// the number restored.
func RestoreReadingSessions(db cache.Cache, manager *reading.Manager, log logger.Logger) int {
	if db == nil {
		return 0
	}

	ids, err := db.GetAllReadingSessionIDs()
	if err != nil {
		log.Error("listing persisted reading sessions", err)
		return 0
	}

	restored := 0
	for _, id := range ids {
		// Gateway sessions are destroyed with their connection; only the
		// channel-keyed Discord sessions survive a restart.
		if !strings.HasPrefix(id, "discord:") {
			if err := db.DeleteReadingSession(id); err != nil {
				log.Error(fmt.Sprintf("dropping stale reading session %s", id), err)
			}
			continue
		}

		session, err := db.LoadReadingSession(id)
		if err != nil {
			log.Error(fmt.Sprintf("loading reading session %s", id), err)
			continue
		}
		manager.Restore(session)
		restored++
	}
	return restored
}
