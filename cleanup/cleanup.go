// Package cleanup removes leftovers from previous runs of the bot.
package cleanup

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	logger "github.com/EasterCompany/dex-assistant-service/log"
)

// Bulk delete rejects messages older than two weeks.
const bulkDeleteWindow = 14 * 24 * time.Hour

// Result holds the outcome of a cleanup task.
type Result struct {
	Name        string
	Count       int
	Description string
}

// ClearChannel bulk deletes the most recent messages in a channel, sparing
// the given message id and anything too old for the bulk endpoint.
func ClearChannel(s *discordgo.Session, channelID string, ignoreMessageID string, log logger.Logger) Result {
	res := Result{Name: "ClearChannel", Description: fmt.Sprintf("ch: %s", channelID)}
	if channelID == "" {
		return res
	}

	messages, err := s.ChannelMessages(channelID, 100, "", "", "")
	if err != nil {
		log.Error(fmt.Sprintf("fetching messages to clear from %s", channelID), err)
		return res
	}

	ids := deletableIDs(messages, ignoreMessageID)
	if len(ids) == 0 {
		return res
	}

	if err := s.ChannelMessagesBulkDelete(channelID, ids); err != nil {
		log.Error(fmt.Sprintf("bulk deleting %d messages from %s", len(ids), channelID), err)
		return res
	}
	res.Count = len(ids)
	return res
}

func deletableIDs(messages []*discordgo.Message, ignoreMessageID string) []string {
	var ids []string
	for _, msg := range messages {
		if msg.ID == ignoreMessageID && ignoreMessageID != "" {
			continue
		}
		if time.Since(msg.Timestamp) > bulkDeleteWindow {
			continue
		}
		ids = append(ids, msg.ID)
	}
	return ids
}

// CleanStaleStreams finds the bot's own response messages that were left
// mid-stream by the previous shutdown and marks them as interrupted.
func CleanStaleStreams(s *discordgo.Session, channelID string, log logger.Logger) Result {
	res := Result{Name: "CleanStaleStreams", Description: fmt.Sprintf("ch: %s", channelID)}
	if channelID == "" {
		return res
	}

	messages, err := s.ChannelMessages(channelID, 100, "", "", "")
	if err != nil {
		log.Error(fmt.Sprintf("fetching messages to inspect in %s", channelID), err)
		return res
	}

	for _, msg := range messages {
		if msg.Author == nil || msg.Author.ID != s.State.User.ID || !isStaleStream(msg.Content) {
			continue
		}
		marked := msg.Content + "\n*(interrupted by restart)*"
		if _, err := s.ChannelMessageEdit(channelID, msg.ID, marked); err == nil {
			res.Count++
		}
		// Pace the edits; this runs across many channels at boot.
		time.Sleep(300 * time.Millisecond)
	}
	return res
}

func isStaleStream(content string) bool {
	return content == "..." || strings.HasSuffix(content, "▌")
}
