// Package dashboard maintains a persistent status message in the Discord log
// channel, edited in place on a throttle.
package dashboard

import (
	"time"

	"github.com/bwmarrin/discordgo"
)

// MessageCache holds the cached state of a dashboard
type MessageCache struct {
	MessageID        string
	Content          string
	LastUpdate       time.Time
	LastAPIUpdate    time.Time
	ThrottleDuration time.Duration
}

// Session is a minimal interface for Discord operations
type Session interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEdit(channelID, messageID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Snapshot is one gathered view of the assistant, rendered into the status
// message.
type Snapshot struct {
	Provider        string
	ReadingSessions int
	GatewayClients  int
	QueueDepth      int
	CPUPercent      float64
	MemPercent      float64
	GPULine         string
	// Dependency name -> formatted status line, in Dependencies order.
	Dependencies []string
	Statuses     map[string]string
}
