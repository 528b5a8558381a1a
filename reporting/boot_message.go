// Package reporting builds the startup status messages posted to the log
// channel.
package reporting

import (
	logger "github.com/EasterCompany/dex-assistant-service/log"
)

const bootHeader = "Dexter is starting up..."

// BootMessage is the single log-channel message edited through the boot
// sequence until the final status replaces it.
type BootMessage struct {
	Logger    logger.Logger
	MessageID string
}

// NewBootMessage creates an unposted boot message.
func NewBootMessage(log logger.Logger) *BootMessage {
	return &BootMessage{Logger: log}
}

// PostInitialMessage posts the boot header and remembers the message id so
// Update can edit it in place. Console-only loggers return no message; the
// boot sequence then runs without edits.
func (b *BootMessage) PostInitialMessage() {
	msg, err := b.Logger.PostInitialMessage(bootHeader)
	if err != nil {
		b.Logger.Error("posting boot message", err)
		return
	}
	if msg != nil {
		b.MessageID = msg.ID
	}
}

// Update appends the current boot step under the header.
func (b *BootMessage) Update(status string) {
	if b.MessageID == "" {
		return
	}
	b.Logger.UpdateInitialMessage(b.MessageID, bootHeader+"\n"+status)
}
