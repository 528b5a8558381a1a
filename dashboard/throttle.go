package dashboard

import (
	"fmt"
	"time"
)

// Update records the new content and edits the Discord message unless the
// previous edit was inside the throttle window. The cache always keeps the
// latest content so the next push is never stale.
func (mc *MessageCache) Update(session Session, channelID, content string) error {
	mc.Content = content
	mc.LastUpdate = time.Now()

	if time.Since(mc.LastAPIUpdate) < mc.ThrottleDuration {
		return nil
	}
	return mc.push(session, channelID)
}

// Flush edits the Discord message immediately, ignoring the throttle window.
func (mc *MessageCache) Flush(session Session, channelID, content string) error {
	mc.Content = content
	mc.LastUpdate = time.Now()
	return mc.push(session, channelID)
}

func (mc *MessageCache) push(session Session, channelID string) error {
	if mc.MessageID == "" {
		return fmt.Errorf("dashboard message not posted yet")
	}
	if _, err := session.ChannelMessageEdit(channelID, mc.MessageID, mc.Content); err != nil {
		return fmt.Errorf("could not edit dashboard message: %w", err)
	}
	mc.LastAPIUpdate = time.Now()
	return nil
}
