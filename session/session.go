// Package session constructs the Discord session.
package session

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// NewSession creates a new Discord session with the intents the assistant
// needs: guild and DM messages including their content.
func NewSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("could not create discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	return session, nil
}
