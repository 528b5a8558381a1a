// Package log mirrors service logs to the console and, when configured, to a
// Discord log channel.
package log

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/EasterCompany/dex-assistant-service/utils"
)

// Logger is the logging interface injected into every component.
type Logger interface {
	Post(msg string)
	PostInitialMessage(msg string) (*discordgo.Message, error)
	UpdateInitialMessage(messageID, newContent string)
	Error(context string, err error)
	Fatal(context string, err error)
}

// DiscordLogger logs to the console and mirrors messages into a Discord
// channel once the session is ready.
type DiscordLogger struct {
	session      *discordgo.Session
	logChannelID string
	ready        chan struct{}
	readyOnce    sync.Once
}

// NewLogger creates a logger bound to a Discord session and log channel.
func NewLogger(s *discordgo.Session, channelID string) *DiscordLogger {
	l := &DiscordLogger{
		session:      s,
		logChannelID: channelID,
		ready:        make(chan struct{}),
	}
	s.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		l.readyOnce.Do(func() { close(l.ready) })
	})
	return l
}

// Post sends a message to the log channel, split to fit Discord's message
// size limit.
func (l *DiscordLogger) Post(msg string) {
	if l.session != nil && l.logChannelID != "" {
		<-l.ready
		for _, part := range utils.ChunkString(msg, 2000) {
			_, _ = l.session.ChannelMessageSend(l.logChannelID, part)
		}
	}
}

// PostInitialMessage sends an initial message and returns the message object
// so later updates can edit it in place.
func (l *DiscordLogger) PostInitialMessage(msg string) (*discordgo.Message, error) {
	if l.session == nil || l.logChannelID == "" {
		return nil, fmt.Errorf("log session not initialized")
	}
	<-l.ready
	return l.session.ChannelMessageSend(l.logChannelID, msg)
}

// UpdateInitialMessage edits a previously posted message with new content.
func (l *DiscordLogger) UpdateInitialMessage(messageID, newContent string) {
	if l.session != nil && l.logChannelID != "" {
		_, _ = l.session.ChannelMessageEdit(l.logChannelID, messageID, newContent)
	}
}

// Error logs an error to the console and to the log channel.
func (l *DiscordLogger) Error(context string, err error) {
	msg := fmt.Sprintf("[ERROR] in %s: %s\n%v", callerInfo(), context, err)
	log.Println(msg)
	if l.session != nil && l.logChannelID != "" {
		if len(msg) > 1900 {
			msg = msg[:1900] + "..."
		}
		go l.Post("```\n" + msg + "\n```")
	}
}

// Fatal logs an error and then exits the program.
func (l *DiscordLogger) Fatal(context string, err error) {
	l.Error(context, err)
	os.Exit(1)
}

// ConsoleLogger is the pre-session logger: plain stderr output, no Discord
// mirroring. Used during boot and in the cmd utilities.
type ConsoleLogger struct{}

// NewConsole creates a console-only logger.
func NewConsole() *ConsoleLogger {
	return &ConsoleLogger{}
}

func (l *ConsoleLogger) Post(msg string) {
	log.Println(msg)
}

func (l *ConsoleLogger) PostInitialMessage(msg string) (*discordgo.Message, error) {
	log.Println(msg)
	return nil, nil
}

func (l *ConsoleLogger) UpdateInitialMessage(messageID, newContent string) {}

func (l *ConsoleLogger) Error(context string, err error) {
	log.Printf("[ERROR] in %s: %s\n%v\n", callerInfo(), context, err)
}

func (l *ConsoleLogger) Fatal(context string, err error) {
	l.Error(context, err)
	os.Exit(1)
}

// callerInfo reports the file:line of the code that called into the logger.
func callerInfo() string {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "unknown"
	}
	parts := strings.Split(file, "/")
	if len(parts) > 2 {
		file = strings.Join(parts[len(parts)-2:], "/")
	}
	return fmt.Sprintf("%s:%d", file, line)
}
