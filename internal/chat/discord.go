package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// MaxMessageRunes is Discord's per-message content limit
const MaxMessageRunes = 2000

// discordAPI is the subset of *discordgo.Session used here
type discordAPI interface {
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
}

// Discord talks to one channel over the REST API; no gateway connection is held.
type Discord struct {
	api       discordAPI
	channelID string
	logger    *slog.Logger

	selfOnce sync.Once
	selfID   string
	selfErr  error
}

// NewDiscord creates a bot client for channelID.
func NewDiscord(token, channelID string, logger *slog.Logger) (*Discord, error) {
	if token == "" {
		return nil, fmt.Errorf("discord token is required")
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent
	return newDiscord(session, channelID, logger), nil
}

func newDiscord(api discordAPI, channelID string, logger *slog.Logger) *Discord {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discord{api: api, channelID: channelID, logger: logger}
}

func (d *Discord) self(ctx context.Context) (string, error) {
	d.selfOnce.Do(func() {
		u, err := d.api.User("@me", discordgo.WithContext(ctx))
		if err != nil {
			d.selfErr = fmt.Errorf("discord: resolve bot user: %w", err)
			return
		}
		d.selfID = u.ID
	})
	return d.selfID, d.selfErr
}

// Poll fetches up to limit recent messages from the channel.
func (d *Discord) Poll(ctx context.Context, since time.Time, limit int) ([]Message, error) {
	selfID, err := d.self(ctx)
	if err != nil {
		return nil, err
	}

	msgs, err := d.api.ChannelMessages(d.channelID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("discord: fetch messages: %w", err)
	}

	// the API returns newest first
	out := make([]Message, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m == nil || m.Timestamp.Before(since) {
			continue
		}
		msg := Message{
			ID:        m.ID,
			ChannelID: m.ChannelID,
			Text:      m.Content,
			Timestamp: m.Timestamp,
		}
		if m.Author != nil {
			msg.AuthorID = m.Author.ID
			msg.AuthorName = m.Author.Username
			msg.FromMe = m.Author.ID == selfID
		}
		out = append(out, msg)
	}
	return out, nil
}

// Send posts text to recipient (a channel ID), splitting it into chunks that
// fit the message limit.
func (d *Discord) Send(ctx context.Context, recipient, text string) error {
	channel := recipient
	if channel == "" {
		channel = d.channelID
	}
	for _, chunk := range SplitMessage(text, MaxMessageRunes) {
		if _, err := d.api.ChannelMessageSend(channel, chunk, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("discord: send to %s: %w", channel, err)
		}
	}
	d.logger.Debug("chat message sent", slog.String("channel", channel), slog.Int("chars", len(text)))
	return nil
}

// SplitMessage cuts text into pieces of at most max runes, preferring line
// breaks.
func SplitMessage(text string, max int) []string {
	runes := []rune(text)
	if len(runes) <= max {
		return []string{text}
	}
	var parts []string
	for len(runes) > max {
		cut := max
		for i := max; i > max/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}
