// Package chat polls a chat channel for pasted job descriptions and posts
// approval notifications back.
package chat

import (
	"context"
	"time"
)

// Message is one chat message
type Message struct {
	ID         string
	ChannelID  string
	AuthorID   string
	AuthorName string
	Text       string
	Timestamp  time.Time
	FromMe     bool
}

// Client is a chat transport. Poll returns messages newer than since, oldest
// first. An empty recipient in Send means the client's default channel.
type Client interface {
	Poll(ctx context.Context, since time.Time, limit int) ([]Message, error)
	Send(ctx context.Context, recipient, text string) error
}
