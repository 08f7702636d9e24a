package monitor

import (
	"context"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/jonathan/jobtriage/internal/chat"
	"github.com/jonathan/jobtriage/internal/seen"
	"github.com/jonathan/jobtriage/internal/types"
)

// Chat monitor defaults
const (
	DefaultChatInterval = 30 * time.Second
	DefaultChatLimit    = 20
	// MinJDLength is the rune count a chat message must exceed to be a JD
	MinJDLength = 200
)

// ChatMonitor polls one chat channel for pasted JDs
type ChatMonitor struct {
	client   chat.Client
	seen     SeenStore
	handle   Handler
	Interval time.Duration
	Limit    int
	// Cutoff is the earliest message time handled; older ones are recorded
	// as processed without handling.
	Cutoff time.Time
	Cap    int
	Keep   int
	logger *slog.Logger
}

// NewChatMonitor wires a monitor that ignores messages sent before cutoff.
func NewChatMonitor(client chat.Client, seenStore SeenStore, handle Handler, cutoff time.Time, logger *slog.Logger) *ChatMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatMonitor{
		client:   client,
		seen:     seenStore,
		handle:   handle,
		Interval: DefaultChatInterval,
		Limit:    DefaultChatLimit,
		Cutoff:   cutoff,
		Cap:      seen.DefaultCap,
		Keep:     seen.DefaultKeep,
		logger:   logger.With(slog.String("monitor", "chat")),
	}
}

// Run polls until ctx is cancelled. Poll errors are logged and retried on
// the next tick.
func (m *ChatMonitor) Run(ctx context.Context) error {
	m.logger.Info("watching chat channel", slog.Duration("interval", m.Interval), slog.Time("cutoff", m.Cutoff))
	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()

	for {
		if _, err := m.Poll(ctx); err != nil && ctx.Err() == nil {
			m.logger.Error("chat poll failed", slog.Any("error", err))
		}
		select {
		case <-ctx.Done():
			m.logger.Info("chat monitor stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Poll runs one pass and returns how many messages were handed to the handler.
func (m *ChatMonitor) Poll(ctx context.Context) (int, error) {
	msgs, err := m.client.Poll(ctx, time.Time{}, m.Limit)
	if err != nil {
		return 0, err
	}

	source := string(types.SourceChat)
	handled := 0
	for _, msg := range msgs {
		done, err := m.seen.Seen(ctx, source, msg.ID)
		if err != nil {
			return handled, err
		}
		if done {
			continue
		}
		if msg.Timestamp.Before(m.Cutoff) {
			if err := m.seen.Mark(ctx, source, msg.ID, msg.Timestamp); err != nil {
				return handled, err
			}
			continue
		}
		if msg.FromMe || utf8.RuneCountInString(msg.Text) <= MinJDLength {
			continue
		}

		m.logger.Info("processing chat JD", slog.String("id", msg.ID), slog.String("author", msg.AuthorName))
		if err := m.handle(ctx, toRawMessage(msg)); err != nil {
			m.logger.Error("chat JD handling failed", slog.String("id", msg.ID), slog.Any("error", err))
		}
		handled++

		if err := m.seen.Mark(ctx, source, msg.ID, msg.Timestamp); err != nil {
			return handled, err
		}
		if removed, err := m.seen.Prune(ctx, source, m.Cap, m.Keep); err != nil {
			m.logger.Warn("prune failed", slog.Any("error", err))
		} else if removed > 0 {
			m.logger.Info("pruned processed chat ids", slog.Int("removed", removed))
		}
	}
	return handled, nil
}

func toRawMessage(msg chat.Message) types.RawMessage {
	return types.RawMessage{
		ID:         msg.ID,
		Source:     types.SourceChat,
		From:       msg.AuthorID,
		FromName:   msg.AuthorName,
		Body:       msg.Text,
		ReceivedAt: msg.Timestamp,
	}
}
