package monitor

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/jonathan/jobtriage/internal/types"
)

// Mail monitor defaults
const (
	DefaultMailInterval   = 60 * time.Second
	DefaultReconnectDelay = 30 * time.Second
)

// MailSource is an inbox connection
type MailSource interface {
	Connect(ctx context.Context) error
	FetchUnseen(ctx context.Context) ([]types.RawMessage, error)
	MarkSeen(ctx context.Context, id string) error
	Close() error
}

// MailMonitor polls an inbox for unseen messages
type MailMonitor struct {
	source         MailSource
	seen           SeenStore
	handle         Handler
	Interval       time.Duration
	ReconnectDelay time.Duration
	logger         *slog.Logger
}

// NewMailMonitor wires a monitor with default timings.
func NewMailMonitor(source MailSource, seen SeenStore, handle Handler, logger *slog.Logger) *MailMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &MailMonitor{
		source:         source,
		seen:           seen,
		handle:         handle,
		Interval:       DefaultMailInterval,
		ReconnectDelay: DefaultReconnectDelay,
		logger:         logger.With(slog.String("monitor", "mail")),
	}
}

// Run connects and polls until ctx is cancelled. Connection or fetch errors
// trigger a reconnect no sooner than ReconnectDelay after the previous
// attempt. It only returns when ctx is done.
func (m *MailMonitor) Run(ctx context.Context) error {
	reconnect := rate.NewLimiter(rate.Every(m.ReconnectDelay), 1)
	for {
		if err := reconnect.Wait(ctx); err != nil {
			return nil
		}
		if err := m.source.Connect(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			m.logger.Error("inbox connection failed", slog.Any("error", err), slog.Duration("retry_in", m.ReconnectDelay))
			continue
		}

		err := m.watch(ctx)
		_ = m.source.Close()
		if ctx.Err() != nil {
			m.logger.Info("mail monitor stopped")
			return nil
		}
		m.logger.Warn("inbox connection lost, reconnecting", slog.Any("error", err))
	}
}

func (m *MailMonitor) watch(ctx context.Context) error {
	m.logger.Info("watching inbox for new messages", slog.Duration("interval", m.Interval))
	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()

	for {
		if err := m.Poll(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Poll runs one fetch-and-handle pass. Only a fetch error is returned.
func (m *MailMonitor) Poll(ctx context.Context) error {
	msgs, err := m.source.FetchUnseen(ctx)
	if err != nil {
		return err
	}
	if len(msgs) > 0 {
		m.logger.Info("unseen messages", slog.Int("count", len(msgs)))
	}
	for _, msg := range msgs {
		if ctx.Err() != nil {
			return nil
		}
		m.process(ctx, msg)
	}
	return nil
}

func (m *MailMonitor) process(ctx context.Context, msg types.RawMessage) {
	log := m.logger.With(slog.String("id", msg.ID), slog.String("from", msg.From))
	source := string(types.SourceEmail)

	done, err := m.seen.Seen(ctx, source, msg.ID)
	if err != nil {
		log.Error("seen lookup failed", slog.Any("error", err))
		return
	}
	if !done {
		log.Info("processing message", slog.String("subject", msg.Subject))
		if err := m.handle(ctx, msg); err != nil {
			log.Error("message handling failed", slog.Any("error", err))
		}
		if err := m.seen.Mark(ctx, source, msg.ID, msg.ReceivedAt); err != nil {
			log.Error("failed to record message", slog.Any("error", err))
		}
	} else {
		log.Debug("already processed")
	}

	if err := m.source.MarkSeen(ctx, msg.ID); err != nil {
		log.Warn("failed to flag message seen", slog.Any("error", err))
	}
}
