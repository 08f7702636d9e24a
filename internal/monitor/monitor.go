// Package monitor runs the long-lived inbound loops: an IMAP inbox and a
// chat channel. Each new message is handed to a Handler exactly once.
package monitor

import (
	"context"
	"time"

	"github.com/jonathan/jobtriage/internal/types"
)

// Handler processes one inbound message. Its error is logged; the message is
// still marked processed.
type Handler func(ctx context.Context, msg types.RawMessage) error

// SeenStore remembers processed message IDs per source
type SeenStore interface {
	Seen(ctx context.Context, source, id string) (bool, error)
	Mark(ctx context.Context, source, id string, at time.Time) error
	Prune(ctx context.Context, source string, max, keep int) (int, error)
}
