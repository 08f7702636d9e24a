package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/jonathan/jobtriage/internal/types"
)

// IMAPConfig holds inbox connection settings
type IMAPConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Mailbox      string
	DialTimeout  time.Duration
	ParseTimeout time.Duration
	TLS          *tls.Config
}

// IMAPFetcher reads unseen messages from one mailbox. Messages are fetched
// with PEEK so they stay unseen until MarkSeen.
type IMAPFetcher struct {
	cfg    IMAPConfig
	logger *slog.Logger

	mu     sync.Mutex
	client *client.Client
	uids   map[string]uint32
}

// NewIMAPFetcher creates an unconnected fetcher.
func NewIMAPFetcher(cfg IMAPConfig, logger *slog.Logger) *IMAPFetcher {
	if cfg.Port == 0 {
		cfg.Port = 993
	}
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 30 * time.Second
	}
	if cfg.ParseTimeout == 0 {
		cfg.ParseTimeout = DefaultParseTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IMAPFetcher{cfg: cfg, logger: logger, uids: make(map[string]uint32)}
}

// Connect dials over TLS, logs in and selects the mailbox. Any previous
// connection is dropped first.
func (f *IMAPFetcher) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closeLocked()
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := net.JoinHostPort(f.cfg.Host, strconv.Itoa(f.cfg.Port))
	tlsCfg := f.cfg.TLS
	if tlsCfg == nil {
		tlsCfg = &tls.Config{ServerName: f.cfg.Host, MinVersion: tls.VersionTLS12}
	}

	c, err := client.DialWithDialerTLS(&net.Dialer{Timeout: f.cfg.DialTimeout}, addr, tlsCfg)
	if err != nil {
		return fmt.Errorf("imap dial %s: %w", addr, err)
	}
	if err := c.Login(f.cfg.User, f.cfg.Password); err != nil {
		_ = c.Logout()
		return fmt.Errorf("imap login: %w", err)
	}
	if _, err := c.Select(f.cfg.Mailbox, false); err != nil {
		_ = c.Logout()
		return fmt.Errorf("imap select %s: %w", f.cfg.Mailbox, err)
	}

	f.client = c
	f.logger.Info("imap connected", slog.String("addr", addr), slog.String("mailbox", f.cfg.Mailbox))
	return nil
}

// FetchUnseen returns every unseen message in the mailbox. Messages that fail
// to parse are logged and skipped.
func (f *IMAPFetcher) FetchUnseen(ctx context.Context) ([]types.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.client == nil {
		return nil, fmt.Errorf("imap: not connected")
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	uids, err := f.client.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("imap search: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}

	seq := new(imap.SeqSet)
	seq.AddNum(uids...)
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- f.client.UidFetch(seq, items, messages)
	}()

	out := make([]types.RawMessage, 0, len(uids))
	for m := range messages {
		body := m.GetBody(section)
		if body == nil {
			continue
		}
		raw, err := ParseWithTimeout(ctx, body, f.cfg.ParseTimeout)
		if err != nil {
			f.logger.Warn("skipping unparseable message", slog.Uint64("uid", uint64(m.Uid)), slog.Any("error", err))
			continue
		}
		f.uids[raw.ID] = m.Uid
		out = append(out, raw)
	}
	if err := <-done; err != nil {
		return out, fmt.Errorf("imap fetch: %w", err)
	}
	return out, nil
}

// MarkSeen sets \Seen on a message returned by the last FetchUnseen.
func (f *IMAPFetcher) MarkSeen(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.client == nil {
		return fmt.Errorf("imap: not connected")
	}
	uid, ok := f.uids[id]
	if !ok {
		return fmt.Errorf("imap: no uid for message %s", id)
	}

	seq := new(imap.SeqSet)
	seq.AddNum(uid)
	flags := []interface{}{imap.SeenFlag}
	if err := f.client.UidStore(seq, imap.FormatFlagsOp(imap.AddFlags, true), flags, nil); err != nil {
		return fmt.Errorf("imap store: %w", err)
	}
	delete(f.uids, id)
	return nil
}

// Close logs out.
func (f *IMAPFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeLocked()
	return nil
}

func (f *IMAPFetcher) closeLocked() {
	if f.client == nil {
		return
	}
	if err := f.client.Logout(); err != nil {
		f.logger.Debug("imap logout", slog.Any("error", err))
	}
	f.client = nil
	f.uids = make(map[string]uint32)
}
