package mail

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	gomail "github.com/wneessen/go-mail"

	"github.com/jonathan/jobtriage/internal/types"
)

// SendError is returned when an outgoing message could not be built or delivered
type SendError struct {
	Message string
	Cause   error
}

func (e *SendError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("smtp send: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("smtp send: %s", e.Message)
}

func (e *SendError) Unwrap() error {
	return e.Cause
}

// SMTPConfig holds relay settings. Port 465 uses implicit TLS; other ports
// upgrade with STARTTLS when the server offers it.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// SMTPSender delivers approved applications
type SMTPSender struct {
	cfg    SMTPConfig
	logger *slog.Logger
}

// NewSMTPSender creates a sender. Nothing is dialled until Send.
func NewSMTPSender(cfg SMTPConfig, logger *slog.Logger) *SMTPSender {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = cfg.User
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTPSender{cfg: cfg, logger: logger}
}

// SplitAddresses splits a comma or semicolon separated list.
func SplitAddresses(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// BuildMessage assembles the MIME message, attaching the resume PDF when set.
func BuildMessage(from string, out types.OutgoingEmail) (*gomail.Msg, error) {
	to := SplitAddresses(out.To)
	if len(to) == 0 {
		return nil, &SendError{Message: "no recipient"}
	}

	m := gomail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, &SendError{Message: "invalid sender address", Cause: err}
	}
	if err := m.To(to...); err != nil {
		return nil, &SendError{Message: "invalid recipient address", Cause: err}
	}
	if cc := SplitAddresses(out.CC); len(cc) > 0 {
		if err := m.Cc(cc...); err != nil {
			return nil, &SendError{Message: "invalid cc address", Cause: err}
		}
	}
	m.Subject(out.Subject)
	m.SetBodyString(gomail.TypeTextPlain, out.Body)

	if out.AttachmentPath != "" {
		if _, err := os.Stat(out.AttachmentPath); err != nil {
			return nil, &SendError{Message: "attachment not readable", Cause: err}
		}
		m.AttachFile(out.AttachmentPath)
	}

	m.SetMessageID()
	m.SetDate()
	return m, nil
}

// Send delivers msg and returns its Message-Id.
func (s *SMTPSender) Send(ctx context.Context, msg types.OutgoingEmail) (string, error) {
	m, err := BuildMessage(s.cfg.From, msg)
	if err != nil {
		return "", err
	}

	opts := []gomail.Option{gomail.WithPort(s.cfg.Port)}
	if s.cfg.Port == 465 {
		opts = append(opts, gomail.WithSSL())
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	}
	if s.cfg.User != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.cfg.User),
			gomail.WithPassword(s.cfg.Password),
		)
	}

	c, err := gomail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return "", &SendError{Message: "failed to create client", Cause: err}
	}
	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		return "", &SendError{Message: "delivery failed", Cause: err}
	}

	id := ""
	if ids := m.GetGenHeader(gomail.HeaderMessageID); len(ids) > 0 {
		id = ids[0]
	}
	s.logger.Info("email sent",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("message_id", id),
		slog.Bool("attachment", msg.AttachmentPath != ""),
	)
	return id, nil
}
