// Package mail adapts an IMAP inbox and an SMTP relay to the pipeline:
// inbound messages become types.RawMessage, approved applications go out with
// the resume attached.
package mail

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	_ "github.com/emersion/go-message/charset"
	gomessage "github.com/emersion/go-message/mail"

	"github.com/jonathan/jobtriage/internal/types"
)

// DefaultParseTimeout bounds parsing of one message
const DefaultParseTimeout = 10 * time.Second

// hashBodyPrefix is how much body text feeds the fallback ID
const hashBodyPrefix = 500

// MessageID returns the Message-Id header when present, otherwise a sha256
// over sender, subject, date and the first 500 bytes of content.
func MessageID(headerID, from, subject string, date time.Time, content string) string {
	if id := strings.Trim(strings.TrimSpace(headerID), "<>"); id != "" {
		return id
	}
	h := sha256.New()
	h.Write([]byte(from))
	h.Write([]byte(subject))
	if !date.IsZero() {
		h.Write([]byte(date.UTC().Format(time.RFC3339Nano)))
	}
	if len(content) > hashBodyPrefix {
		content = content[:hashBodyPrefix]
	}
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}

// DisplayName returns name when set, otherwise the local part of addr.
func DisplayName(name, addr string) string {
	if n := strings.Trim(strings.TrimSpace(name), `"'`); n != "" {
		return n
	}
	if at := strings.IndexByte(addr, '@'); at > 0 {
		return addr[:at]
	}
	return addr
}

// BodyText prefers the plain-text part. HTML-only messages are converted to
// markdown, falling back to goquery text when conversion fails.
func BodyText(plain, html string) string {
	if p := strings.TrimSpace(plain); p != "" {
		return p
	}
	if strings.TrimSpace(html) == "" {
		return ""
	}
	md, err := htmltomarkdown.ConvertString(html)
	if err == nil && strings.TrimSpace(md) != "" {
		return strings.TrimSpace(md)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// Parse reads one RFC 5322 message into a RawMessage.
func Parse(r io.Reader) (types.RawMessage, error) {
	mr, err := gomessage.CreateReader(r)
	if err != nil {
		return types.RawMessage{}, fmt.Errorf("failed to read message: %w", err)
	}
	defer func() { _ = mr.Close() }()

	h := mr.Header
	msg := types.RawMessage{Source: types.SourceEmail}

	msg.Subject, _ = h.Subject()
	if from, err := h.AddressList("From"); err == nil && len(from) > 0 {
		msg.From = strings.ToLower(from[0].Address)
		msg.FromName = DisplayName(from[0].Name, from[0].Address)
	} else {
		msg.From = strings.TrimSpace(decodeHeader(h.Get("From")))
		msg.FromName = DisplayName("", msg.From)
	}
	msg.ReceivedAt, _ = h.Date()
	if ids, err := h.MsgIDList("In-Reply-To"); err == nil && len(ids) > 0 {
		msg.InReplyTo = ids[0]
	}
	if refs, err := h.MsgIDList("References"); err == nil {
		msg.References = refs
	}

	var plain, html strings.Builder
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// keep whatever parts were readable
			break
		}
		ih, ok := p.Header.(*gomessage.InlineHeader)
		if !ok {
			continue
		}
		ct, _, _ := ih.ContentType()
		body, err := io.ReadAll(p.Body)
		if err != nil {
			continue
		}
		switch ct {
		case "text/plain", "":
			plain.Write(body)
		case "text/html":
			html.Write(body)
		}
	}
	msg.Body = BodyText(plain.String(), html.String())

	headerID, _ := h.MessageID()
	msg.ID = MessageID(headerID, h.Get("From"), msg.Subject, msg.ReceivedAt, plain.String()+" "+html.String())
	return msg, nil
}

// ParseWithTimeout runs Parse but gives up after timeout. A stalled reader
// is abandoned, not closed.
func ParseWithTimeout(ctx context.Context, r io.Reader, timeout time.Duration) (types.RawMessage, error) {
	if timeout <= 0 {
		timeout = DefaultParseTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type parsed struct {
		msg types.RawMessage
		err error
	}
	done := make(chan parsed, 1)
	go func() {
		msg, err := Parse(r)
		done <- parsed{msg, err}
	}()

	select {
	case res := <-done:
		return res.msg, res.err
	case <-ctx.Done():
		return types.RawMessage{}, fmt.Errorf("email parsing timed out after %s: %w", timeout, ctx.Err())
	}
}

// decodeHeader decodes RFC 2047 words, returning s unchanged on failure.
func decodeHeader(s string) string {
	dec := new(mime.WordDecoder)
	out, err := dec.DecodeHeader(s)
	if err != nil {
		return s
	}
	return out
}
