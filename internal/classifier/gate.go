package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"

	"github.com/jonathan/jobtriage/internal/llm"
	"github.com/jonathan/jobtriage/internal/prompts"
	"github.com/jonathan/jobtriage/internal/schemas"
	"github.com/jonathan/jobtriage/internal/types"
)

// Decision is what a single rule concludes about a message
type Decision int

const (
	// Pass hands the message to the next rule
	Pass Decision = iota
	// Accept ends the cascade with a JD verdict
	Accept
	// Reject ends the cascade with a not-a-JD verdict
	Reject
	// Escalate ends the cascade by asking the language model
	Escalate
)

func (d Decision) String() string {
	switch d {
	case Accept:
		return "accept"
	case Reject:
		return "reject"
	case Escalate:
		return "escalate"
	default:
		return "pass"
	}
}

// Rule is one named step of the gate.
type Rule struct {
	Name  string
	Apply func(s *Signals) (Decision, string)
}

// Rule names, in evaluation order
const (
	RuleReplyOrForward    = "reply_or_forward"
	RuleExcludedSender    = "excluded_sender"
	RuleNewsletterSubject = "newsletter_subject"
	RuleStrongSubject     = "strong_subject"
	RuleModerateSubject   = "moderate_subject"
	RuleContentOnly       = "content_only"
	RuleUncertain         = "uncertain"
	RuleDefaultReject     = "default_reject"
)

// DefaultRules returns the gate cascade. The last rule never passes.
func DefaultRules() []Rule {
	return []Rule{
		{Name: RuleReplyOrForward, Apply: func(s *Signals) (Decision, string) {
			if s.Message.IsReplyThread() || replyPrefix.MatchString(s.Subject) {
				return Reject, "reply or forwarded thread"
			}
			return Pass, ""
		}},
		{Name: RuleExcludedSender, Apply: func(s *Signals) (Decision, string) {
			for _, d := range excludedSenders {
				if strings.Contains(s.Sender, d) {
					return Reject, fmt.Sprintf("excluded sender %q", d)
				}
			}
			return Pass, ""
		}},
		{Name: RuleNewsletterSubject, Apply: func(s *Signals) (Decision, string) {
			for _, re := range excludedSubjects {
				if re.MatchString(s.Subject) {
					return Reject, fmt.Sprintf("newsletter/alert subject (matched %s)", re.String())
				}
			}
			return Pass, ""
		}},
		{Name: RuleStrongSubject, Apply: func(s *Signals) (Decision, string) {
			if s.HasTitle() && s.LocationCue {
				return Accept, fmt.Sprintf("strong subject: job title %q with location", s.TitleKeyword)
			}
			return Pass, ""
		}},
		{Name: RuleModerateSubject, Apply: func(s *Signals) (Decision, string) {
			if s.HasTitle() && (s.CoreMatches >= 2 || s.TechMatches > 0 || s.Opportunity) {
				return Accept, fmt.Sprintf("job title %q with signals: core=%d tech=%d opportunity=%t",
					s.TitleKeyword, s.CoreMatches, s.TechMatches, s.Opportunity)
			}
			return Pass, ""
		}},
		{Name: RuleContentOnly, Apply: func(s *Signals) (Decision, string) {
			if s.CoreMatches >= 6 {
				return Accept, fmt.Sprintf("strong content: %d/%d core indicators", s.CoreMatches, len(CoreIndicators))
			}
			return Pass, ""
		}},
		{Name: RuleUncertain, Apply: func(s *Signals) (Decision, string) {
			if (s.HasTitle() && s.CoreMatches >= 1) || s.CoreMatches >= 3 {
				return Escalate, fmt.Sprintf("uncertain: title=%t core=%d", s.HasTitle(), s.CoreMatches)
			}
			return Pass, ""
		}},
		{Name: RuleDefaultReject, Apply: func(s *Signals) (Decision, string) {
			return Reject, fmt.Sprintf("no job signals: title=%t core=%d/%d tech=%d",
				s.HasTitle(), s.CoreMatches, len(CoreIndicators), s.TechMatches)
		}},
	}
}

// DefaultEscalationTimeout bounds the model call for uncertain messages
const DefaultEscalationTimeout = 30 * time.Second

// snippetRunes is how much body text the escalation prompt carries
const snippetRunes = 800

// Stats counts gate outcomes since the gate was created
type Stats struct {
	Total     int64 `json:"total"`
	Accepted  int64 `json:"accepted"`
	Escalated int64 `json:"escalated"`
}

// EscalationRate is the fraction of classified messages that reached the model.
func (s Stats) EscalationRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Escalated) / float64(s.Total)
}

// Gate is the binary "is this a JD" classifier
type Gate struct {
	rules   []Rule
	client  llm.Client
	timeout time.Duration
	logger  *slog.Logger

	total, accepted, escalated atomic.Int64
}

// GateOption configures a Gate
type GateOption func(*Gate)

// WithRules replaces the rule cascade.
func WithRules(rules []Rule) GateOption {
	return func(g *Gate) { g.rules = rules }
}

// WithEscalationTimeout overrides DefaultEscalationTimeout.
func WithEscalationTimeout(d time.Duration) GateOption {
	return func(g *Gate) { g.timeout = d }
}

// WithGateLogger sets the logger.
func WithGateLogger(l *slog.Logger) GateOption {
	return func(g *Gate) { g.logger = l }
}

// NewGate builds a gate. A nil client makes every escalation a reject.
func NewGate(client llm.Client, opts ...GateOption) *Gate {
	g := &Gate{
		rules:   DefaultRules(),
		client:  client,
		timeout: DefaultEscalationTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Rules returns the rule names in evaluation order.
func (g *Gate) Rules() []string {
	names := make([]string, len(g.rules))
	for i, r := range g.rules {
		names[i] = r.Name
	}
	return names
}

// Stats returns a snapshot of the counters.
func (g *Gate) Stats() Stats {
	return Stats{
		Total:     g.total.Load(),
		Accepted:  g.accepted.Load(),
		Escalated: g.escalated.Load(),
	}
}

// Classify runs the cascade. It never returns an error: model failures on the
// uncertain band resolve to reject.
func (g *Gate) Classify(ctx context.Context, msg types.RawMessage) types.Verdict {
	s := Scan(msg)
	v := types.Verdict{
		CoreMatches:  s.CoreMatches,
		TechMatches:  s.TechMatches,
		TitleKeyword: s.HasTitle(),
		LocationCue:  s.LocationCue,
	}

	for _, rule := range g.rules {
		decision, reason := rule.Apply(s)
		if decision == Pass {
			continue
		}
		v.Rule, v.Reason = rule.Name, reason
		switch decision {
		case Accept:
			v.Accept = true
		case Escalate:
			v.Escalated = true
			v.Accept, v.Reason = g.escalate(ctx, s)
		}
		break
	}
	if v.Rule == "" {
		v.Rule, v.Reason = RuleDefaultReject, "no rule matched"
	}

	g.total.Add(1)
	if v.Accept {
		g.accepted.Add(1)
	}
	if v.Escalated {
		g.escalated.Add(1)
	}

	g.logger.Info("gate verdict",
		slog.String("id", msg.ID),
		slog.String("source", string(msg.Source)),
		slog.Bool("accept", v.Accept),
		slog.String("rule", v.Rule),
		slog.String("reason", v.Reason),
	)
	return v
}

func (g *Gate) escalate(ctx context.Context, s *Signals) (bool, string) {
	if g.client == nil {
		return false, "uncertain: no model configured, rejecting"
	}

	from := s.Message.From
	if s.Message.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.Message.FromName, s.Message.From)
	}
	prompt, err := prompts.Render(prompts.ClassifierFile, prompts.GateKey, map[string]string{
		"From":    from,
		"Subject": s.Subject,
		"Snippet": prompts.QuoteExternal("message", truncateRunes(s.Message.Body, snippetRunes)),
	})
	if err != nil {
		g.logger.Error("gate prompt unavailable", slog.Any("error", err))
		return false, "uncertain: prompt unavailable, rejecting"
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	raw, err := g.client.GenerateJSON(ctx, prompt, llm.TierLite)
	if err != nil {
		g.logger.Warn("gate model call failed", slog.Any("error", err))
		return false, "uncertain: model call failed, rejecting"
	}
	raw = llm.CleanJSONBlock(raw)
	if err := schemas.Validate(schemas.GateVerdict, []byte(raw)); err != nil {
		g.logger.Warn("gate model returned invalid verdict", slog.Any("error", err))
		return false, "uncertain: unparseable model verdict, rejecting"
	}

	isJob := gjson.Get(raw, "isJob").Bool()
	reasoning := strings.TrimSpace(gjson.Get(raw, "reasoning").String())
	if reasoning == "" {
		reasoning = "no reasoning given"
	}
	if isJob {
		return true, "model: job (" + reasoning + ")"
	}
	return false, "model: not a job (" + reasoning + ")"
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
