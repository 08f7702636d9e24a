package compose

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jonathan/jobtriage/internal/classifier"
	"github.com/jonathan/jobtriage/internal/llm"
	"github.com/jonathan/jobtriage/internal/prompts"
	"github.com/jonathan/jobtriage/internal/schemas"
	"github.com/jonathan/jobtriage/internal/types"
)

// DefaultTimeout bounds the drafting model call
const DefaultTimeout = 30 * time.Second

const maxPromptJDRunes = 6000

// Input is what an email is composed from
type Input struct {
	Analysis *types.JDAnalysis
	Profile  *types.CandidateProfile
	JDText   string
	// Parsed is derived from JDText when nil
	Parsed *types.ParsedJD
}

// Email is a composed application email
type Email struct {
	Subject    string   `json:"subject"`
	Greeting   string   `json:"greeting"`
	Paragraphs []string `json:"paragraphs"`
	Details    string   `json:"details,omitempty"`
	Signature  string   `json:"signature"`
	FromModel  bool     `json:"fromModel"`
}

// Body returns the two paragraphs separated by a blank line.
func (e *Email) Body() string {
	return strings.Join(e.Paragraphs, "\n\n")
}

// Full returns the complete message text.
func (e *Email) Full() string {
	parts := []string{e.Greeting, e.Body()}
	if e.Details != "" {
		parts = append(parts, e.Details)
	}
	parts = append(parts, e.Signature)
	return strings.Join(parts, "\n\n")
}

// DraftError is a failed model draft. Compose recovers from it with the template email.
type DraftError struct {
	Stage   string
	Message string
	Cause   error
}

func (e *DraftError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("email draft %s: %s: %v", e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("email draft %s: %s", e.Stage, e.Message)
}

func (e *DraftError) Unwrap() error {
	return e.Cause
}

// Composer writes application emails
type Composer struct {
	client   llm.Client
	logger   *slog.Logger
	maxWords int
	timeout  time.Duration
}

// Option configures a Composer
type Option func(*Composer)

// WithMaxWords sets the body word ceiling
func WithMaxWords(n int) Option {
	return func(c *Composer) { c.maxWords = n }
}

// WithTimeout bounds the model call
func WithTimeout(d time.Duration) Option {
	return func(c *Composer) { c.timeout = d }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(c *Composer) { c.logger = l }
}

// NewComposer creates a composer. A nil client always uses the template email.
func NewComposer(client llm.Client, opts ...Option) *Composer {
	c := &Composer{client: client, logger: slog.Default(), maxWords: DefaultMaxWords, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compose always returns an email: a model draft shaped into the fixed
// form, or the template email when drafting fails.
func (c *Composer) Compose(ctx context.Context, in Input) *Email {
	a := types.JDAnalysis{}
	if in.Analysis != nil {
		a = *in.Analysis
	}
	a.Normalize()
	if in.Profile == nil {
		in.Profile = &types.CandidateProfile{}
	}
	parsed := in.Parsed
	if parsed == nil {
		p := classifier.ParseJD(in.JDText)
		parsed = &p
	}

	title := CleanTitle(a.Title)
	opening := Opening(a.Provenance, title, a.Company)
	email := &Email{
		Greeting:  Greeting(&a, parsed),
		Signature: Signature(in.Profile),
	}
	if parsed.HasApplicationQuestions {
		email.Details = ApplicationDetails(in.Profile, classifier.ApplicationQuestions(in.JDText))
	}

	subject, body, err := c.draft(ctx, &a, in, title, opening)
	if err != nil {
		c.logger.Warn("email draft failed, using template", slog.Any("error", err))
		subject, body = "", templateBody(&a, opening)
	} else {
		email.FromModel = true
	}

	email.Subject = Subject(subject, title, in.Profile.Name)
	email.Paragraphs = Shape(body, opening, a.Provenance, c.maxWords)

	c.logger.Info("composed email",
		slog.String("subject", email.Subject),
		slog.Bool("from_model", email.FromModel),
		slog.Int("words", WordCount(email.Body())),
		slog.Bool("details", email.Details != ""),
	)
	return email
}

func (c *Composer) draft(ctx context.Context, a *types.JDAnalysis, in Input, title, opening string) (subject, body string, err error) {
	if c.client == nil {
		return "", "", &DraftError{Stage: "model", Message: "no model configured"}
	}

	prompt, err := prompts.Render(prompts.ComposeFile, prompts.EmailKey, map[string]string{
		"MaxWords":       fmt.Sprint(c.maxWords),
		"Opening":        opening,
		"Title":          title,
		"Name":           in.Profile.Name,
		"CandidateTitle": in.Profile.Title,
		"Skills":         topSkills(in.Profile, 8),
		"Requirements":   requirements(a),
		"JobDescription": prompts.QuoteExternal("job description", truncate(in.JDText, maxPromptJDRunes)),
	})
	if err != nil {
		return "", "", &DraftError{Stage: "prompt", Message: "failed to build prompt", Cause: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.client.GenerateJSON(ctx, prompt, llm.TierStandard)
	if err != nil {
		return "", "", &DraftError{Stage: "model", Message: "model call failed", Cause: err}
	}
	cleaned := llm.CleanJSONBlock(raw)
	if err := schemas.Validate(schemas.EmailDraft, []byte(cleaned)); err != nil {
		return "", "", &DraftError{Stage: "schema", Message: "response does not match schema", Cause: err}
	}
	var draft struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := json.Unmarshal([]byte(cleaned), &draft); err != nil {
		return "", "", &DraftError{Stage: "decode", Message: "failed to decode draft", Cause: err}
	}
	return draft.Subject, draft.Body, nil
}

// templateBody is the deterministic email used when no model draft is available.
func templateBody(a *types.JDAnalysis, opening string) string {
	skills := firstN(a.RequiredSkills, 2)
	if len(skills) == 0 {
		skills = firstN(a.Technologies, 2)
	}
	skillText := "AI/ML technologies"
	if len(skills) > 0 {
		skillText = strings.Join(skills, " and ")
	}
	company := a.Company
	if company == "" {
		company = "your team"
	}
	return opening + " With hands-on experience in " + skillText +
		", I am confident I can make immediate contributions.\n\n" +
		"I would welcome the opportunity to discuss how my background can benefit " + company +
		". My resume is attached for your review."
}

func requirements(a *types.JDAnalysis) string {
	var lines []string
	for _, s := range firstN(append(append([]string{}, a.MustHaveKeywords...), a.RequiredSkills...), 8) {
		lines = append(lines, "- "+s)
	}
	if len(lines) == 0 {
		return "- (none listed)"
	}
	return strings.Join(lines, "\n")
}

func topSkills(p *types.CandidateProfile, n int) string {
	var items []string
	for _, b := range p.Skills {
		items = append(items, b.Items...)
	}
	return strings.Join(firstN(items, n), ", ")
}

func firstN(list []string, n int) []string {
	var out []string
	for _, s := range list {
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		out = append(out, s)
		if len(out) == n {
			break
		}
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
