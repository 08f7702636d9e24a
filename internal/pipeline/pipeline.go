// Package pipeline turns an inbound message into a queued, validated
// application: gate, extract, generate, render, compose, validate, enqueue.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/jobtriage/internal/approval"
	"github.com/jonathan/jobtriage/internal/classifier"
	"github.com/jonathan/jobtriage/internal/compose"
	"github.com/jonathan/jobtriage/internal/profile"
	"github.com/jonathan/jobtriage/internal/rendering"
	"github.com/jonathan/jobtriage/internal/resume"
	"github.com/jonathan/jobtriage/internal/types"
	"github.com/jonathan/jobtriage/internal/validation"
)

// Progress steps
const (
	StepGate       = "gate"
	StepAnalysis   = "analysis"
	StepResume     = "resume"
	StepRender     = "render"
	StepEmail      = "email"
	StepValidation = "validation"
	StepQueued     = "queued"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step      string `json:"step"`
	Message   string `json:"message"`
	MessageID string `json:"message_id,omitempty"`
	Content   any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// Classifier decides whether a message is a job description.
type Classifier interface {
	Classify(ctx context.Context, msg types.RawMessage) types.Verdict
}

// Analyzer extracts a JDAnalysis from accepted text.
type Analyzer interface {
	Analyze(ctx context.Context, text string, source types.Provenance) *types.JDAnalysis
}

// Compiler turns LaTeX into a PDF on disk.
type Compiler interface {
	Compile(ctx context.Context, tex, base string) (*rendering.Artifact, error)
}

// EmailComposer drafts the application email.
type EmailComposer interface {
	Compose(ctx context.Context, in compose.Input) *compose.Email
}

// Queue is the part of the approval queue the pipeline writes to.
type Queue interface {
	Enqueue(ctx context.Context, sub types.Submission) (types.Submission, error)
	Get(ctx context.Context, id string) (types.Submission, error)
	Regenerate(ctx context.Context, id string, fn func(*types.Submission) error) (types.Submission, error)
	UpdateEmail(ctx context.Context, id, subject, body string) (types.Submission, error)
}

// Deps are the collaborators of a Pipeline. Gate may be nil, in which case
// every message is treated as accepted.
type Deps struct {
	Profile   *types.CandidateProfile
	Gate      Classifier
	Extractor Analyzer
	Generator *resume.Generator
	Compiler  Compiler
	Composer  EmailComposer
	Queue     Queue
	MaxPages  int
	Logger    *slog.Logger
}

// Outcome is what happened to one message.
type Outcome struct {
	Verdict    *types.Verdict         `json:"verdict,omitempty"`
	Skipped    bool                   `json:"skipped"`
	Analysis   *types.JDAnalysis      `json:"analysis,omitempty"`
	Parsed     types.ParsedJD         `json:"parsed"`
	Metadata   *resume.Metadata       `json:"metadata,omitempty"`
	Artifact   *rendering.Artifact    `json:"artifact,omitempty"`
	Email      *compose.Email         `json:"email,omitempty"`
	Validation types.ValidationResult `json:"validation"`
	Submission *types.Submission      `json:"submission,omitempty"`
	Queued     bool                   `json:"queued"`
	Errors     []string               `json:"errors,omitempty"`
}

// Pipeline processes messages end to end. It is safe for concurrent use when
// its collaborators are.
type Pipeline struct {
	deps Deps
	// OnProgress receives step events; may be nil
	OnProgress ProgressCallback
	logger     *slog.Logger
}

// New creates a pipeline. Profile, Extractor, Generator, Compiler, Composer
// and Queue are required.
func New(deps Deps) (*Pipeline, error) {
	var missing []string
	if deps.Profile == nil {
		missing = append(missing, "profile")
	}
	if deps.Extractor == nil {
		missing = append(missing, "extractor")
	}
	if deps.Generator == nil {
		missing = append(missing, "generator")
	}
	if deps.Compiler == nil {
		missing = append(missing, "compiler")
	}
	if deps.Composer == nil {
		missing = append(missing, "composer")
	}
	if deps.Queue == nil {
		missing = append(missing, "queue")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("pipeline: missing %s", strings.Join(missing, ", "))
	}
	if deps.MaxPages <= 0 {
		deps.MaxPages = validation.DefaultMaxPages
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{deps: deps, logger: logger}, nil
}

type progressKey struct{}

// WithProgress returns a context whose pipeline runs also report to cb, in
// addition to OnProgress. Used for per-request streaming.
func WithProgress(ctx context.Context, cb ProgressCallback) context.Context {
	return context.WithValue(ctx, progressKey{}, cb)
}

// Report delivers event to the callback attached with WithProgress, if any.
func Report(ctx context.Context, event ProgressEvent) {
	if cb, ok := ctx.Value(progressKey{}).(ProgressCallback); ok && cb != nil {
		cb(event)
	}
}

func (p *Pipeline) emitProgress(ctx context.Context, msgID, step, message string, content any) {
	event := ProgressEvent{Step: step, Message: message, MessageID: msgID, Content: content}
	if p.OnProgress != nil {
		p.OnProgress(event)
	}
	Report(ctx, event)
}

// Process runs one inbound message through the pipeline. Messages rejected
// by the gate return a skipped outcome and no error. Manual submissions
// bypass the gate.
func (p *Pipeline) Process(ctx context.Context, msg types.RawMessage) (*Outcome, error) {
	out := &Outcome{}
	if msg.Source != types.SourceManual && p.deps.Gate != nil {
		v := p.deps.Gate.Classify(ctx, msg)
		out.Verdict = &v
		p.emitProgress(ctx, msg.ID, StepGate, fmt.Sprintf("%s: %s", v.Rule, v.Reason), v)
		if !v.Accept {
			out.Skipped = true
			p.logger.Info("message skipped",
				slog.String("id", msg.ID),
				slog.String("rule", v.Rule),
			)
			return out, nil
		}
	}

	built, err := p.build(ctx, msg.ID, jdText(msg), msg.Source, msg)
	if built != nil {
		out.Analysis = built.analysis
		out.Parsed = built.parsed
		out.Metadata = built.metadata
		out.Artifact = built.artifact
		out.Email = built.email
		out.Validation = built.sub.Validation
		out.Errors = built.sub.Validation.Errors
	}
	if err != nil {
		if len(out.Errors) == 0 {
			out.Errors = []string{err.Error()}
		}
		return out, err
	}

	stored, err := p.deps.Queue.Enqueue(ctx, built.sub)
	if err != nil {
		return out, fmt.Errorf("failed to queue submission: %w", err)
	}
	out.Submission = &stored
	out.Queued = true
	p.emitProgress(ctx, msg.ID, StepQueued, "Queued for approval", stored.ID)
	return out, nil
}

// Submit processes pasted or tool-supplied JD text. The gate is skipped for
// manual text; chat and email provenance go through it.
func (p *Pipeline) Submit(ctx context.Context, text string, source types.Provenance) (*Outcome, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("job description is empty")
	}
	return p.Process(ctx, types.RawMessage{Source: source, Body: text})
}

// RegenerateEmail recomposes the email of a stored submission and saves the
// new subject and body.
func (p *Pipeline) RegenerateEmail(ctx context.Context, id string) (types.Submission, error) {
	sub, err := p.deps.Queue.Get(ctx, id)
	if err != nil {
		return types.Submission{}, err
	}

	analysis := sub.Analysis
	if analysis == nil {
		analysis = p.deps.Extractor.Analyze(ctx, sub.JD, sub.Source)
	}
	parsed := classifier.ParseJD(sub.JD)
	applyRecruiter(&parsed, sub.Parsed.RecruiterEmail, sub.Parsed.RecruiterName)

	email := p.deps.Composer.Compose(ctx, compose.Input{
		Analysis: analysis,
		Profile:  p.deps.Profile,
		JDText:   sub.JD,
		Parsed:   &parsed,
	})
	p.emitProgress(ctx, id, StepEmail, "Regenerated email", email)
	return p.deps.Queue.UpdateEmail(ctx, id, email.Subject, email.Full())
}

// Regenerate rebuilds resume and email for a stored submission from its JD
// and returns it to pending. Reviewer comments are kept. A regeneration that
// fails validation leaves the stored record untouched, and a terminal record
// is refused before anything is built.
func (p *Pipeline) Regenerate(ctx context.Context, id string) (types.Submission, error) {
	sub, err := p.deps.Queue.Get(ctx, id)
	if err != nil {
		return types.Submission{}, err
	}
	if !approval.CanTransition(approval.ActionRegenerate, sub.Status) {
		return types.Submission{}, &approval.TransitionError{ID: id, Action: approval.ActionRegenerate, From: sub.Status}
	}
	built, err := p.build(ctx, id, sub.JD, sub.Source, types.RawMessage{
		From:     sub.Parsed.RecruiterEmail,
		FromName: sub.Parsed.RecruiterName,
	})
	if err != nil {
		return types.Submission{}, err
	}
	return p.deps.Queue.Regenerate(ctx, id, func(s *types.Submission) error {
		comments, notify := s.Comments, s.NotifyChannelID
		*s = built.sub
		s.Comments, s.NotifyChannelID = comments, notify
		return nil
	})
}

type buildResult struct {
	analysis *types.JDAnalysis
	parsed   types.ParsedJD
	metadata *resume.Metadata
	artifact *rendering.Artifact
	email    *compose.Email
	sub      types.Submission
}

// build runs everything after the gate. It returns a partially filled result
// alongside any error so callers can report what was produced.
func (p *Pipeline) build(ctx context.Context, msgID, text string, source types.Provenance, msg types.RawMessage) (*buildResult, error) {
	res := &buildResult{}

	res.analysis = p.deps.Extractor.Analyze(ctx, text, source)
	p.emitProgress(ctx, msgID, StepAnalysis,
		fmt.Sprintf("Analyzed %q (%s, %s)", res.analysis.Title, res.analysis.CloudFocus, res.analysis.RoleTrack),
		res.analysis)

	res.parsed = classifier.ParseJD(text)
	if source == types.SourceEmail {
		applyRecruiter(&res.parsed, msg.From, msg.FromName)
	}
	if res.parsed.Role == "" {
		res.parsed.Role = res.analysis.Title
	}

	gen, err := p.deps.Generator.Generate(p.deps.Profile, res.analysis)
	if err != nil {
		return res, fmt.Errorf("resume generation failed: %w", err)
	}
	res.metadata = &gen.Metadata
	p.emitProgress(ctx, msgID, StepResume, "Generated resume", gen.Metadata)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		art, err := p.deps.Compiler.Compile(gCtx, gen.LaTeX, profile.FilenameBase(p.deps.Profile))
		if err != nil {
			return fmt.Errorf("PDF rendering failed: %w", err)
		}
		res.artifact = art
		p.emitProgress(gCtx, msgID, StepRender, fmt.Sprintf("Compiled %d page(s)", art.Pages), art.PDFPath)
		return nil
	})
	g.Go(func() error {
		res.email = p.deps.Composer.Compose(gCtx, compose.Input{
			Analysis: res.analysis,
			Profile:  p.deps.Profile,
			JDText:   text,
			Parsed:   &res.parsed,
		})
		p.emitProgress(gCtx, msgID, StepEmail, "Composed email", res.email.Subject)
		return nil
	})
	if err := g.Wait(); err != nil {
		return res, err
	}

	result := validation.Validate(gen.LaTeX, res.analysis, gen.Document, validation.Options{
		Entries:         gen.Metadata.Entries,
		ExpectEducation: len(p.deps.Profile.Education) > 0,
		Pages:           res.artifact.Pages,
		MaxPages:        p.deps.MaxPages,
	})
	p.emitProgress(ctx, msgID, StepValidation, validationMessage(result), result)

	res.sub = types.Submission{
		JD:     text,
		Source: source,
		Parsed: types.ParsedSummary{
			Role:           res.parsed.Role,
			Cloud:          res.analysis.CloudFocus,
			Location:       res.parsed.Location,
			RecruiterEmail: res.parsed.RecruiterEmail,
			RecruiterName:  res.parsed.RecruiterName,
		},
		LaTeX:        gen.LaTeX,
		PDFPath:      res.artifact.PDFPath,
		TexPath:      res.artifact.TexPath,
		EmailTo:      res.parsed.RecruiterEmail,
		EmailSubject: res.email.Subject,
		EmailBody:    res.email.Full(),
		Validation:   result,
		Analysis:     res.analysis,
	}

	if !result.OK {
		p.logger.Warn("resume failed validation",
			slog.String("id", msgID),
			slog.Any("errors", result.Errors),
		)
		return res, &validation.Error{Errors: result.Errors}
	}
	return res, nil
}

// jdText is what the extractor sees: email subjects carry the title often
// enough to be worth including.
func jdText(msg types.RawMessage) string {
	if msg.Source == types.SourceEmail && strings.TrimSpace(msg.Subject) != "" {
		return strings.TrimSpace(msg.Subject) + "\n\n" + msg.Body
	}
	return msg.Body
}

// applyRecruiter fills recruiter fields the JD text did not provide.
func applyRecruiter(parsed *types.ParsedJD, email, name string) {
	if parsed.RecruiterEmail == "" {
		parsed.RecruiterEmail = strings.ToLower(strings.TrimSpace(email))
	}
	if parsed.RecruiterName == "" {
		parsed.RecruiterName = strings.TrimSpace(name)
	}
}

func validationMessage(r types.ValidationResult) string {
	if r.OK {
		if len(r.Warnings) > 0 {
			return fmt.Sprintf("Validation passed with %d warning(s)", len(r.Warnings))
		}
		return "Validation passed"
	}
	return fmt.Sprintf("Validation failed with %d error(s)", len(r.Errors))
}
