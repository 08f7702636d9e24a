// Package mcpserver exposes the triage pipeline as MCP tools over stdio.
package mcpserver

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonathan/jobtriage/internal/classifier"
	"github.com/jonathan/jobtriage/internal/pipeline"
	"github.com/jonathan/jobtriage/internal/types"
)

// Submitter runs a JD through generation and queues it.
type Submitter interface {
	Submit(ctx context.Context, text string, source types.Provenance) (*pipeline.Outcome, error)
}

// Lister reads the approval queue.
type Lister interface {
	List(ctx context.Context, status types.Status) ([]types.Submission, error)
}

// Deps are the collaborators behind the tools. Each tool is registered only
// when its collaborator is set.
type Deps struct {
	Gate      pipeline.Classifier
	Extractor pipeline.Analyzer
	Submitter Submitter
	Queue     Lister
	Logger    *slog.Logger
}

// ClassifyInput is the input of classify_message.
type ClassifyInput struct {
	Subject  string `json:"subject,omitempty" jsonschema:"Message subject line (email) or empty for chat"`
	Body     string `json:"body" jsonschema:"Message body text"`
	From     string `json:"from,omitempty" jsonschema:"Sender address"`
	FromName string `json:"from_name,omitempty" jsonschema:"Sender display name"`
	Source   string `json:"source,omitempty" jsonschema:"Channel the message arrived on: email, chat or manual (default email)"`
}

// ClassifyOutput is the gate decision.
type ClassifyOutput struct {
	Accept    bool          `json:"accept"`
	Decision  string        `json:"decision"`
	Verdict   types.Verdict `json:"verdict"`
	Escalated bool          `json:"escalated"`
}

// AnalyzeInput is the input of analyze_jd.
type AnalyzeInput struct {
	JobDescription string `json:"job_description" jsonschema:"Full job description text"`
}

// AnalyzeOutput is the structured JD analysis plus pattern-parsed fields.
type AnalyzeOutput struct {
	Analysis  types.JDAnalysis `json:"analysis"`
	Parsed    types.ParsedJD   `json:"parsed"`
	Questions []string         `json:"questions,omitempty"`
}

// SubmitInput is the input of submit_jd.
type SubmitInput struct {
	JobDescription string `json:"job_description" jsonschema:"Full job description text"`
	Source         string `json:"source,omitempty" jsonschema:"Provenance: manual (default, skips the gate), chat or email"`
}

// SubmitOutput reports whether the JD was queued for approval.
type SubmitOutput struct {
	Queued   bool     `json:"queued"`
	Skipped  bool     `json:"skipped"`
	ID       string   `json:"id,omitempty"`
	Role     string   `json:"role,omitempty"`
	EmailTo  string   `json:"email_to,omitempty"`
	Reason   string   `json:"reason,omitempty"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// ListInput is the input of list_pending.
type ListInput struct {
	Status string `json:"status,omitempty" jsonschema:"Filter by status: pending (default), approved, rejected, changes_requested or all"`
}

// SubmissionSummary is one queue entry without the LaTeX and email body.
type SubmissionSummary struct {
	ID           string `json:"id"`
	CreatedAt    string `json:"created_at"`
	Status       string `json:"status"`
	Source       string `json:"source"`
	Role         string `json:"role"`
	Cloud        string `json:"cloud"`
	Location     string `json:"location,omitempty"`
	EmailTo      string `json:"email_to,omitempty"`
	EmailSubject string `json:"email_subject"`
	Valid        bool   `json:"valid"`
}

// ListOutput is the filtered queue.
type ListOutput struct {
	Submissions []SubmissionSummary `json:"submissions"`
	Count       int                 `json:"count"`
}

// New creates an MCP server with the tools deps can serve.
func New(deps Deps, version string) *mcp.Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "jobtriage",
		Version: version,
	}, nil)

	count := 0
	if deps.Gate != nil {
		registerClassify(server, deps.Gate)
		count++
	}
	if deps.Extractor != nil {
		registerAnalyze(server, deps.Extractor)
		count++
	}
	if deps.Submitter != nil {
		registerSubmit(server, deps.Submitter)
		count++
	}
	if deps.Queue != nil {
		registerListPending(server, deps.Queue)
		count++
	}
	logger.Info("tools registered", slog.Int("count", count))
	return server
}

// Run serves over stdin/stdout until ctx is cancelled or the client hangs up.
func Run(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

func registerClassify(server *mcp.Server, gate pipeline.Classifier) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "classify_message",
		Description: "Decide whether an email or chat message is a job description worth applying to. Runs the rule-based gate and escalates uncertain messages to the model. Returns accept/reject with the deciding rule and the keyword signals.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input ClassifyInput) (*mcp.CallToolResult, ClassifyOutput, error) {
		if strings.TrimSpace(input.Body) == "" && strings.TrimSpace(input.Subject) == "" {
			return nil, ClassifyOutput{}, errors.New("subject or body is required")
		}
		source := types.SourceEmail
		if input.Source != "" {
			source = types.NormalizeProvenance(input.Source)
		}
		v := gate.Classify(ctx, types.RawMessage{
			Source:     source,
			From:       input.From,
			FromName:   input.FromName,
			Subject:    input.Subject,
			Body:       input.Body,
			ReceivedAt: time.Now(),
		})
		decision := "reject"
		if v.Accept {
			decision = "accept"
		}
		return nil, ClassifyOutput{Accept: v.Accept, Decision: decision, Verdict: v, Escalated: v.Escalated}, nil
	})
}

func registerAnalyze(server *mcp.Server, extractor pipeline.Analyzer) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze_jd",
		Description: "Extract a structured analysis from a job description: title, company, required and preferred skills, cloud focus (aws/azure/gcp), role track, domain, seniority and keyword triggers. Also returns the recruiter contact, location and any application questions found in the text.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input AnalyzeInput) (*mcp.CallToolResult, AnalyzeOutput, error) {
		text := strings.TrimSpace(input.JobDescription)
		if text == "" {
			return nil, AnalyzeOutput{}, errors.New("job_description is required")
		}
		a := extractor.Analyze(ctx, text, types.SourceManual)
		out := AnalyzeOutput{
			Parsed:    classifier.ParseJD(text),
			Questions: classifier.ApplicationQuestions(text),
		}
		if a != nil {
			out.Analysis = *a
		}
		if out.Analysis.RequiredSkills == nil {
			out.Analysis.RequiredSkills = []string{}
		}
		return nil, out, nil
	})
}

func registerSubmit(server *mcp.Server, submitter Submitter) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "submit_jd",
		Description: "Generate a tailored resume PDF and application email for a job description and queue them for human approval. Nothing is sent until the submission is approved on the dashboard. Returns the queue ID, or the validation errors that kept it out of the queue.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input SubmitInput) (*mcp.CallToolResult, SubmitOutput, error) {
		text := strings.TrimSpace(input.JobDescription)
		if text == "" {
			return nil, SubmitOutput{}, errors.New("job_description is required")
		}
		outcome, err := submitter.Submit(ctx, text, types.NormalizeProvenance(input.Source))
		if outcome == nil {
			if err == nil {
				err = errors.New("no outcome")
			}
			return nil, SubmitOutput{}, err
		}

		out := SubmitOutput{
			Queued:   outcome.Queued,
			Skipped:  outcome.Skipped,
			Errors:   outcome.Errors,
			Warnings: outcome.Validation.Warnings,
		}
		if outcome.Verdict != nil && outcome.Skipped {
			out.Reason = outcome.Verdict.Reason
		}
		if sub := outcome.Submission; sub != nil {
			out.ID = sub.ID
			out.Role = sub.Parsed.Role
			out.EmailTo = sub.EmailTo
		}
		// validation failures are reported in the output, not as tool errors
		if err != nil && len(out.Errors) == 0 {
			out.Errors = []string{err.Error()}
		}
		return nil, out, nil
	})
}

func registerListPending(server *mcp.Server, queue Lister) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_pending",
		Description: "List submissions in the approval queue, newest last. Defaults to pending ones; pass status=all for everything.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input ListInput) (*mcp.CallToolResult, ListOutput, error) {
		var status types.Status
		switch s := strings.ToLower(strings.TrimSpace(input.Status)); s {
		case "":
			status = types.StatusPending
		case "all":
		case string(types.StatusPending), string(types.StatusApproved), string(types.StatusRejected), string(types.StatusChangesRequested):
			status = types.Status(s)
		default:
			return nil, ListOutput{}, errors.New("unknown status " + s)
		}

		subs, err := queue.List(ctx, status)
		if err != nil {
			return nil, ListOutput{}, err
		}
		out := ListOutput{Submissions: make([]SubmissionSummary, 0, len(subs)), Count: len(subs)}
		for _, s := range subs {
			out.Submissions = append(out.Submissions, SubmissionSummary{
				ID:           s.ID,
				CreatedAt:    s.CreatedAt.Format(time.RFC3339),
				Status:       string(s.Status),
				Source:       string(s.Source),
				Role:         s.Parsed.Role,
				Cloud:        string(s.Parsed.Cloud),
				Location:     s.Parsed.Location,
				EmailTo:      s.EmailTo,
				EmailSubject: s.EmailSubject,
				Valid:        s.Validation.OK,
			})
		}
		return nil, out, nil
	})
}
