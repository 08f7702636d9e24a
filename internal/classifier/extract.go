package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jonathan/jobtriage/internal/llm"
	"github.com/jonathan/jobtriage/internal/prompts"
	"github.com/jonathan/jobtriage/internal/schemas"
	"github.com/jonathan/jobtriage/internal/types"
)

// DefaultExtractTimeout bounds the extraction model call
const DefaultExtractTimeout = 30 * time.Second

// maxJDRunes caps the JD text sent to the model
const maxJDRunes = 12000

// ExtractionError reports why model extraction failed
type ExtractionError struct {
	Stage   string
	Message string
	Cause   error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extraction failed at %s: %s: %v", e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("extraction failed at %s: %s", e.Stage, e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// Extractor turns accepted JD text into a JDAnalysis
type Extractor struct {
	client  llm.Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewExtractor creates an extractor. A nil client always uses the fallback.
func NewExtractor(client llm.Client, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{client: client, timeout: DefaultExtractTimeout, logger: logger}
}

// WithTimeout returns a copy of the extractor with a different model timeout.
func (e *Extractor) WithTimeout(d time.Duration) *Extractor {
	c := *e
	c.timeout = d
	return &c
}

// Analyze always returns a normalized analysis. Model failures degrade to
// FallbackAnalysis, and fields the model left empty are filled from it.
func (e *Extractor) Analyze(ctx context.Context, text string, source types.Provenance) *types.JDAnalysis {
	a, err := e.extract(ctx, text)
	if err != nil {
		e.logger.Warn("model extraction failed, using keyword fallback", slog.Any("error", err))
		return FallbackAnalysis(text, source)
	}
	if filled := fillEmpty(a, FallbackAnalysis(text, source)); len(filled) > 0 {
		e.logger.Debug("filled empty model fields from fallback", slog.Any("fields", filled))
	}
	a.Provenance = source
	a.Normalize()
	return a
}

// fillEmpty copies fallback values into the fields of a the model left
// empty and returns their JSON names.
func fillEmpty(a, fb *types.JDAnalysis) []string {
	var filled []string
	str := func(dst *string, src, name string) {
		if strings.TrimSpace(*dst) == "" && src != "" {
			*dst = src
			filled = append(filled, name)
		}
	}
	list := func(dst *[]string, src []string, name string) {
		if len(*dst) == 0 && len(src) > 0 {
			*dst = src
			filled = append(filled, name)
		}
	}
	str(&a.Title, fb.Title, "title")
	str(&a.Company, fb.Company, "company")
	str(&a.HiringManager, fb.HiringManager, "hiringManager")
	list(&a.RequiredSkills, fb.RequiredSkills, "requiredSkills")
	list(&a.Keywords, fb.Keywords, "keywords")
	list(&a.MustHaveKeywords, fb.MustHaveKeywords, "mustHaveKeywords")
	if a.CloudFocus == "" {
		a.CloudFocus, filled = fb.CloudFocus, append(filled, "cloudFocus")
	}
	if a.RoleTrack == "" {
		a.RoleTrack, filled = fb.RoleTrack, append(filled, "roleTrack")
	}
	if a.DomainFocus == "" {
		a.DomainFocus, filled = fb.DomainFocus, append(filled, "domainFocus")
	}
	if a.Seniority == "" {
		a.Seniority, filled = fb.Seniority, append(filled, "seniority")
	}
	return filled
}

// Extract runs the model extraction only.
func (e *Extractor) Extract(ctx context.Context, text string) (*types.JDAnalysis, error) {
	a, err := e.extract(ctx, text)
	if err != nil {
		return nil, err
	}
	a.Normalize()
	return a, nil
}

func (e *Extractor) extract(ctx context.Context, text string) (*types.JDAnalysis, error) {
	if e.client == nil {
		return nil, &ExtractionError{Stage: "model", Message: "no model configured"}
	}

	if check := prompts.CheckInjection(text); !check.Safe {
		e.logger.Warn("job description looks like a prompt injection", slog.String("reason", check.Reason))
	}
	prompt, err := prompts.Render(prompts.ClassifierFile, prompts.ExtractKey, map[string]string{
		"JobDescription": prompts.QuoteExternal("job description", truncateRunes(text, maxJDRunes)),
	})
	if err != nil {
		return nil, &ExtractionError{Stage: "prompt", Message: "failed to build prompt", Cause: err}
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	raw, err := e.client.GenerateJSON(ctx, prompt, llm.TierStandard)
	if err != nil {
		return nil, &ExtractionError{Stage: "model", Message: "model call failed", Cause: err}
	}

	cleaned := llm.CleanJSONBlock(raw)
	if err := schemas.Validate(schemas.JDAnalysis, []byte(cleaned)); err != nil {
		return nil, &ExtractionError{Stage: "schema", Message: "response does not match schema", Cause: err}
	}

	var a types.JDAnalysis
	if err := json.Unmarshal([]byte(cleaned), &a); err != nil {
		return nil, &ExtractionError{Stage: "decode", Message: "failed to decode analysis", Cause: err}
	}
	return &a, nil
}
