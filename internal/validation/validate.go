// Package validation runs structural sanity checks over a generated resume
// before it is queued for approval.
package validation

import (
	"github.com/jonathan/jobtriage/internal/rendering"
	"github.com/jonathan/jobtriage/internal/resume"
	"github.com/jonathan/jobtriage/internal/types"
)

// DefaultMaxPages is the page budget used when Options.MaxPages is zero
const DefaultMaxPages = 2

// MaxNonASCII is how many non-ASCII characters the LaTeX may contain
const MaxNonASCII = 10

// Violation types
const (
	TypeNonASCII       = "non_ascii"
	TypeMissingSection = "missing_section"
	TypeBulletCount    = "bullet_count"
	TypeDuplicate      = "duplicate_highlight"
	TypeBoldInBullet   = "bold_in_bullet"
	TypePlaceholder    = "unresolved_placeholder"
	TypeCloudMismatch  = "cloud_mismatch"
	TypePageBudget     = "page_budget"
)

// Options carries the generation context the checks compare against.
type Options struct {
	// Entries are the per-entry targets, aligned with Document.Experiences
	Entries []resume.EntryMeta
	// ExpectEducation requires an Education section
	ExpectEducation bool
	// Pages is the compiled page count; zero skips the page budget check
	Pages    int
	MaxPages int
}

// Validate runs every check and summarizes the findings.
func Validate(latex string, a *types.JDAnalysis, doc *rendering.Document, opts Options) types.ValidationResult {
	return Check(latex, a, doc, opts).Result()
}

// Check runs every check and returns the individual findings.
func Check(latex string, a *types.JDAnalysis, doc *rendering.Document, opts Options) *types.Violations {
	var vs []types.Violation
	vs = append(vs, checkNonASCII(latex)...)
	vs = append(vs, checkSections(latex, opts.ExpectEducation)...)
	vs = append(vs, checkBoldInBullets(latex)...)
	vs = append(vs, checkPlaceholders(latex, doc)...)
	if doc != nil {
		vs = append(vs, checkEntries(doc, opts.Entries)...)
		cloud := types.CloudNone
		if a != nil {
			cloud = types.NormalizeCloud(string(a.CloudFocus))
		}
		vs = append(vs, checkCloudAlignment(doc, cloud)...)
	}
	vs = append(vs, checkPageBudget(opts.Pages, opts.MaxPages)...)
	return &types.Violations{Violations: vs}
}
