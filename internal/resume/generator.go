package resume

import (
	"log/slog"

	"github.com/jonathan/jobtriage/internal/profile"
	"github.com/jonathan/jobtriage/internal/ranking"
	"github.com/jonathan/jobtriage/internal/rendering"
	"github.com/jonathan/jobtriage/internal/types"
)

// EntryMeta records what was selected for one experience entry.
type EntryMeta struct {
	Company  string `json:"company"`
	Role     string `json:"role"`
	Target   int    `json:"target"`
	Selected int    `json:"selected"`
	Scores   []int  `json:"scores"`
}

// Metadata describes the selections behind a generated resume.
type Metadata struct {
	Cloud           types.Cloud     `json:"cloud"`
	Stack           string          `json:"stack"`
	RoleTrack       types.RoleTrack `json:"roleTrack"`
	SummarySource   string          `json:"summarySource"`
	SummaryBullets  int             `json:"summaryBullets"`
	HighlightCounts map[string]int  `json:"highlightCounts"`
	Entries         []EntryMeta     `json:"entries"`
	DroppedEntries  []string        `json:"droppedEntries,omitempty"`
	SkillLabels     []string        `json:"skillLabels"`
	TriggersApplied []string        `json:"triggersApplied,omitempty"`
}

// Result is a generated resume
type Result struct {
	Document *rendering.Document `json:"-"`
	LaTeX    string              `json:"-"`
	Metadata Metadata            `json:"metadata"`
	Stack    CloudStack          `json:"-"`
}

// Generator builds resumes. The zero value is not usable; call NewGenerator.
type Generator struct {
	// TemplatePath overrides the built-in LaTeX template when set
	TemplatePath   string
	MaxSkillBlocks int
	logger         *slog.Logger
}

// NewGenerator creates a generator
func NewGenerator(logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{MaxSkillBlocks: ranking.MaxSkillBlocks, logger: logger}
}

// Generate selects profile content for the analysis and renders it.
// The analysis is normalized on a copy; the caller's value is not modified.
func (g *Generator) Generate(p *types.CandidateProfile, analysis *types.JDAnalysis) (*Result, error) {
	if p == nil {
		return nil, &GenerationError{Message: "profile is nil"}
	}
	a := types.JDAnalysis{}
	if analysis != nil {
		a = *analysis
	}
	a.Normalize()

	doc, meta, stack := g.Build(p, &a)

	var (
		latex string
		err   error
	)
	if g.TemplatePath != "" {
		latex, err = rendering.RenderLaTeXWithTemplate(doc, g.TemplatePath)
	} else {
		latex, err = rendering.RenderLaTeX(doc)
	}
	if err != nil {
		return nil, &GenerationError{Message: "failed to render LaTeX", Cause: err}
	}

	g.logger.Info("generated resume",
		slog.String("cloud", string(meta.Cloud)),
		slog.String("role_track", string(meta.RoleTrack)),
		slog.String("summary", meta.SummarySource),
		slog.Int("entries", len(meta.Entries)),
		slog.Int("dropped", len(meta.DroppedEntries)),
		slog.Int("skill_blocks", len(meta.SkillLabels)),
	)
	return &Result{Document: doc, LaTeX: latex, Metadata: meta, Stack: stack}, nil
}

// Build assembles the document model without rendering it. a must already be normalized.
func (g *Generator) Build(p *types.CandidateProfile, a *types.JDAnalysis) (*rendering.Document, Metadata, CloudStack) {
	stack := StackFor(a.CloudFocus)
	meta := Metadata{
		Cloud:           a.CloudFocus,
		Stack:           string(stack.Cloud),
		RoleTrack:       a.RoleTrack,
		HighlightCounts: make(map[string]int),
		TriggersApplied: a.Triggers.Active(),
	}

	doc := &rendering.Document{Header: header(p)}
	doc.Summary, meta.SummarySource = SummaryBullets(p, a, stack)
	meta.SummaryBullets = len(doc.Summary)

	for _, e := range p.Experiences {
		target := profile.TargetFor(e)
		filled := make([]types.ExperienceHighlight, len(e.Highlights))
		for i, h := range e.Highlights {
			filled[i] = types.ExperienceHighlight{Text: FillPlaceholders(h.Text, stack), Tags: h.Tags}
		}

		selected := ranking.SelectHighlights(filled, a, target)
		if len(selected) == 0 {
			meta.DroppedEntries = append(meta.DroppedEntries, e.Company)
			g.logger.Debug("dropped experience entry with no highlights", slog.String("company", e.Company))
			continue
		}

		section := rendering.ExperienceSection{
			Company:    e.Company,
			Role:       e.Role,
			Location:   e.Location,
			DateRange:  rendering.FormatDateRange(e.StartDate, e.EndDate),
			Highlights: make([]string, 0, len(selected)),
		}
		em := EntryMeta{Company: e.Company, Role: e.Role, Target: target, Selected: len(selected)}
		for _, s := range selected {
			section.Highlights = append(section.Highlights, s.Text)
			em.Scores = append(em.Scores, s.Score)
		}
		doc.Experiences = append(doc.Experiences, section)
		meta.Entries = append(meta.Entries, em)
		meta.HighlightCounts[e.Company] += len(selected)
	}

	for _, ed := range p.Education {
		doc.Education = append(doc.Education, rendering.EducationSection{
			Institution: ed.Institution,
			Degree:      ed.Degree,
			Location:    ed.Location,
			DateRange:   educationDates(ed),
		})
	}

	blocks := make([]types.SkillBlock, len(p.Skills))
	for i, b := range p.Skills {
		items := make([]string, len(b.Items))
		for j, item := range b.Items {
			items[j] = FillPlaceholders(item, stack)
		}
		blocks[i] = types.SkillBlock{Label: b.Label, Items: items}
	}
	for _, s := range ranking.SelectSkills(blocks, a, stack.Terms(), g.maxSkills()) {
		doc.Skills = append(doc.Skills, rendering.SkillLine{Label: s.Block.Label, Items: s.Block.Items})
		meta.SkillLabels = append(meta.SkillLabels, s.Block.Label)
	}

	return doc, meta, stack
}

func (g *Generator) maxSkills() int {
	if g.MaxSkillBlocks > 0 {
		return g.MaxSkillBlocks
	}
	return ranking.MaxSkillBlocks
}

func header(p *types.CandidateProfile) rendering.Header {
	return rendering.Header{
		Name:     p.Name,
		Title:    p.Title,
		Location: p.Location,
		Email:    p.Email,
		Phone:    p.Phone,
		LinkedIn: p.Links.LinkedIn,
		GitHub:   p.Links.GitHub,
		Website:  p.Links.Website,
	}
}

// education lines with no start date show only the end year
func educationDates(e types.EducationEntry) string {
	if e.StartDate == "" {
		return e.EndDate
	}
	return rendering.FormatDateRange(e.StartDate, e.EndDate)
}
