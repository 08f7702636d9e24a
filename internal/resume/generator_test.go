package resume

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/jobtriage/internal/ranking"
	"github.com/jonathan/jobtriage/internal/types"
)

func testProfile() *types.CandidateProfile {
	return &types.CandidateProfile{
		Name:  "Jordan Lee",
		Title: "AI Engineer",
		Email: "jordan@example.com",
		Phone: "+1 555 0100",
		Summary: types.Summary{
			Base: "Builds LLM systems on {PRIMARY_CLOUD}. Builds LLM systems on {PRIMARY_CLOUD}. Ships agents.",
		},
		Experiences: []types.ExperienceEntry{
			{
				Company:          "Northwind",
				Role:             "Senior AI Engineer",
				StartDate:        "Jan 2023",
				TargetHighlights: 2,
				Highlights: []types.ExperienceHighlight{
					{Text: "Served models with {model_serving}", Tags: types.HighlightTags{Clouds: []string{"aws"}, RoleTracks: []string{"genai_platform"}, Priority: 1}},
					{Text: "Built a dispute agent on {k8s}", Tags: types.HighlightTags{RoleTracks: []string{"agentic_ai"}, Priority: 2}},
					{Text: "Served models with {model_serving}", Tags: types.HighlightTags{Clouds: []string{"aws"}, RoleTracks: []string{"genai_platform"}, Priority: 1}},
					{Text: "Tuned {search} retrieval", Tags: types.HighlightTags{Clouds: []string{"AWS"}, Keywords: []string{"retrieval"}}},
				},
			},
			{Company: "Empty Co", Role: "Intern"},
			{
				Company:   "Contoso Health",
				Role:      "Data Scientist",
				StartDate: "Jun 2019",
				EndDate:   "Dec 2022",
				Highlights: []types.ExperienceHighlight{
					{Text: "Forecast clinic demand with time-series models", Tags: types.HighlightTags{Priority: 2}},
				},
			},
		},
		Skills: []types.SkillBlock{
			{Label: "Languages", Items: []string{"Python", "Go"}},
			{Label: "Cloud", Items: []string{"{k8s}", "Terraform"}},
			{Label: "Empty"},
		},
		Education: []types.EducationEntry{{Institution: "State University", Degree: "MS", EndDate: "2019"}},
	}
}

func awsPlatformAnalysis() *types.JDAnalysis {
	return &types.JDAnalysis{
		Title:          "Senior AI Engineer",
		CloudFocus:     "AWS",
		RoleTrack:      types.TrackGenAIPlatform,
		RequiredSkills: []string{"Python"},
		Keywords:       []string{"retrieval"},
	}
}

func TestGenerate(t *testing.T) {
	a := awsPlatformAnalysis()
	res, err := NewGenerator(nil).Generate(testProfile(), a)
	require.NoError(t, err)

	assert.Equal(t, types.Cloud("AWS"), a.CloudFocus, "caller's analysis is not normalized in place")

	doc := res.Document
	assert.Equal(t, []string{"Builds LLM systems on AWS.", "Ships agents."}, doc.Summary)

	require.Len(t, doc.Experiences, 2)
	assert.Equal(t, "Northwind", doc.Experiences[0].Company)
	assert.Equal(t, []string{
		"Served models with vLLM on EKS",
		"Tuned Amazon OpenSearch (BM25 + k-NN) retrieval",
	}, doc.Experiences[0].Highlights)
	assert.Equal(t, "Jan 2023 -- Present", doc.Experiences[0].DateRange)
	assert.Equal(t, "Contoso Health", doc.Experiences[1].Company)

	require.Len(t, doc.Skills, 2)
	assert.Equal(t, "Cloud", doc.Skills[0].Label)
	assert.Equal(t, []string{"Amazon EKS", "Terraform"}, doc.Skills[0].Items)
	assert.Equal(t, "Languages", doc.Skills[1].Label)

	require.Len(t, doc.Education, 1)
	assert.Equal(t, "2019", doc.Education[0].DateRange)

	meta := res.Metadata
	assert.Equal(t, types.CloudAWS, meta.Cloud)
	assert.Equal(t, types.TrackGenAIPlatform, meta.RoleTrack)
	assert.Equal(t, SummaryBase, meta.SummarySource)
	assert.Equal(t, []string{"Empty Co"}, meta.DroppedEntries)
	assert.Equal(t, map[string]int{"Northwind": 2, "Contoso Health": 1}, meta.HighlightCounts)
	assert.Equal(t, []int{8, 5}, meta.Entries[0].Scores)
	assert.Equal(t, 7, meta.Entries[1].Target)
	assert.Equal(t, []string{"Cloud", "Languages"}, meta.SkillLabels)

	assert.Contains(t, res.LaTeX, `\item Served models with vLLM on EKS`)
	assert.Contains(t, res.LaTeX, `\textbf{Cloud:} Amazon EKS, Terraform`)
	assert.NotContains(t, res.LaTeX, `\{`)
}

func TestGenerate_BulletBudget(t *testing.T) {
	for _, c := range append([]types.Cloud{types.CloudNone}, types.Clouds...) {
		t.Run(string(c), func(t *testing.T) {
			p := testProfile()
			res, err := NewGenerator(nil).Generate(p, &types.JDAnalysis{CloudFocus: c})
			require.NoError(t, err)

			for i, section := range res.Document.Experiences {
				assert.LessOrEqual(t, len(section.Highlights), res.Metadata.Entries[i].Target)
				seen := map[string]bool{}
				for _, h := range section.Highlights {
					key := ranking.NormalizeText(h)
					assert.False(t, seen[key], "duplicate highlight %q", h)
					seen[key] = true
					assert.Empty(t, Unresolved(h))
				}
			}
		})
	}
}

func TestGenerate_NilInputs(t *testing.T) {
	g := NewGenerator(nil)

	_, err := g.Generate(nil, awsPlatformAnalysis())
	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)

	res, err := g.Generate(testProfile(), nil)
	require.NoError(t, err)
	assert.Equal(t, types.CloudNone, res.Metadata.Cloud)
	assert.Equal(t, "azure", res.Metadata.Stack)
	require.Len(t, res.Document.Skills, 2)
	assert.Equal(t, "Languages", res.Document.Skills[0].Label, "no cloud bonus without a target cloud")
	assert.Contains(t, res.Document.Skills[1].Items, "AKS")
}

func TestGenerate_CustomTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mini.tex")
	require.NoError(t, os.WriteFile(path, []byte(`{{range .Experiences}}{{.Company}};{{end}}`), 0o644))

	g := NewGenerator(nil)
	g.TemplatePath = path
	res, err := g.Generate(testProfile(), awsPlatformAnalysis())
	require.NoError(t, err)
	assert.Equal(t, "Northwind;Contoso Health;", res.LaTeX)

	g.TemplatePath = filepath.Join(t.TempDir(), "missing.tex")
	_, err = g.Generate(testProfile(), awsPlatformAnalysis())
	var genErr *GenerationError
	assert.ErrorAs(t, err, &genErr)
}
