package compose

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/jobtriage/internal/llm"
	"github.com/jonathan/jobtriage/internal/types"
)

type fakeLLM struct {
	response string
	err      error
	block    bool
	prompts  []string
}

func (f *fakeLLM) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return f.GenerateJSON(ctx, prompt, tier)
}

func (f *fakeLLM) GenerateJSON(ctx context.Context, prompt string, _ llm.ModelTier) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.response, f.err
}

func (f *fakeLLM) Close() error { return nil }

func candidate() *types.CandidateProfile {
	return &types.CandidateProfile{
		Name:     "Jordan Lee",
		Title:    "AI Engineer",
		Email:    "jordan@example.com",
		Phone:    "+1 555 0100",
		Location: "Austin, TX",
		Links:    types.Links{LinkedIn: "https://linkedin.com/in/jordan"},
		Skills:   []types.SkillBlock{{Label: "Languages", Items: []string{"Python", "Go"}}},
		Application: types.ApplicationProfile{
			VisaStatus:        "US Citizen",
			WillingToRelocate: "Yes",
		},
	}
}

const recruiterJD = "Senior AI Engineer - Remote\nRecruiter: Priya Sharma\n5+ years Python, AWS Bedrock, Kubernetes"

func emailAnalysis() *types.JDAnalysis {
	return &types.JDAnalysis{
		Title:          "Senior AI Engineer",
		RequiredSkills: []string{"Python", "AWS Bedrock", "Kubernetes"},
		Provenance:     types.SourceEmail,
	}
}

func TestCompose_ModelDraft(t *testing.T) {
	client := &fakeLLM{response: "```json\n" + `{"subject":"Application for Senior AI Engineer - Jordan Lee","body":"Hi there,\n\nI came across the Senior AI Engineer position at your company and am very interested in applying. I have shipped Bedrock agents on EKS.\n\nI would love to discuss further.\n\nBest regards,\nJordan"}` + "\n```"}
	c := NewComposer(client)

	email := c.Compose(context.Background(), Input{Analysis: emailAnalysis(), Profile: candidate(), JDText: recruiterJD})

	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], `"Thank you for reaching out regarding the Senior AI Engineer position at your company."`)
	assert.Contains(t, client.prompts[0], "- Python")
	assert.Contains(t, client.prompts[0], "[BEGIN QUOTED JOB DESCRIPTION")

	assert.True(t, email.FromModel)
	assert.Equal(t, "Application for Senior AI Engineer - Jordan Lee", email.Subject)
	assert.Equal(t, "Hi Priya,", email.Greeting)
	assert.Equal(t, []string{
		"Thank you for reaching out regarding the Senior AI Engineer position at your company. I have shipped Bedrock agents on EKS.",
		"I would love to discuss further.",
	}, email.Paragraphs)
	assert.Empty(t, email.Details)
	assert.Equal(t, "Hi Priya,\n\n"+email.Body()+"\n\nBest regards,\nJordan Lee\njordan@example.com\n+1 555 0100\nLinkedIn: https://linkedin.com/in/jordan", email.Full())
}

func TestCompose_FallsBackToTemplate(t *testing.T) {
	tests := []struct {
		name   string
		client llm.Client
		opts   []Option
	}{
		{name: "no model", client: nil},
		{name: "model error", client: &fakeLLM{err: errors.New("quota exceeded")}},
		{name: "not json", client: &fakeLLM{response: "Sure! Here is your email."}},
		{name: "wrong shape", client: &fakeLLM{response: `{"subject":"x"}`}},
		{name: "timeout", client: &fakeLLM{block: true}, opts: []Option{WithTimeout(20 * time.Millisecond)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := emailAnalysis()
			a.Provenance = types.SourceChat
			email := NewComposer(tt.client, tt.opts...).Compose(context.Background(), Input{Analysis: a, Profile: candidate(), JDText: "Build agents."})

			assert.False(t, email.FromModel)
			assert.Equal(t, "Application for Senior AI Engineer - Jordan Lee", email.Subject)
			assert.Equal(t, "Dear Hiring Manager,", email.Greeting)
			require.Len(t, email.Paragraphs, 2)
			assert.Equal(t, "I came across the Senior AI Engineer position at your company and am very interested in applying. "+
				"With hands-on experience in Python and AWS Bedrock, I am confident I can make immediate contributions.", email.Paragraphs[0])
		})
	}
}

func TestCompose_ApplicationDetails(t *testing.T) {
	jd := "Senior AI Engineer\nPlease fill the below details:\nFull Legal Name:\nCurrent Location:\nVisa / Work Permit:\nWilling to relocate:\nLinkedIn URL:"
	email := NewComposer(nil).Compose(context.Background(), Input{Analysis: emailAnalysis(), Profile: candidate(), JDText: jd})

	assert.Equal(t, "APPLICATION DETAILS:\n"+
		"Full Legal Name: Jordan Lee\n"+
		"Current Location: Austin, TX\n"+
		"Visa/Work Permit: US Citizen\n"+
		"Willing to Relocate: Yes\n"+
		"LinkedIn URL: https://linkedin.com/in/jordan", email.Details)

	full := email.Full()
	assert.Less(t, strings.Index(full, DetailsHeader), strings.Index(full, "Best regards,"))
	assert.NotContains(t, email.Body(), DetailsHeader)
}

func TestCompose_ShapeHoldsForEveryChannel(t *testing.T) {
	drafts := []string{
		`{"subject":"s","body":"One paragraph only."}`,
		`{"subject":"s","body":"Thank you for reaching out regarding the Senior AI Engineer position at Acme. ` + strings.Repeat("More detail here. ", 30) + `\n\nBye.\n\nThird."}`,
		`{"subject":"s","body":"Dear Team,\n\nI came across the Senior AI Engineer position. Great fit.\n\nTalk soon."}`,
	}
	for _, src := range []types.Provenance{types.SourceEmail, types.SourceChat, types.SourceManual} {
		for i, d := range drafts {
			a := emailAnalysis()
			a.Provenance = src
			a.Company = "Acme"
			email := NewComposer(&fakeLLM{response: d}).Compose(context.Background(), Input{Analysis: a, Profile: candidate()})

			body := email.Body()
			assert.Equal(t, 1, strings.Count(body, "\n\n"), "%s draft %d", src, i)
			assert.LessOrEqual(t, WordCount(body), DefaultMaxWords, "%s draft %d", src, i)
			assert.True(t, strings.HasPrefix(body, Opening(src, "Senior AI Engineer", "Acme")), "%s draft %d: %q", src, i, body)
		}
	}
}

func TestApplicationDetails_NothingAnswerable(t *testing.T) {
	assert.Empty(t, ApplicationDetails(candidate(), []string{"interviewAvailability", "preferredStartDate"}))
	assert.Empty(t, ApplicationDetails(candidate(), nil))
}

func TestSignature_WithoutLinkedIn(t *testing.T) {
	p := candidate()
	p.Links.LinkedIn = ""
	assert.Equal(t, "Best regards,\nJordan Lee\njordan@example.com\n+1 555 0100", Signature(p))
}
