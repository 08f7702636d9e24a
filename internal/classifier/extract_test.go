package classifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/jobtriage/internal/types"
)

const sampleJD = "Senior AI Engineer — Remote — 5+ years Python, AWS Bedrock, Kubernetes"

func TestExtractor_Analyze_FromModel(t *testing.T) {
	client := &fakeLLM{response: "```json\n" + `{
		"title": "Senior AI Engineer",
		"company": null,
		"requiredSkills": ["Python", "Kubernetes"],
		"mustHaveKeywords": ["bedrock"],
		"cloudFocus": "AWS",
		"roleTrack": "genai_platform",
		"domainFocus": "generic",
		"seniority": "Senior",
		"triggers": {"nlp": false, "aiDevOps": true}
	}` + "\n```"}

	a := NewExtractor(client, nil).Analyze(context.Background(), sampleJD, types.SourceEmail)

	require.NotNil(t, a)
	assert.Equal(t, "Senior AI Engineer", a.Title)
	assert.Equal(t, types.CloudAWS, a.CloudFocus)
	assert.Equal(t, types.SenioritySenior, a.Seniority)
	assert.Equal(t, types.TrackGenAIPlatform, a.RoleTrack)
	assert.Equal(t, types.SourceEmail, a.Provenance)
	assert.True(t, a.Triggers.AIDevOps)
	assert.Empty(t, a.Company)
	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], sampleJD)
}

func TestExtractor_Analyze_FallsBack(t *testing.T) {
	tests := []struct {
		name   string
		client *fakeLLM
	}{
		{name: "model error", client: &fakeLLM{err: errors.New("quota exceeded")}},
		{name: "missing required field", client: &fakeLLM{response: `{"title":"x","cloudFocus":"aws"}`}},
		{name: "prose", client: &fakeLLM{response: "I could not find a job here."}},
		{name: "timeout", client: &fakeLLM{block: true}},
		{name: "no client"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e *Extractor
			if tt.client == nil {
				e = NewExtractor(nil, nil)
			} else {
				e = NewExtractor(tt.client, nil).WithTimeout(20 * time.Millisecond)
			}

			a := e.Analyze(context.Background(), sampleJD, types.SourceChat)
			require.NotNil(t, a)
			assert.Equal(t, types.CloudAWS, a.CloudFocus)
			assert.Equal(t, types.DomainGeneric, a.DomainFocus)
			assert.Equal(t, types.SenioritySenior, a.Seniority)
			assert.Equal(t, types.Triggers{}, a.Triggers)
			assert.Equal(t, types.SourceChat, a.Provenance)
		})
	}
}

func TestExtractor_Analyze_FillsEmptyModelFields(t *testing.T) {
	const jd = "Position: Staff ML Engineer\nCompany: Acme Robotics\nWe use Python, Kubernetes and Terraform."
	client := &fakeLLM{response: `{
		"title": "",
		"company": null,
		"requiredSkills": [],
		"cloudFocus": "aws",
		"roleTrack": "genai_platform"
	}`}

	a := NewExtractor(client, nil).Analyze(context.Background(), jd, types.SourceManual)

	require.NotNil(t, a)
	assert.Equal(t, "Staff ML Engineer", a.Title)
	assert.Equal(t, "Acme Robotics", a.Company)
	assert.Contains(t, a.RequiredSkills, "Python")
	assert.Contains(t, a.RequiredSkills, "Kubernetes")
	assert.Contains(t, a.MustHaveKeywords, "terraform")
	assert.Equal(t, types.SenioritySenior, a.Seniority)
	assert.Equal(t, types.DomainGeneric, a.DomainFocus)
	assert.Equal(t, types.CloudAWS, a.CloudFocus)
	assert.Equal(t, types.SourceManual, a.Provenance)
}

func TestExtractor_Analyze_ModelFieldsWin(t *testing.T) {
	const jd = "Position: Staff ML Engineer\nCompany: Acme Robotics\nWe use Python."
	client := &fakeLLM{response: `{
		"title": "Machine Learning Engineer",
		"company": "Acme",
		"requiredSkills": ["PyTorch"],
		"cloudFocus": "gcp",
		"roleTrack": "agentic_ai",
		"seniority": "lead"
	}`}

	a := NewExtractor(client, nil).Analyze(context.Background(), jd, types.SourceEmail)

	assert.Equal(t, "Machine Learning Engineer", a.Title)
	assert.Equal(t, "Acme", a.Company)
	assert.Equal(t, []string{"PyTorch"}, a.RequiredSkills)
	assert.Equal(t, types.CloudGCP, a.CloudFocus)
	assert.Equal(t, types.SeniorityLead, a.Seniority)
}

func TestExtractor_Extract_ErrorStages(t *testing.T) {
	tests := []struct {
		name   string
		client *fakeLLM
		stage  string
	}{
		{name: "model", client: &fakeLLM{err: errors.New("boom")}, stage: "model"},
		{name: "schema", client: &fakeLLM{response: `{"title": 3}`}, stage: "schema"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewExtractor(tt.client, nil).Extract(context.Background(), sampleJD)
			var exErr *ExtractionError
			require.ErrorAs(t, err, &exErr)
			assert.Equal(t, tt.stage, exErr.Stage)
		})
	}
}

func TestFallbackAnalysis(t *testing.T) {
	tests := []struct {
		name          string
		text          string
		wantCloud     types.Cloud
		wantTrack     types.RoleTrack
		wantDomain    types.Domain
		wantSeniority types.Seniority
		wantTriggers  types.Triggers
		keyword       string
	}{
		{
			name:          "aws genai",
			text:          sampleJD + "\nBuild RAG pipelines with embeddings and guardrails.",
			wantCloud:     types.CloudAWS,
			wantTrack:     types.TrackGenAIPlatform,
			wantDomain:    types.DomainGeneric,
			wantSeniority: types.SenioritySenior,
			keyword:       "kubernetes",
		},
		{
			name:          "azure agents",
			text:          "AI Engineer\nWe build multi-agent systems with LangGraph and tool calling on Azure AKS.",
			wantCloud:     types.CloudAzure,
			wantTrack:     types.TrackAgenticAI,
			wantDomain:    types.DomainGeneric,
			wantSeniority: types.SeniorityMid,
			keyword:       "langgraph",
		},
		{
			name:          "gcp chatbot",
			text:          "Conversational AI Developer\nDialogflow CX chatbot work on Vertex AI and GKE.",
			wantCloud:     types.CloudGCP,
			wantTrack:     types.TrackChatbotDev,
			wantDomain:    types.DomainGeneric,
			wantSeniority: types.SeniorityMid,
			wantTriggers:  types.Triggers{Chatbot: true},
			keyword:       "dialogflow",
		},
		{
			name:          "oracle devops",
			text:          "Platform Engineer\nOCI and OKE. CI/CD with Jenkins, SonarQube and DevSecOps scanning.",
			wantCloud:     types.CloudOCI,
			wantTrack:     types.TrackAIDevOps,
			wantDomain:    types.DomainGeneric,
			wantSeniority: types.SeniorityMid,
			wantTriggers:  types.Triggers{AIDevOps: true},
		},
		{
			name:          "healthcare nlp",
			text:          "Senior AI Engineer - Remote\n5+ years building clinical NLP for a healthcare provider. HIPAA experience required.",
			wantCloud:     types.CloudNone,
			wantTrack:     types.TrackNLPPromptEngineer,
			wantDomain:    types.DomainHealthcare,
			wantSeniority: types.SenioritySenior,
			wantTriggers:  types.Triggers{Healthcare: true, NLP: true},
		},
		{
			name:          "finance lead by title",
			text:          "Principal Data Scientist\nPredictive models for payments and trading at a fintech.",
			wantCloud:     types.CloudNone,
			wantTrack:     types.TrackDataScienceCore,
			wantDomain:    types.DomainFinance,
			wantSeniority: types.SeniorityLead,
		},
		{
			name:          "government disputes",
			text:          "Lead Engineer, Public Sector\nFedRAMP systems for federal agencies; chargeback and dispute workflows.",
			wantCloud:     types.CloudNone,
			wantTrack:     types.DefaultRoleTrack,
			wantDomain:    types.DomainGovernment,
			wantSeniority: types.SeniorityLead,
			wantTriggers:  types.Triggers{Dispute: true},
		},
		{
			name:          "junior by title",
			text:          "Junior ML Developer\nTime series forecasting with knowledge graph features.",
			wantCloud:     types.CloudNone,
			wantTrack:     types.DefaultRoleTrack,
			wantDomain:    types.DomainGeneric,
			wantSeniority: types.SeniorityJunior,
			wantTriggers:  types.Triggers{TimeSeries: true, KnowledgeGraph: true},
			keyword:       "time series",
		},
		{
			name:          "years decide when the title is silent",
			text:          "Machine Learning Engineer\nYou bring 12+ years of Python and Spark.",
			wantCloud:     types.CloudNone,
			wantTrack:     types.DefaultRoleTrack,
			wantDomain:    types.DomainGeneric,
			wantSeniority: types.SeniorityLead,
		},
		{
			name:          "smallest years figure counts",
			text:          "Machine Learning Engineer\nYou bring 3-5 years of Python; 10 years preferred.",
			wantCloud:     types.CloudNone,
			wantTrack:     types.DefaultRoleTrack,
			wantDomain:    types.DomainGeneric,
			wantSeniority: types.SeniorityMid,
		},
		{
			name:          "no signals",
			text:          "We are looking for someone great.",
			wantCloud:     types.CloudNone,
			wantTrack:     types.DefaultRoleTrack,
			wantDomain:    types.DomainGeneric,
			wantSeniority: types.SeniorityMid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := FallbackAnalysis(tt.text, types.SourceManual)
			assert.Equal(t, tt.wantCloud, a.CloudFocus)
			assert.Equal(t, tt.wantTrack, a.RoleTrack)
			assert.Equal(t, tt.wantDomain, a.DomainFocus)
			assert.Equal(t, tt.wantSeniority, a.Seniority)
			assert.Equal(t, tt.wantTriggers, a.Triggers)
			assert.NotEmpty(t, a.Title)
			assert.NotNil(t, a.RequiredSkills)
			if tt.keyword != "" {
				assert.Contains(t, a.MustHaveKeywords, tt.keyword)
			}
		})
	}
}
