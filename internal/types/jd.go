package types

import (
	"strings"
)

// Cloud is the cloud platform a JD is focused on
type Cloud string

// Supported cloud focus values
const (
	CloudAzure Cloud = "azure"
	CloudAWS   Cloud = "aws"
	CloudGCP   Cloud = "gcp"
	CloudOCI   Cloud = "oci"
	CloudNone  Cloud = "none"
)

// Clouds lists the concrete providers, excluding none.
var Clouds = []Cloud{CloudAzure, CloudAWS, CloudGCP, CloudOCI}

// NormalizeCloud maps free text onto a Cloud, defaulting to none.
func NormalizeCloud(s string) Cloud {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "azure", "microsoft azure":
		return CloudAzure
	case "aws", "amazon", "amazon web services":
		return CloudAWS
	case "gcp", "google cloud", "google cloud platform":
		return CloudGCP
	case "oci", "oracle", "oracle cloud":
		return CloudOCI
	default:
		return CloudNone
	}
}

// RoleTrack is a coarse category of AI/engineering specialization
type RoleTrack string

// The six role tracks
const (
	TrackAgenticAI         RoleTrack = "agentic_ai"
	TrackChatbotDev        RoleTrack = "chatbot_dev"
	TrackDataScienceCore   RoleTrack = "data_science_core"
	TrackGenAIPlatform     RoleTrack = "genai_platform"
	TrackAIDevOps          RoleTrack = "ai_devops"
	TrackNLPPromptEngineer RoleTrack = "nlp_prompt_engineer"
)

// DefaultRoleTrack is used whenever the track cannot be determined.
const DefaultRoleTrack = TrackGenAIPlatform

// RoleTracks lists all tracks in declaration order.
var RoleTracks = []RoleTrack{
	TrackAgenticAI, TrackChatbotDev, TrackDataScienceCore,
	TrackGenAIPlatform, TrackAIDevOps, TrackNLPPromptEngineer,
}

// NormalizeRoleTrack maps s onto a RoleTrack, defaulting to DefaultRoleTrack.
func NormalizeRoleTrack(s string) RoleTrack {
	v := RoleTrack(strings.ToLower(strings.TrimSpace(s)))
	for _, t := range RoleTracks {
		if v == t {
			return t
		}
	}
	return DefaultRoleTrack
}

// Domain is the industry a JD belongs to
type Domain string

// Domain focus values
const (
	DomainFinance    Domain = "finance"
	DomainHealthcare Domain = "healthcare"
	DomainGovernment Domain = "government"
	DomainGeneric    Domain = "generic"
)

// NormalizeDomain maps s onto a Domain, defaulting to generic.
func NormalizeDomain(s string) Domain {
	switch Domain(strings.ToLower(strings.TrimSpace(s))) {
	case DomainFinance:
		return DomainFinance
	case DomainHealthcare:
		return DomainHealthcare
	case DomainGovernment:
		return DomainGovernment
	default:
		return DomainGeneric
	}
}

// Seniority is the level a JD is hiring for
type Seniority string

// Seniority values
const (
	SeniorityJunior Seniority = "junior"
	SeniorityMid    Seniority = "mid"
	SenioritySenior Seniority = "senior"
	SeniorityLead   Seniority = "lead"
)

// NormalizeSeniority maps s onto a Seniority, defaulting to mid.
func NormalizeSeniority(s string) Seniority {
	switch Seniority(strings.ToLower(strings.TrimSpace(s))) {
	case SeniorityJunior:
		return SeniorityJunior
	case SenioritySenior:
		return SenioritySenior
	case SeniorityLead:
		return SeniorityLead
	default:
		return SeniorityMid
	}
}

// Provenance records which channel a JD arrived on. It only affects email phrasing.
type Provenance string

// Provenance values
const (
	SourceEmail  Provenance = "email"
	SourceChat   Provenance = "chat"
	SourceManual Provenance = "manual"
)

// NormalizeProvenance maps s onto a Provenance, defaulting to manual.
func NormalizeProvenance(s string) Provenance {
	switch Provenance(strings.ToLower(strings.TrimSpace(s))) {
	case SourceEmail:
		return SourceEmail
	case SourceChat, "whatsapp":
		return SourceChat
	default:
		return SourceManual
	}
}

// Triggers are independent keyword flags; several may be true at once.
type Triggers struct {
	PromptEngineering bool `json:"promptEngineering"`
	Chatbot           bool `json:"chatbot"`
	Dispute           bool `json:"dispute"`
	KnowledgeGraph    bool `json:"knowledgeGraph"`
	TimeSeries        bool `json:"timeSeries"`
	AIDevOps          bool `json:"aiDevOps"`
	Healthcare        bool `json:"healthcare"`
	NLP               bool `json:"nlp"`
}

// Active returns the JSON keys of the set flags in declaration order.
// The keys are the same strings used in HighlightTags.Triggers.
func (t Triggers) Active() []string {
	var out []string
	add := func(on bool, key string) {
		if on {
			out = append(out, key)
		}
	}
	add(t.PromptEngineering, "promptEngineering")
	add(t.Chatbot, "chatbot")
	add(t.Dispute, "dispute")
	add(t.KnowledgeGraph, "knowledgeGraph")
	add(t.TimeSeries, "timeSeries")
	add(t.AIDevOps, "aiDevOps")
	add(t.Healthcare, "healthcare")
	add(t.NLP, "nlp")
	return out
}

// JDAnalysis is the structured output of classification
type JDAnalysis struct {
	Title               string     `json:"title"`
	Company             string     `json:"company,omitempty"`
	HiringManager       string     `json:"hiringManager,omitempty"`
	RequiredSkills      []string   `json:"requiredSkills"`
	PreferredSkills     []string   `json:"preferredSkills,omitempty"`
	KeyResponsibilities []string   `json:"keyResponsibilities,omitempty"`
	Technologies        []string   `json:"technologies,omitempty"`
	Keywords            []string   `json:"keywords,omitempty"`
	MustHaveKeywords    []string   `json:"mustHaveKeywords,omitempty"`
	CloudFocus          Cloud      `json:"cloudFocus"`
	RoleTrack           RoleTrack  `json:"roleTrack"`
	DomainFocus         Domain     `json:"domainFocus"`
	Seniority           Seniority  `json:"seniority"`
	Triggers            Triggers   `json:"triggers"`
	Experience          string     `json:"experience,omitempty"`
	Tone                string     `json:"tone,omitempty"`
	Provenance          Provenance `json:"provenance"`
}

// Normalize forces every enum field onto a defined value.
func (a *JDAnalysis) Normalize() {
	a.CloudFocus = NormalizeCloud(string(a.CloudFocus))
	a.RoleTrack = NormalizeRoleTrack(string(a.RoleTrack))
	a.DomainFocus = NormalizeDomain(string(a.DomainFocus))
	a.Seniority = NormalizeSeniority(string(a.Seniority))
	a.Provenance = NormalizeProvenance(string(a.Provenance))
	a.Title = strings.TrimSpace(a.Title)
	if a.Title == "" {
		a.Title = "AI Engineer"
	}
}

// MatchTerms returns the lower-cased, de-duplicated union of the skill and keyword lists.
func (a *JDAnalysis) MatchTerms() []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range [][]string{a.RequiredSkills, a.PreferredSkills, a.Keywords, a.MustHaveKeywords, a.Technologies} {
		for _, term := range list {
			t := strings.ToLower(strings.TrimSpace(term))
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
