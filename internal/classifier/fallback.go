package classifier

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jonathan/jobtriage/internal/types"
)

type cluster[T comparable] struct {
	value    T
	patterns []*regexp.Regexp
}

func words(terms ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(terms))
	for i, t := range terms {
		out[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(t) + `\b`)
	}
	return out
}

var cloudClusters = []cluster[types.Cloud]{
	{types.CloudAzure, words("azure", "aks", "cognitive services", "ai search", "entra id", "key vault", "microsoft cloud")},
	{types.CloudAWS, words("aws", "eks", "sagemaker", "textract", "opensearch", "bedrock", "ec2", "lambda")},
	{types.CloudGCP, words("gcp", "gke", "vertex ai", "vertex", "document ai", "cloud run", "bigquery", "google cloud")},
	{types.CloudOCI, words("oracle cloud", "oci", "oke", "oci generative ai")},
}

var trackClusters = []cluster[types.RoleTrack]{
	{types.TrackAgenticAI, words("agent", "agents", "agentic", "langgraph", "crew", "crewai", "multi-agent", "tool calling", "planning")},
	{types.TrackChatbotDev, words("chatbot", "watson", "lex", "dialogflow", "kore.ai", "moveworks", "voice gateway")},
	{types.TrackDataScienceCore, words("predictive", "experiments", "a/b", "bi", "tableau", "hadoop", "sql-heavy")},
	{types.TrackGenAIPlatform, words("rag", "vector db", "embedding", "embeddings", "evaluation", "guardrails", "groundedness")},
	{types.TrackAIDevOps, words("ci/cd", "gitlab", "jenkins", "artifactory", "sonarqube", "blue/green", "sast", "dast", "mlops", "devsecops", "observability")},
	{types.TrackNLPPromptEngineer, words("prompt", "specification", "pl/sql", "extraction", "validation", "red-teaming", "nlp", "ner", "hugging face", "transformers", "spacy", "nltk", "document understanding")},
}

var domainClusters = []cluster[types.Domain]{
	{types.DomainFinance, words("banking", "bank", "fintech", "payments", "trading", "financial services")},
	{types.DomainHealthcare, words("clinical", "medical", "hipaa", "healthcare", "health care", "patient", "patients")},
	{types.DomainGovernment, words("federal", "gov", "government", "public sector", "dod", "fedramp")},
}

// seniorityTitles is checked in order against the title and first line, so
// "Senior Lead" reads as lead.
var seniorityTitles = []cluster[types.Seniority]{
	{types.SeniorityLead, words("principal", "lead", "architect", "manager", "head of", "director")},
	{types.SenioritySenior, words("senior", "sr", "staff")},
	{types.SeniorityJunior, words("junior", "jr", "entry level", "entry-level", "associate", "intern")},
	{types.SeniorityMid, words("mid-level", "mid level", "intermediate")},
}

// yearsPattern finds "5+ years", "3-5 years", "10 yrs"; the lower bound counts.
var yearsPattern = regexp.MustCompile(`(?i)\b(\d{1,2})\s*\+?\s*(?:(?:-|–|to)\s*\d{1,2}\s*)?(?:years?|yrs?)\b`)

// triggerTerms feed the independent trigger flags.
var triggerTerms = struct {
	promptEngineering, chatbot, dispute, knowledgeGraph, timeSeries, aiDevOps, healthcare, nlp []*regexp.Regexp
}{
	promptEngineering: words("prompt engineering", "specification prompts", "prompt design", "llm prompt"),
	chatbot:           words("chatbot", "chatbots", "watson", "dialogflow", "lex", "moveworks", "voice gateway"),
	dispute:           words("dispute", "disputes", "chargeback", "chargebacks", "case filing"),
	knowledgeGraph:    words("knowledge graph", "knowledge graphs", "graph search", "ontology"),
	timeSeries:        words("time series", "time-series"),
	aiDevOps:          words("ai devops", "ci/cd", "devsecops", "scanning"),
	healthcare:        words("healthcare", "health care", "clinical"),
	nlp: words("nlp", "natural language processing", "ner", "named entity recognition", "hugging face",
		"transformers", "spacy", "nltk", "prompt engineering", "extraction", "document understanding"),
}

func anyMatch(patterns []*regexp.Regexp, text string) bool {
	return countMatches(patterns, text) > 0
}

func detectTriggers(text string) types.Triggers {
	t := triggerTerms
	return types.Triggers{
		PromptEngineering: anyMatch(t.promptEngineering, text),
		Chatbot:           anyMatch(t.chatbot, text),
		Dispute:           anyMatch(t.dispute, text),
		KnowledgeGraph:    anyMatch(t.knowledgeGraph, text),
		TimeSeries:        anyMatch(t.timeSeries, text),
		AIDevOps:          anyMatch(t.aiDevOps, text),
		Healthcare:        anyMatch(t.healthcare, text),
		NLP:               anyMatch(t.nlp, text),
	}
}

// detectSeniority reads title phrasing first, then the smallest years
// figure: under 2 junior, under 5 mid, under 10 senior, else lead.
func detectSeniority(title, text string) types.Seniority {
	head := firstLine(text)
	for _, c := range seniorityTitles {
		if anyMatch(c.patterns, title) || anyMatch(c.patterns, head) {
			return c.value
		}
	}

	years := -1
	for _, m := range yearsPattern.FindAllStringSubmatch(text, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && (years < 0 || n < years) {
			years = n
		}
	}
	switch {
	case years < 0:
		return types.SeniorityMid
	case years < 2:
		return types.SeniorityJunior
	case years < 5:
		return types.SeniorityMid
	case years < 10:
		return types.SenioritySenior
	default:
		return types.SeniorityLead
	}
}

// MustHaveVocabulary is the keyword list the fallback copies out of a JD
var MustHaveVocabulary = []string{
	"langgraph", "langchain", "mcp", "rag", "vector", "faiss", "pgvector", "pinecone",
	"opensearch", "evaluation", "groundedness", "prompt engineering", "function calling",
	"fastapi", "kubernetes", "docker", "terraform", "databricks", "redis", "azure ai search",
	"textract", "document ai", "vllm", "observability", "opentelemetry", "datadog",
	"guardrails", "watson", "lex", "moveworks", "dialogflow", "knowledge graph", "graph",
	"cosmos gremlin", "time series", "mlflow",
}

var mustHavePatterns = words(MustHaveVocabulary...)

// strongest returns the cluster value with the most distinct pattern hits.
// Ties go to the earlier cluster; no hits returns def.
func strongest[T comparable](clusters []cluster[T], text string, def T) T {
	best, bestScore := def, 0
	for _, c := range clusters {
		if n := countMatches(c.patterns, text); n > bestScore {
			best, bestScore = c.value, n
		}
	}
	return best
}

// FallbackAnalysis is the model-free analysis used when extraction fails.
// Every field comes from pattern and keyword scans of the text.
func FallbackAnalysis(text string, source types.Provenance) *types.JDAnalysis {
	parsed := ParseJD(text)

	var keywords []string
	for i, re := range mustHavePatterns {
		if re.MatchString(text) {
			keywords = append(keywords, MustHaveVocabulary[i])
		}
	}

	a := &types.JDAnalysis{
		Title:            parsed.Role,
		Company:          parsed.Company,
		HiringManager:    parsed.RecruiterName,
		RequiredSkills:   techTerms(text),
		Keywords:         keywords,
		MustHaveKeywords: keywords,
		CloudFocus:       strongest(cloudClusters, text, types.CloudNone),
		RoleTrack:        strongest(trackClusters, text, types.DefaultRoleTrack),
		DomainFocus:      strongest(domainClusters, text, types.DomainGeneric),
		Seniority:        detectSeniority(parsed.Role, text),
		Triggers:         detectTriggers(text),
		Provenance:       source,
	}
	if a.RequiredSkills == nil {
		a.RequiredSkills = []string{}
	}
	a.Normalize()
	return a
}

// techTerms returns the distinct technical words found by the gate's tech patterns.
func techTerms(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, re := range TechIndicators {
		for _, m := range re.FindAllString(text, -1) {
			k := strings.ToLower(m)
			if !seen[k] {
				seen[k] = true
				out = append(out, m)
			}
		}
	}
	return out
}
