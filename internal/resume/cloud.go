// Package resume assembles a tailored resume document from a candidate
// profile and a JD analysis. Selection is rule-based: highlights and skill
// blocks are ranked, never rewritten, so no experience is invented.
package resume

import (
	"regexp"
	"sort"
	"strings"

	"github.com/jonathan/jobtriage/internal/types"
)

// CloudStack names one provider's services for each infrastructure concern.
type CloudStack struct {
	Cloud        types.Cloud `json:"cloud"`
	Name         string      `json:"name"`
	K8s          string      `json:"k8s"`
	OCR          string      `json:"ocr"`
	Search       string      `json:"search"`
	Secrets      string      `json:"secrets"`
	IAM          string      `json:"iam"`
	Monitor      string      `json:"monitor"`
	Data         []string    `json:"data"`
	ModelServing string      `json:"modelServing"`
	GraphDB      string      `json:"graphDb"`
}

// DefaultCloud is used when a JD names no provider.
const DefaultCloud = types.CloudAzure

// Stacks is the fixed provider table.
var Stacks = map[types.Cloud]CloudStack{
	types.CloudAzure: {
		Cloud:        types.CloudAzure,
		Name:         "Azure",
		K8s:          "AKS",
		OCR:          "Azure Form Recognizer",
		Search:       "Azure AI Search (BM25 + vector)",
		Secrets:      "Key Vault",
		IAM:          "Entra ID RBAC",
		Monitor:      "Application Insights",
		Data:         []string{"Databricks (PySpark)", "Azure Blob"},
		ModelServing: "vLLM on AKS",
		GraphDB:      "Azure Cosmos DB (Gremlin)",
	},
	types.CloudAWS: {
		Cloud:        types.CloudAWS,
		Name:         "AWS",
		K8s:          "Amazon EKS",
		OCR:          "Amazon Textract",
		Search:       "Amazon OpenSearch (BM25 + k-NN)",
		Secrets:      "AWS Secrets Manager / KMS",
		IAM:          "IAM",
		Monitor:      "CloudWatch",
		Data:         []string{"Glue/PySpark", "S3", "Redshift"},
		ModelServing: "vLLM on EKS",
		GraphDB:      "Neptune (Gremlin) or Graph extension over OpenSearch",
	},
	types.CloudGCP: {
		Cloud:        types.CloudGCP,
		Name:         "GCP",
		K8s:          "GKE",
		OCR:          "Document AI",
		Search:       "Vertex AI Search / Grounding (or custom BM25+vector on Elastic)",
		Secrets:      "Secret Manager",
		IAM:          "Cloud IAM",
		Monitor:      "Cloud Monitoring",
		Data:         []string{"Dataproc/Spark", "Cloud Storage", "BigQuery"},
		ModelServing: "vLLM on GKE",
		GraphDB:      "Neo4j (managed) or Graph on GCP (custom)",
	},
	types.CloudOCI: {
		Cloud:        types.CloudOCI,
		Name:         "OCI",
		K8s:          "OKE",
		OCR:          "OCI Vision/Language (or custom pipeline)",
		Search:       "Custom RAG over Object Storage/Elastic",
		Secrets:      "OCI Vault",
		IAM:          "OCI IAM",
		Monitor:      "OCI Logging/Monitoring",
		Data:         []string{"OCI Data Science", "Object Storage"},
		ModelServing: "OCI Generative AI Service or vLLM on OKE",
		GraphDB:      "Neo4j on OKE/Compute",
	},
}

// StackFor returns the stack for c; none and unknown values map to DefaultCloud.
func StackFor(c types.Cloud) CloudStack {
	if s, ok := Stacks[c]; ok {
		return s
	}
	return Stacks[DefaultCloud]
}

// Placeholders returns the token → value map for the stack.
func (s CloudStack) Placeholders() map[string]string {
	return map[string]string{
		"k8s":           s.K8s,
		"ocr":           s.OCR,
		"search":        s.Search,
		"secrets":       s.Secrets,
		"iam":           s.IAM,
		"monitor":       s.Monitor,
		"data_proc":     strings.Join(s.Data, ", "),
		"model_serving": s.ModelServing,
		"graph_db":      s.GraphDB,
		"PRIMARY_CLOUD": strings.ToUpper(string(s.Cloud)),
	}
}

// Terms returns the provider and service names used to recognise the cloud in free text.
func (s CloudStack) Terms() []string {
	terms := []string{string(s.Cloud), s.Name, s.K8s, s.OCR, s.Secrets, s.Monitor, s.IAM}
	terms = append(terms, s.Data...)
	out := make([]string, 0, len(terms))
	seen := make(map[string]bool)
	for _, t := range terms {
		k := strings.ToLower(t)
		if t == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, t)
	}
	return out
}

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_]+)\}`)

// FillPlaceholders substitutes the stack's values for known {token}s.
// Unknown tokens are left in place for Unresolved to report.
func FillPlaceholders(text string, s CloudStack) string {
	if !strings.Contains(text, "{") {
		return text
	}
	values := s.Placeholders()
	return placeholderPattern.ReplaceAllStringFunc(text, func(m string) string {
		if v, ok := values[m[1:len(m)-1]]; ok {
			return v
		}
		return m
	})
}

// Unresolved returns the distinct {token}s remaining in text, sorted.
func Unresolved(text string) []string {
	matches := placeholderPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out
}
