// Package ranking scores tagged profile content against a JD analysis.
//
// Scores are small additive integers. Selection never rewrites text; it only
// orders and trims what the profile already contains.
package ranking

import (
	"regexp"
	"strings"

	"github.com/jonathan/jobtriage/internal/types"
)

// Highlight score weights
const (
	cloudWeight   = 4
	trackWeight   = 3
	domainWeight  = 2
	triggerWeight = 2
	keywordWeight = 1
)

// Breakdown itemizes a highlight score
type Breakdown struct {
	Priority        int      `json:"priority"`
	Cloud           int      `json:"cloud"`
	Track           int      `json:"track"`
	Domain          int      `json:"domain"`
	Triggers        int      `json:"triggers"`
	Keywords        int      `json:"keywords"`
	MatchedTriggers []string `json:"matchedTriggers,omitempty"`
	MatchedKeywords []string `json:"matchedKeywords,omitempty"`
}

// Total is the additive score.
func (b Breakdown) Total() int {
	return b.Priority + b.Cloud + b.Track + b.Domain + b.Triggers + b.Keywords
}

// ScoreHighlight returns the relevance score of a highlight for the analysis.
func ScoreHighlight(h types.ExperienceHighlight, a *types.JDAnalysis) int {
	return ExplainHighlight(h, a).Total()
}

// ExplainHighlight scores a highlight and records which tags matched.
func ExplainHighlight(h types.ExperienceHighlight, a *types.JDAnalysis) Breakdown {
	b := Breakdown{Priority: h.Tags.Priority}
	if a == nil {
		return b
	}

	if containsFold(h.Tags.Clouds, string(a.CloudFocus)) {
		b.Cloud = cloudWeight
	}
	if containsFold(h.Tags.RoleTracks, string(a.RoleTrack)) {
		b.Track = trackWeight
	}
	if containsFold(h.Tags.Domains, string(a.DomainFocus)) {
		b.Domain = domainWeight
	}
	for _, trig := range a.Triggers.Active() {
		if containsFold(h.Tags.Triggers, trig) {
			b.Triggers += triggerWeight
			b.MatchedTriggers = append(b.MatchedTriggers, trig)
		}
	}

	terms := a.MatchTerms()
	for _, kw := range h.Tags.Keywords {
		if termMatch(kw, terms) {
			b.Keywords += keywordWeight
			b.MatchedKeywords = append(b.MatchedKeywords, kw)
		}
	}
	return b
}

func containsFold(list []string, want string) bool {
	if want == "" {
		return false
	}
	for _, v := range list {
		if strings.EqualFold(strings.TrimSpace(v), want) {
			return true
		}
	}
	return false
}

// termMatch reports whether word appears in any of the lower-cased terms,
// either as the whole term or as a whole word inside it.
func termMatch(word string, terms []string) bool {
	w := strings.ToLower(strings.TrimSpace(word))
	if w == "" {
		return false
	}
	re := regexp.MustCompile(`(^|[^a-z0-9])` + regexp.QuoteMeta(w) + `($|[^a-z0-9])`)
	for _, t := range terms {
		if t == w || re.MatchString(t) {
			return true
		}
	}
	return false
}
