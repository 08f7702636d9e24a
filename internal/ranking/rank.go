package ranking

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jonathan/jobtriage/internal/types"
)

// ScoredHighlight is a highlight with its rank inputs
type ScoredHighlight struct {
	Index     int       `json:"index"`
	Text      string    `json:"text"`
	Score     int       `json:"score"`
	Breakdown Breakdown `json:"breakdown"`
	Notes     string    `json:"notes"`
}

// RankHighlights scores every highlight and sorts by score descending.
// Ties keep profile order.
func RankHighlights(highlights []types.ExperienceHighlight, a *types.JDAnalysis) []ScoredHighlight {
	ranked := make([]ScoredHighlight, 0, len(highlights))
	for i, h := range highlights {
		b := ExplainHighlight(h, a)
		ranked = append(ranked, ScoredHighlight{
			Index:     i,
			Text:      h.Text,
			Score:     b.Total(),
			Breakdown: b,
			Notes:     generateNotes(b),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// SelectHighlights returns at most n ranked highlights with duplicate text removed.
func SelectHighlights(highlights []types.ExperienceHighlight, a *types.JDAnalysis, n int) []ScoredHighlight {
	if n <= 0 {
		return nil
	}
	seen := make(map[string]bool)
	out := make([]ScoredHighlight, 0, n)
	for _, h := range RankHighlights(highlights, a) {
		key := NormalizeText(h.Text)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, h)
		if len(out) == n {
			break
		}
	}
	return out
}

// NormalizeText is the comparison key for duplicate detection.
func NormalizeText(s string) string {
	s = strings.Join(strings.Fields(strings.ToLower(s)), " ")
	return strings.TrimRight(s, ".;")
}

// generateNotes creates a brief explanation of the ranking.
func generateNotes(b Breakdown) string {
	var parts []string
	if b.Cloud > 0 {
		parts = append(parts, "cloud match")
	}
	if b.Track > 0 {
		parts = append(parts, "role track match")
	}
	if b.Domain > 0 {
		parts = append(parts, "domain match")
	}
	if len(b.MatchedTriggers) > 0 {
		parts = append(parts, fmt.Sprintf("triggers (%s)", strings.Join(b.MatchedTriggers, ", ")))
	}
	if len(b.MatchedKeywords) > 0 {
		parts = append(parts, fmt.Sprintf("keywords (%s)", strings.Join(b.MatchedKeywords, ", ")))
	}
	if len(parts) == 0 {
		if b.Priority > 0 {
			return fmt.Sprintf("priority %d only", b.Priority)
		}
		return "no tag matches"
	}
	return strings.Join(parts, ". ")
}
