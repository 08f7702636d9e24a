package resume

import (
	"strings"
	"unicode"

	"github.com/jonathan/jobtriage/internal/ranking"
	"github.com/jonathan/jobtriage/internal/types"
)

// MaxSummaryBullets caps the summary section
const MaxSummaryBullets = 7

// Summary sources reported in Metadata.SummarySource
const (
	SummaryBase    = "base"
	SummaryVariant = "variant"
	SummaryNone    = "none"
)

// SummaryText picks the role-track variant when the profile has one, else the base paragraph.
func SummaryText(p *types.CandidateProfile, a *types.JDAnalysis) (text, source string) {
	if a != nil {
		if v := strings.TrimSpace(p.Summary.Variants[a.RoleTrack]); v != "" {
			return v, SummaryVariant
		}
	}
	if b := strings.TrimSpace(p.Summary.Base); b != "" {
		return b, SummaryBase
	}
	return "", SummaryNone
}

// SummaryBullets turns the selected summary paragraph into at most
// MaxSummaryBullets distinct sentence bullets with placeholders filled.
func SummaryBullets(p *types.CandidateProfile, a *types.JDAnalysis, stack CloudStack) ([]string, string) {
	text, source := SummaryText(p, a)
	if text == "" {
		return nil, source
	}

	seen := make(map[string]bool)
	var bullets []string
	for _, s := range SplitSentences(FillPlaceholders(text, stack)) {
		key := ranking.NormalizeText(s)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		bullets = append(bullets, s)
		if len(bullets) == MaxSummaryBullets {
			break
		}
	}
	return bullets, source
}

// SplitSentences splits on terminal punctuation followed by whitespace.
// Newlines always end a sentence.
func SplitSentences(text string) []string {
	var out []string
	var cur strings.Builder
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}

	runes := []rune(text)
	for i, r := range runes {
		if r == '\n' {
			flush()
			continue
		}
		cur.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			flush()
		}
	}
	flush()
	return out
}
