package ranking

import (
	"sort"
	"strings"

	"github.com/jonathan/jobtriage/internal/types"
)

// MaxSkillBlocks caps the skills section
const MaxSkillBlocks = 7

// Skill block score weights
const (
	skillCloudWeight = 3
	skillLabelWeight = 2
	skillItemWeight  = 1
)

// trackLabelWords are label fragments that signal a block suits a role track.
var trackLabelWords = map[types.RoleTrack][]string{
	types.TrackAgenticAI:         {"agent", "llm", "retrieval", "orchestration"},
	types.TrackChatbotDev:        {"llm", "agent", "nlp", "conversational", "serving", "api"},
	types.TrackDataScienceCore:   {"data", "ml", "statistic", "analytics", "machine learning"},
	types.TrackGenAIPlatform:     {"retrieval", "search", "llm", "eval", "serving"},
	types.TrackAIDevOps:          {"mlops", "infra", "observability", "security", "devops", "ci/cd"},
	types.TrackNLPPromptEngineer: {"nlp", "ocr", "prompt", "llm", "language"},
}

// ScoredSkillBlock is a skill block with its score
type ScoredSkillBlock struct {
	Block types.SkillBlock `json:"block"`
	Index int              `json:"index"`
	Score int              `json:"score"`
}

// ScoreSkillBlock scores a block: a bonus when an item names the target cloud
// (cloudTerms are its provider and service names), a bonus when the label
// suits the role track, and one point per item the JD mentions.
func ScoreSkillBlock(b types.SkillBlock, a *types.JDAnalysis, cloudTerms []string) int {
	if a == nil {
		return 0
	}
	score := 0

	lowerItems := make([]string, len(b.Items))
	for i, it := range b.Items {
		lowerItems[i] = strings.ToLower(it)
	}

	if a.CloudFocus != types.CloudNone && mentionsAny(lowerItems, cloudTerms) {
		score += skillCloudWeight
	}

	label := strings.ToLower(b.Label)
	for _, w := range trackLabelWords[a.RoleTrack] {
		if strings.Contains(label, w) {
			score += skillLabelWeight
			break
		}
	}

	terms := a.MatchTerms()
	for _, it := range b.Items {
		if termMatch(it, terms) || itemMentionsTerm(it, terms) {
			score += skillItemWeight
		}
	}
	return score
}

// SelectSkills orders blocks by score (stable) and keeps at most n.
func SelectSkills(blocks []types.SkillBlock, a *types.JDAnalysis, cloudTerms []string, n int) []ScoredSkillBlock {
	scored := make([]ScoredSkillBlock, 0, len(blocks))
	for i, b := range blocks {
		if len(b.Items) == 0 {
			continue
		}
		scored = append(scored, ScoredSkillBlock{Block: b, Index: i, Score: ScoreSkillBlock(b, a, cloudTerms)})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if n >= 0 && len(scored) > n {
		scored = scored[:n]
	}
	return scored
}

func mentionsAny(lowerItems, terms []string) bool {
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		for _, it := range lowerItems {
			if strings.Contains(it, t) {
				return true
			}
		}
	}
	return false
}

// itemMentionsTerm catches items like "Kubernetes (AKS)" against the term "kubernetes".
func itemMentionsTerm(item string, terms []string) bool {
	for _, t := range terms {
		if termMatch(t, []string{strings.ToLower(item)}) {
			return true
		}
	}
	return false
}
