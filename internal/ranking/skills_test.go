package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/jobtriage/internal/types"
)

var awsTerms = []string{"aws", "amazon eks", "amazon textract", "sagemaker"}

func TestScoreSkillBlock(t *testing.T) {
	tests := []struct {
		name  string
		block types.SkillBlock
		a     *types.JDAnalysis
		want  int
	}{
		{
			name:  "cloud item",
			block: types.SkillBlock{Label: "Cloud", Items: []string{"Amazon EKS", "Terraform"}},
			a:     awsGenAI(),
			want:  3,
		},
		{
			name:  "track label",
			block: types.SkillBlock{Label: "Retrieval & Search", Items: []string{"FAISS"}},
			a:     awsGenAI(),
			want:  2,
		},
		{
			name:  "items in jd",
			block: types.SkillBlock{Label: "Languages", Items: []string{"Python", "Go", "Kubernetes (EKS)"}},
			a:     awsGenAI(),
			want:  2,
		},
		{
			name:  "no cloud bonus without a cloud focus",
			block: types.SkillBlock{Label: "Cloud", Items: []string{"Amazon EKS"}},
			a:     &types.JDAnalysis{CloudFocus: types.CloudNone, RoleTrack: types.TrackAIDevOps},
			want:  0,
		},
		{
			name:  "nil analysis",
			block: types.SkillBlock{Label: "Cloud", Items: []string{"AWS"}},
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScoreSkillBlock(tt.block, tt.a, awsTerms))
		})
	}
}

func TestSelectSkills(t *testing.T) {
	blocks := []types.SkillBlock{
		{Label: "Languages", Items: []string{"Go"}},
		{Label: "Empty", Items: nil},
		{Label: "MLOps & Infra", Items: []string{"Docker"}},
		{Label: "Cloud", Items: []string{"Amazon EKS"}},
	}
	a := &types.JDAnalysis{CloudFocus: types.CloudAWS, RoleTrack: types.TrackAIDevOps}

	got := SelectSkills(blocks, a, awsTerms, MaxSkillBlocks)
	var labels []string
	for _, s := range got {
		labels = append(labels, s.Block.Label)
	}
	assert.Equal(t, []string{"Cloud", "MLOps & Infra", "Languages"}, labels)

	assert.Len(t, SelectSkills(blocks, a, awsTerms, 1), 1)
}
