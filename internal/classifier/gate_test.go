package classifier

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

func TestGate_Classify(t *testing.T) {
	tests := []struct {
		name       string
		msg        types.RawMessage
		wantAccept bool
		wantRule   string
		reasonHas  string
	}{
		{
			name: "strong subject accepts",
			msg: types.RawMessage{
				Source:  types.SourceEmail,
				From:    "recruiter@realcompany.com",
				Subject: "Senior AI Engineer - Remote",
				Body:    "Senior AI Engineer — Remote — 5+ years Python, AWS Bedrock, Kubernetes",
			},
			wantAccept: true,
			wantRule:   RuleStrongSubject,
			reasonHas:  "engineer",
		},
		{
			name: "state code location accepts",
			msg: types.RawMessage{
				From:    "talent@acme.example",
				Subject: "Data Scientist - Detroit, MI",
			},
			wantAccept: true,
			wantRule:   RuleStrongSubject,
		},
		{
			name: "job alert digest rejects on subject",
			msg: types.RawMessage{
				From:    "jobs@jobboard.example",
				Subject: "5 new jobs match your search",
				Body:    "Senior Engineer, Remote. Apply now.",
			},
			wantRule:  RuleNewsletterSubject,
			reasonHas: "newsletter/alert subject",
		},
		{
			name: "linkedin sender rejects",
			msg: types.RawMessage{
				From:    "jobalerts-noreply@linkedin.com",
				Subject: "5 new jobs match your search",
			},
			wantRule:  RuleExcludedSender,
			reasonHas: "linkedin.com",
		},
		{
			name: "exclusion beats strong subject",
			msg: types.RawMessage{
				From:    "alerts@jobs.example",
				Subject: "Senior Engineer - Remote",
			},
			wantRule: RuleExcludedSender,
		},
		{
			name: "reply subject rejects",
			msg: types.RawMessage{
				From:    "recruiter@realcompany.com",
				Subject: "RE: Data Engineer - Remote",
			},
			wantRule: RuleReplyOrForward,
		},
		{
			name: "reply header rejects",
			msg: types.RawMessage{
				From:      "recruiter@realcompany.com",
				Subject:   "Data Engineer - Remote",
				InReplyTo: "<abc@mail.example>",
			},
			wantRule: RuleReplyOrForward,
		},
		{
			name: "word ending in re colon is not a reply",
			msg: types.RawMessage{
				From:    "hr@acme.example",
				Subject: "Hardware: Firmware Engineer in Boston",
			},
			wantAccept: true,
			wantRule:   RuleStrongSubject,
		},
		{
			name: "title with tech content accepts",
			msg: types.RawMessage{
				From:    "hr@acme.example",
				Subject: "Data Engineer opportunity",
				Body:    "We need strong Python skills.",
			},
			wantAccept: true,
			wantRule:   RuleModerateSubject,
		},
		{
			name: "content only accepts",
			msg: types.RawMessage{
				From:    "hr@acme.example",
				Subject: "Opening at Acme",
				Body: "5 years of experience required. Bachelor's degree preferred.\n" +
					"Responsibilities: build models.\nRequirements: care.\n" +
					"Full-time role with competitive salary and benefits.",
			},
			wantAccept: true,
			wantRule:   RuleContentOnly,
		},
		{
			name: "casual chat line rejects without escalation",
			msg: types.RawMessage{
				Source: types.SourceChat,
				Body:   "Hey, are you still looking for AWS roles?",
			},
			wantRule:  RuleDefaultReject,
			reasonHas: "no job signals",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeLLM{response: `{"isJob": true}`}
			g := NewGate(client)

			v := g.Classify(context.Background(), tt.msg)
			assert.Equal(t, tt.wantAccept, v.Accept)
			assert.Equal(t, tt.wantRule, v.Rule)
			assert.False(t, v.Escalated)
			assert.Empty(t, client.prompts, "model must not be called")
			if tt.reasonHas != "" {
				assert.Contains(t, v.Reason, tt.reasonHas)
			}
		})
	}
}

func uncertainMessage() types.RawMessage {
	return types.RawMessage{
		ID:      "m-1",
		From:    "pat@smallshop.example",
		Subject: "Backend Developer",
		Body:    "Reply with your resume to apply.",
	}
}

func TestGate_Escalation(t *testing.T) {
	tests := []struct {
		name       string
		client     *fakeLLM
		nilClient  bool
		wantAccept bool
		reasonHas  string
	}{
		{name: "model says job", client: &fakeLLM{response: `{"isJob": true, "reasoning": "direct outreach"}`}, wantAccept: true, reasonHas: "direct outreach"},
		{name: "model says not job", client: &fakeLLM{response: "```json\n{\"isJob\": false}\n```"}, reasonHas: "not a job"},
		{name: "model error", client: &fakeLLM{err: errors.New("503")}, reasonHas: "model call failed"},
		{name: "wrong shape", client: &fakeLLM{response: `{"isJob": "yes"}`}, reasonHas: "unparseable"},
		{name: "not json", client: &fakeLLM{response: `sure, it's a job`}, reasonHas: "unparseable"},
		{name: "timeout", client: &fakeLLM{block: true}, reasonHas: "model call failed"},
		{name: "no model", nilClient: true, reasonHas: "no model"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var g *Gate
			if tt.nilClient {
				g = NewGate(nil)
			} else {
				g = NewGate(tt.client, WithEscalationTimeout(20*time.Millisecond))
			}

			v := g.Classify(context.Background(), uncertainMessage())
			assert.Equal(t, RuleUncertain, v.Rule)
			assert.True(t, v.Escalated)
			assert.Equal(t, tt.wantAccept, v.Accept)
			assert.Contains(t, v.Reason, tt.reasonHas)

			if !tt.nilClient {
				require.Len(t, tt.client.prompts, 1)
				assert.Contains(t, tt.client.prompts[0], "Subject: Backend Developer")
				assert.Contains(t, tt.client.prompts[0], "Reply with your resume")
			}
		})
	}
}

func TestGate_EscalationSnippetIsBounded(t *testing.T) {
	client := &fakeLLM{response: `{"isJob": false}`}
	msg := uncertainMessage()
	tail := "UNIQUE-TAIL-MARKER"
	msg.Body = msg.Body + " " + strings.Repeat("x", 900) + tail

	NewGate(client).Classify(context.Background(), msg)
	require.Len(t, client.prompts, 1)
	assert.NotContains(t, client.prompts[0], tail)
}

func TestGate_Idempotent(t *testing.T) {
	g := NewGate(nil)
	msgs := []types.RawMessage{
		{From: "recruiter@realcompany.com", Subject: "Senior AI Engineer - Remote"},
		{From: "jobs@jobboard.example", Subject: "Weekly digest"},
		uncertainMessage(),
	}
	for _, m := range msgs {
		first := g.Classify(context.Background(), m)
		second := g.Classify(context.Background(), m)
		assert.Equal(t, first, second)
	}
}

func TestGate_RulesOrder(t *testing.T) {
	assert.Equal(t, []string{
		RuleReplyOrForward, RuleExcludedSender, RuleNewsletterSubject,
		RuleStrongSubject, RuleModerateSubject, RuleContentOnly,
		RuleUncertain, RuleDefaultReject,
	}, NewGate(nil).Rules())
}

func TestGate_EmptyRuleSetRejects(t *testing.T) {
	v := NewGate(nil, WithRules(nil)).Classify(context.Background(), types.RawMessage{Subject: "Senior Engineer - Remote"})
	assert.False(t, v.Accept)
	assert.Equal(t, RuleDefaultReject, v.Rule)
}

func TestGate_EscalationBound(t *testing.T) {
	corpus := []types.RawMessage{
		{From: "recruiter@realcompany.com", Subject: "Senior AI Engineer - Remote"},
		{From: "hr@acme.example", Subject: "ML Engineer opportunity", Body: "Python and Kubernetes"},
		{From: "jobs@jobboard.example", Subject: "5 new jobs match your search"},
		{From: "newsletters@news.example", Subject: "This week in AI"},
		{From: "friend@mail.example", Subject: "Lunch?", Body: "Tacos at noon"},
		{From: "recruiter@realcompany.com", Subject: "RE: your application"},
		{Source: types.SourceChat, Body: "Hey, are you still looking for AWS roles?"},
		uncertainMessage(),
	}

	client := &fakeLLM{response: `{"isJob": false}`}
	g := NewGate(client)
	accepted := 0
	for _, m := range corpus {
		if g.Classify(context.Background(), m).Accept {
			accepted++
		}
	}

	stats := g.Stats()
	assert.Equal(t, int64(len(corpus)), stats.Total)
	assert.Equal(t, int64(accepted), stats.Accepted)
	assert.Equal(t, int64(1), stats.Escalated)
	assert.Less(t, stats.Escalated, stats.Total)
	assert.InDelta(t, 0.125, stats.EscalationRate(), 1e-9)
	assert.Len(t, client.prompts, 1)
}

func TestScan_ChatUsesFirstLineAsSubject(t *testing.T) {
	s := Scan(types.RawMessage{Body: "\n  Python Developer in Dallas  \nFull-time, W2 only"})
	assert.Equal(t, "Python Developer in Dallas", s.Subject)
	assert.Equal(t, "developer", s.TitleKeyword)
	assert.True(t, s.LocationCue)
	assert.Equal(t, 1, s.CoreMatches)
}

func TestScan_TitleKeywordsMatchSubstrings(t *testing.T) {
	tests := []struct {
		subject string
		want    string
	}{
		{"International expansion update", "intern"},
		{"Leadership offsite agenda", "lead"},
		{"Quarterly newsletter", ""},
	}
	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			s := Scan(types.RawMessage{Subject: tt.subject, Body: "hello"})
			assert.Equal(t, tt.want, s.TitleKeyword)
		})
	}
}
