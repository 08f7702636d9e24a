// Package classifier decides whether an inbound message is a job description
// and, once it is, extracts a structured JDAnalysis from it.
//
// The go/no-go decision is an ordered list of named rules evaluated with early
// exit. Only the "uncertain" band reaches a language model, and any model
// failure there resolves to reject.
package classifier

import (
	"regexp"
	"strings"

	"github.com/jonathan/jobtriage/internal/types"
)

// excludedSenders are matched as substrings of the lower-cased sender address.
var excludedSenders = []string{
	"linkedin.com",
	"noreply@",
	"newsletters@",
	"updates@",
	"alerts@",
	"notifications@",
}

var excludedSubjects = []*regexp.Regexp{
	regexp.MustCompile(`(?i)newsletter`),
	regexp.MustCompile(`(?i)digest`),
	regexp.MustCompile(`(?i)alert`),
	regexp.MustCompile(`(?i)notification`),
	regexp.MustCompile(`(?i)update`),
	regexp.MustCompile(`(?i)highlights`),
	regexp.MustCompile(`(?i)weekly|monthly|daily`),
	regexp.MustCompile(`(?i)new.*jobs.*match`),
	regexp.MustCompile(`(?i)recommended.*for.*you`),
}

var replyPrefix = regexp.MustCompile(`(?i)(^|[^a-z])(re|fwd?):`)

// titleKeywords are matched as substrings of the lower-cased subject, not
// words: "international" hits "intern" and "leadership" hits "lead". The
// gate's thresholds assume this, so a word-boundary match would change
// which messages are accepted.
var titleKeywords = []string{
	"engineer", "developer", "scientist", "analyst", "manager",
	"architect", "consultant", "specialist", "lead", "senior",
	"junior", "intern", "director", "coordinator", "administrator",
}

// locationCues run against the subject in its original case; the first two
// depend on capitalisation.
var locationCues = []*regexp.Regexp{
	regexp.MustCompile(`\bin\s+[A-Z][a-z]+`),
	regexp.MustCompile(`[A-Z]{2}$`),
	regexp.MustCompile(`(?i)remote`),
	regexp.MustCompile(`(?i)hybrid`),
	regexp.MustCompile(`(?i)onsite`),
	regexp.MustCompile(`(?i)on-site`),
}

var opportunityWords = regexp.MustCompile(`(?i)\b(opportunity|opening|hiring|position|role|vacancy)\b`)

// CoreIndicators are the twelve JD content patterns.
var CoreIndicators = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b\d+\+?\s*(years?|yrs?)\s*(of)?\s*experience\b`),
	regexp.MustCompile(`(?i)\b(bachelor'?s?|master'?s?|phd|degree)\b`),
	regexp.MustCompile(`(?i)\b(required|must.have|should.have)\s+(skills?|qualifications?|experience)\b`),
	regexp.MustCompile(`(?i)\bresume\b.*\b(submit|send|apply|attach)\b`),
	regexp.MustCompile(`(?i)\bresponsibilities\s*:`),
	regexp.MustCompile(`(?i)\brequirements\s*:`),
	regexp.MustCompile(`(?i)\bqualifications\s*:`),
	regexp.MustCompile(`(?i)\b(full.?time|part.?time|contract|w2|c2c|1099)\b`),
	regexp.MustCompile(`(?i)\b(competitive\s+)?(salary|compensation|pay|rate)\b`),
	regexp.MustCompile(`(?i)\bbenefits\b`),
	regexp.MustCompile(`(?i)\blocation\s*:`),
	regexp.MustCompile(`(?i)\bapply\b.*\b(now|today|here|link)\b`),
}

// TechIndicators are the eight technical-content patterns.
var TechIndicators = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(python|java|javascript|typescript|react|node|angular|vue)\b`),
	regexp.MustCompile(`(?i)\b(aws|azure|gcp|cloud)\b`),
	regexp.MustCompile(`(?i)\b(sql|nosql|mongodb|postgres|mysql)\b`),
	regexp.MustCompile(`(?i)\b(docker|kubernetes|terraform|jenkins)\b`),
	regexp.MustCompile(`(?i)\b(machine.learning|deep.learning|ai|ml|data.science)\b`),
	regexp.MustCompile(`(?i)\b(tensorflow|pytorch|scikit.learn|keras)\b`),
	regexp.MustCompile(`(?i)\b(api|rest|graphql|microservices)\b`),
	regexp.MustCompile(`(?i)\b(git|github|gitlab|version.control)\b`),
}

// Signals are the precomputed facts every gate rule reads.
type Signals struct {
	Message      types.RawMessage
	Subject      string
	Sender       string
	TitleKeyword string
	LocationCue  bool
	Opportunity  bool
	CoreMatches  int
	TechMatches  int
}

// HasTitle reports whether the subject carries a job-title keyword.
func (s *Signals) HasTitle() bool { return s.TitleKeyword != "" }

// Scan computes the signals for a message. A message without a subject (chat)
// uses its first non-blank body line as the subject.
func Scan(msg types.RawMessage) *Signals {
	subject := strings.TrimSpace(msg.Subject)
	if subject == "" {
		subject = firstLine(msg.Body)
	}
	lower := strings.ToLower(subject)

	s := &Signals{
		Message: msg,
		Subject: subject,
		Sender:  strings.ToLower(strings.TrimSpace(msg.From)),
	}
	for _, kw := range titleKeywords {
		if strings.Contains(lower, kw) {
			s.TitleKeyword = kw
			break
		}
	}
	for _, re := range locationCues {
		if re.MatchString(subject) {
			s.LocationCue = true
			break
		}
	}
	s.Opportunity = opportunityWords.MatchString(subject)
	s.CoreMatches = countMatches(CoreIndicators, msg.Body)
	s.TechMatches = countMatches(TechIndicators, msg.Body)
	return s
}

func countMatches(patterns []*regexp.Regexp, text string) int {
	n := 0
	for _, re := range patterns {
		if re.MatchString(text) {
			n++
		}
	}
	return n
}

func firstLine(body string) string {
	for _, line := range strings.Split(body, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
