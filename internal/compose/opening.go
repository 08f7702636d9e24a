// Package compose writes the short application email sent with a resume.
// The opening sentence, greeting, signature and shape are fixed by code;
// the model only fills in the middle.
package compose

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/jonathan/jobtriage/internal/types"
)

const (
	maxTitleRunes   = 100
	maxSubjectRunes = 150
	defaultCompany  = "your company"
	defaultGreeting = "Dear Hiring Manager,"
)

// Opening returns the provenance-specific first sentence of the body.
func Opening(source types.Provenance, title, company string) string {
	if company = strings.TrimSpace(company); company == "" {
		company = defaultCompany
	}
	if source == types.SourceEmail {
		return fmt.Sprintf("Thank you for reaching out regarding the %s position at %s.", title, company)
	}
	return fmt.Sprintf("I came across the %s position at %s and am very interested in applying.", title, company)
}

var (
	roleNoun      = regexp.MustCompile(`(?i)(Senior |Junior |Lead |Staff )?(Data Scientist|ML Engineer|AI Engineer|Software Engineer|Developer|Architect)`)
	firstSentence = regexp.MustCompile(`^[^.!?]+[.!?]`)
)

// CleanTitle bounds a job title. Model output sometimes returns the whole
// JD as the title; the first line, first sentence or a known role noun is
// used instead.
func CleanTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return "Position"
	}
	if runeLen(title) <= maxTitleRunes {
		return title
	}
	if line := strings.TrimSpace(strings.SplitN(title, "\n", 2)[0]); line != "" && runeLen(line) < maxTitleRunes {
		return line
	}
	if s := strings.TrimSpace(firstSentence.FindString(title)); s != "" && runeLen(s) < maxTitleRunes {
		return s
	}
	if m := roleNoun.FindString(title); m != "" {
		return m
	}
	return "Position"
}

// Subject bounds a subject line, replacing over-long ones with the template subject.
func Subject(subject, title, name string) string {
	fallback := fmt.Sprintf("Application for %s - %s", title, name)
	subject = strings.Join(strings.Fields(subject), " ")
	if subject == "" {
		subject = fallback
	}
	if runeLen(subject) <= maxSubjectRunes {
		return subject
	}
	r := []rune(fallback)
	if len(r) > maxSubjectRunes {
		return string(r[:maxSubjectRunes-3]) + "..."
	}
	return fallback
}

// genericLocalParts are mailbox names that are not a person
var genericLocalParts = map[string]bool{
	"jobs": true, "job": true, "hr": true, "careers": true, "career": true,
	"recruiting": true, "recruitment": true, "recruiter": true, "talent": true,
	"info": true, "hiring": true, "noreply": true, "contact": true, "admin": true,
	"team": true, "support": true, "hello": true,
}

// Greeting picks the salutation: the analysed hiring manager, then the
// recruiter found in the JD text, then the recruiter's mailbox name.
func Greeting(a *types.JDAnalysis, parsed *types.ParsedJD) string {
	if a != nil {
		if hm := strings.TrimSpace(a.HiringManager); hm != "" {
			return "Hi " + hm + ","
		}
	}
	if parsed == nil {
		return defaultGreeting
	}
	if name := strings.Fields(parsed.RecruiterName); len(name) > 0 {
		return "Hi " + name[0] + ","
	}
	if first := nameFromEmail(parsed.RecruiterEmail); first != "" {
		return "Hi " + first + ","
	}
	return defaultGreeting
}

// nameFromEmail turns "priya.sharma@x.com" into "Priya".
func nameFromEmail(addr string) string {
	at := strings.IndexByte(addr, '@')
	if at <= 0 {
		return ""
	}
	first := strings.FieldsFunc(strings.ToLower(addr[:at]), func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	// a lone token such as "jsmith" is too ambiguous to address
	if len(first) < 2 || len(first[0]) < 2 || genericLocalParts[first[0]] {
		return ""
	}
	for _, r := range first[0] {
		if !unicode.IsLetter(r) {
			return ""
		}
	}
	return strings.ToUpper(first[0][:1]) + first[0][1:]
}

func runeLen(s string) int {
	return len([]rune(s))
}
