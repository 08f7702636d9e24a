package classifier

import (
	"regexp"
	"strings"

	"github.com/jonathan/jobtriage/internal/types"
)

// DefaultRole is used when no role line can be found
const DefaultRole = "AI/ML Engineer"

var (
	rolePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:position|role|title):[ \t]*([^\n]+)`),
		regexp.MustCompile(`(?i)(?:^|\n)([^\n]*(?:engineer|developer|scientist|architect|lead)[^\n]*)`),
	}
	locationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)location:[ \t]*([^\n]+)`),
		regexp.MustCompile(`\b([A-Z][A-Za-z. ]+,[ \t]*(?:TX|NY|CA|VA|NJ|MA|WA|IL|GA|FL|MI|NC|PA|OH|CO|AZ))\b`),
	}
	emailPattern = regexp.MustCompile(`[\w.+-]+@[\w-]+(?:\.[\w-]+)*\.[A-Za-z]{2,}`)
	namePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)recruiter:[ \t]*([^\n]+)`),
		regexp.MustCompile(`(?i)(?:thank you|thanks|regards|best)[, \t]*[\r\n]+\s*([A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+)+)`),
		regexp.MustCompile(`--[ \t]*[\r\n]+([A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+)+)`),
	}
	nameSuffix     = regexp.MustCompile(`(?i)\s+(Sr\.|Jr\.|III|II|Ph\.D\.|MBA)$`)
	namePart       = regexp.MustCompile(`^[A-Z][a-z]+$`)
	companyPattern = regexp.MustCompile(`(?i)(?:company|organization|client):[ \t]*([^\n]+)`)
)

// applicationQuestionPatterns detect a request for candidate details. Three
// or more hits mean the JD expects them in the reply.
var applicationQuestionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)please fill.*below details`),
	regexp.MustCompile(`(?i)full legal name:`),
	regexp.MustCompile(`(?i)current location:`),
	regexp.MustCompile(`(?i)visa.*work permit:`),
	regexp.MustCompile(`(?i)interview availability:`),
	regexp.MustCompile(`(?i)salary expectations:`),
	regexp.MustCompile(`(?i)willing to relocate:`),
	regexp.MustCompile(`(?i)preferred start date:`),
	regexp.MustCompile(`(?i)overall.*experience:`),
	regexp.MustCompile(`(?i)linkedin url:`),
	regexp.MustCompile(`(?i)provide.*following.*details`),
	regexp.MustCompile(`(?i)kindly.*share.*details`),
	regexp.MustCompile(`(?i)please.*provide.*information`),
}

// ApplicationQuestionThreshold is the minimum pattern hits for HasApplicationQuestions
const ApplicationQuestionThreshold = 3

// Application question keys, matching the ApplicationProfile JSON names
var questionKeys = []struct {
	key     string
	pattern *regexp.Regexp
}{
	{"fullLegalName", regexp.MustCompile(`(?i)full\s*(legal)?\s*name`)},
	{"currentLocation", regexp.MustCompile(`(?i)current\s*location`)},
	{"phone", regexp.MustCompile(`(?i)(phone|contact\s*number)`)},
	{"email", regexp.MustCompile(`(?i)(email|e-mail)`)},
	{"visaStatus", regexp.MustCompile(`(?i)(visa|work\s*permit|work\s*authorization)`)},
	{"interviewAvailability", regexp.MustCompile(`(?i)interview\s*availability`)},
	{"willingToRelocate", regexp.MustCompile(`(?i)(willing\s*to\s*relocate|relocation)`)},
	{"preferredStartDate", regexp.MustCompile(`(?i)(start\s*date|availability\s*to\s*start|join\s*date)`)},
	{"overallExperience", regexp.MustCompile(`(?i)(total\s*experience|overall\s*experience|years\s*of\s*experience|it\s*experience)`)},
	{"linkedinUrl", regexp.MustCompile(`(?i)linkedin`)},
}

// ParseJD pulls role, location, recruiter and company out of JD text with
// fixed patterns. It never fails; missing fields stay empty.
func ParseJD(text string) types.ParsedJD {
	p := types.ParsedJD{
		Role:                    firstGroup(rolePatterns, text),
		Location:                firstGroup(locationPatterns, text),
		RecruiterEmail:          emailPattern.FindString(text),
		RecruiterName:           recruiterName(text),
		HasApplicationQuestions: HasApplicationQuestions(text),
	}
	if p.Role == "" {
		p.Role = DefaultRole
	}
	if m := companyPattern.FindStringSubmatch(text); m != nil {
		p.Company = strings.TrimSpace(m[1])
	}
	return p
}

// HasApplicationQuestions reports whether the JD asks for candidate details.
func HasApplicationQuestions(text string) bool {
	return countMatches(applicationQuestionPatterns, text) >= ApplicationQuestionThreshold
}

// ApplicationQuestions returns the ApplicationProfile keys the JD asks about, in
// a fixed order.
func ApplicationQuestions(text string) []string {
	var keys []string
	for _, q := range questionKeys {
		if q.pattern.MatchString(text) {
			keys = append(keys, q.key)
		}
	}
	return keys
}

func firstGroup(patterns []*regexp.Regexp, text string) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if v := strings.TrimSpace(m[1]); v != "" {
				return v
			}
		}
	}
	return ""
}

func recruiterName(text string) string {
	for _, re := range namePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		name := nameSuffix.ReplaceAllString(strings.TrimSpace(m[1]), "")
		var parts []string
		for _, part := range strings.Fields(name) {
			if namePart.MatchString(part) {
				parts = append(parts, part)
			}
		}
		if len(parts) >= 2 {
			return parts[0] + " " + parts[1]
		}
	}
	return ""
}
