package compose

import (
	"regexp"
	"strings"

	"github.com/jonathan/jobtriage/internal/types"
)

// DefaultMaxWords is the body word ceiling across both paragraphs
const DefaultMaxWords = 80

// genericClosing pads a body the model returned as a single paragraph
const genericClosing = "I would welcome the opportunity to discuss how my experience can support your team."

// minClosingWords is the smallest second paragraph the ceiling leaves room for
const minClosingWords = 6

var (
	detailsHeader  = regexp.MustCompile(`(?i)\*{0,2}APPLICATION DETAILS:?\*{0,2}`)
	signOffLine    = regexp.MustCompile(`(?im)^[ \t]*(best regards|kind regards|warm regards|regards|sincerely|best|thanks|cheers),?[ \t]*$`)
	greetingLine   = regexp.MustCompile(`(?i)^(hi|hello|hey|dear|greetings)\b[^\n]*,[ \t]*$`)
	paragraphBreak = regexp.MustCompile(`\n[ \t]*\n`)
	wrongToEmail   = regexp.MustCompile(`(?i)I came across the ([^\n]+?) position`)
	wrongToOther   = regexp.MustCompile(`(?i)Thank you for reaching out regarding the ([^\n]+?) position`)
	openingStem    = regexp.MustCompile(`(?i)^(thank you for reaching out|i came across)`)

	// the model's opening runs through its "... position ..." clause; periods
	// inside the title ("Sr.", "Ph.D.", "U.S.") do not end it
	openingClause = regexp.MustCompile(`^(?i:thank you for reaching out|i came across)\b(?:[^.!?]|[.!?]\S|\b[A-Z][A-Za-z]{0,3}\.)*?\b(?i:position)\b[^.!?]*[.!?]+(?:\s+|$)`)
)

// Shape forces a drafted body into the fixed email form: no greeting,
// signature or details block; the exact opening first; exactly two
// paragraphs; at most maxWords words.
func Shape(body, opening string, source types.Provenance, maxWords int) []string {
	if i := detailsHeader.FindStringIndex(body); i != nil {
		body = body[:i[0]]
	}
	if i := signOffLine.FindStringIndex(body); i != nil {
		body = body[:i[0]]
	}
	body = strings.TrimSpace(strings.ReplaceAll(body, "\r\n", "\n"))
	if first, rest, ok := strings.Cut(body, "\n"); ok && greetingLine.MatchString(strings.TrimSpace(first)) {
		body = strings.TrimSpace(rest)
	} else if !ok && greetingLine.MatchString(body) {
		body = ""
	}

	if source == types.SourceEmail {
		body = wrongToEmail.ReplaceAllString(body, "Thank you for reaching out regarding the $1 position")
	} else {
		body = wrongToOther.ReplaceAllString(body, "I came across the $1 position")
	}

	var paras []string
	for _, p := range paragraphBreak.Split(body, -1) {
		if p = strings.Join(strings.Fields(p), " "); p != "" {
			paras = append(paras, p)
		}
	}

	switch len(paras) {
	case 0:
		paras = []string{opening, genericClosing}
	case 1:
		paras = append(paras, genericClosing)
	case 2:
	default:
		paras = []string{paras[0], strings.Join(paras[1:], " ")}
	}
	paras[0] = withOpening(paras[0], opening)

	return fitWords(paras, opening, maxWords)
}

// withOpening makes opening the first sentence of p, replacing a
// paraphrased opening when the model wrote one.
func withOpening(p, opening string) string {
	if strings.HasPrefix(p, opening) {
		return p
	}
	if openingStem.MatchString(p) {
		cut := openingClause.FindString(p)
		if cut == "" {
			cut = firstSentence.FindString(p)
		}
		p = strings.TrimSpace(strings.TrimPrefix(p, cut))
	}
	if p == "" {
		return opening
	}
	return opening + " " + p
}

// fitWords truncates the paragraphs to the ceiling. The opening is never
// cut; the ceiling is raised when the opening alone would not fit.
func fitWords(paras []string, opening string, maxWords int) []string {
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}
	if floor := WordCount(opening) + minClosingWords; maxWords < floor {
		maxWords = floor
	}
	if WordCount(paras[0])+WordCount(paras[1]) <= maxWords {
		return paras
	}

	limit := maxWords - WordCount(paras[1])
	if floor := WordCount(opening); limit < floor {
		limit = floor
	}
	p0 := truncateWords(paras[0], limit)
	p1 := truncateWords(paras[1], maxWords-WordCount(p0))
	if p1 == "" {
		p1 = truncateWords(genericClosing, maxWords-WordCount(p0))
	}
	return []string{p0, p1}
}

// truncateWords keeps at most n words, cut back to the last complete
// sentence when there is one, and always ends with terminal punctuation.
func truncateWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return s
	}
	if n <= 0 {
		return ""
	}
	cut := strings.Join(words[:n], " ")
	if i := strings.LastIndexAny(cut, ".!?"); i > 0 && (i == len(cut)-1 || cut[i+1] == ' ') {
		return cut[:i+1]
	}
	return strings.TrimRight(cut, ",;:-") + "."
}

// WordCount counts whitespace-separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}
