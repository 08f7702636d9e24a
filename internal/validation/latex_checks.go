package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/jonathan/jobtriage/internal/rendering"
	"github.com/jonathan/jobtriage/internal/resume"
	"github.com/jonathan/jobtriage/internal/types"
)

var (
	highlightsBlock = regexp.MustCompile(`(?s)\\begin\{highlights\}(.*?)\\end\{highlights\}`)
	itemText        = regexp.MustCompile(`\\item[^\n]*`)
	// placeholders survive escaping as \{token\}
	escapedPlaceholder = regexp.MustCompile(`\\\{([A-Za-z_]+)\\\}`)
)

func checkNonASCII(latex string) []types.Violation {
	n := 0
	for _, r := range latex {
		if r > unicode.MaxASCII {
			n++
		}
	}
	if n <= MaxNonASCII {
		return nil
	}
	return []types.Violation{{
		Type:     TypeNonASCII,
		Severity: types.SeverityError,
		Details:  fmt.Sprintf("Contains %d non-ASCII characters", n),
	}}
}

func checkSections(latex string, expectEducation bool) []types.Violation {
	required := []string{"Summary", "Experience", "Skills"}
	if expectEducation {
		required = append(required, "Education")
	}
	var vs []types.Violation
	for _, name := range required {
		if !strings.Contains(latex, `\section{`+name+`}`) {
			vs = append(vs, types.Violation{
				Type:     TypeMissingSection,
				Severity: types.SeverityError,
				Details:  fmt.Sprintf("Missing required section: %s", name),
			})
		}
	}
	return vs
}

func checkBoldInBullets(latex string) []types.Violation {
	for _, block := range highlightsBlock.FindAllStringSubmatch(latex, -1) {
		for _, item := range itemText.FindAllString(block[1], -1) {
			if strings.Contains(item, `\textbf{`) {
				return []types.Violation{{
					Type:     TypeBoldInBullet,
					Severity: types.SeverityError,
					Details:  `Found \textbf{} inside bullet text (only allowed in headers/skills headings)`,
				}}
			}
		}
	}
	return nil
}

func checkPlaceholders(latex string, doc *rendering.Document) []types.Violation {
	seen := make(map[string]bool)
	var tokens []string
	add := func(list []string) {
		for _, t := range list {
			if !seen[t] {
				seen[t] = true
				tokens = append(tokens, t)
			}
		}
	}

	for _, m := range escapedPlaceholder.FindAllStringSubmatch(latex, -1) {
		add([]string{"{" + m[1] + "}"})
	}
	if doc != nil {
		add(resume.Unresolved(strings.Join(doc.Summary, "\n")))
		for _, e := range doc.Experiences {
			add(resume.Unresolved(strings.Join(e.Highlights, "\n")))
		}
		for _, s := range doc.Skills {
			add(resume.Unresolved(strings.Join(s.Items, "\n")))
		}
	}
	if len(tokens) == 0 {
		return nil
	}
	return []types.Violation{{
		Type:     TypePlaceholder,
		Severity: types.SeverityError,
		Details:  "Unresolved placeholders: " + strings.Join(tokens, ", "),
	}}
}

func checkPageBudget(pages, maxPages int) []types.Violation {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	if pages <= maxPages {
		return nil
	}
	return []types.Violation{{
		Type:     TypePageBudget,
		Severity: types.SeverityWarning,
		Details:  fmt.Sprintf("Resume has %d pages, budget is %d", pages, maxPages),
	}}
}
