package rendering

import (
	"embed"
	"fmt"
	"os"
	"strings"
	"text/template"
)

//go:embed templates/resume.tex.tmpl
var templateFS embed.FS

const defaultTemplate = "templates/resume.tex.tmpl"

// Document is the rendering-ready resume. All strings are raw text; the
// template escapes them.
type Document struct {
	Header      Header
	Summary     []string
	Experiences []ExperienceSection
	Education   []EducationSection
	Skills      []SkillLine
}

// Header is the identity block
type Header struct {
	Name     string
	Title    string
	Location string
	Email    string
	Phone    string
	LinkedIn string
	GitHub   string
	Website  string
}

// ExperienceSection is one employer block
type ExperienceSection struct {
	Company    string
	Role       string
	Location   string
	DateRange  string
	Highlights []string
}

// EducationSection is one education line
type EducationSection struct {
	Institution string
	Degree      string
	Location    string
	DateRange   string
}

// SkillLine is one labelled skills row
type SkillLine struct {
	Label string
	Items []string
}

var funcs = template.FuncMap{
	"escape":  EscapeLaTeX,
	"upper":   strings.ToUpper,
	"join":    strings.Join,
	"bold":    func(s string) string { return `\textbf{` + EscapeLaTeX(s) + `}` },
	"contact": contactLine,
}

// RenderLaTeX renders the document with the built-in template.
func RenderLaTeX(doc *Document) (string, error) {
	content, err := templateFS.ReadFile(defaultTemplate)
	if err != nil {
		return "", &TemplateError{Message: "embedded template missing", Cause: err}
	}
	tmpl, err := parse(string(content))
	if err != nil {
		return "", err
	}
	return execute(tmpl, doc)
}

// RenderLaTeXWithTemplate renders the document with a template file on disk.
func RenderLaTeXWithTemplate(doc *Document, templatePath string) (string, error) {
	tmpl, err := parseTemplate(templatePath)
	if err != nil {
		return "", err
	}
	return execute(tmpl, doc)
}

func execute(tmpl *template.Template, doc *Document) (string, error) {
	if doc == nil {
		return "", &TemplateError{Message: "document is nil"}
	}
	var result strings.Builder
	if err := tmpl.Execute(&result, doc); err != nil {
		return "", &TemplateError{Message: "failed to execute template", Cause: err}
	}
	return result.String(), nil
}

// parseTemplate reads and parses a LaTeX template file
func parseTemplate(templatePath string) (*template.Template, error) {
	content, err := os.ReadFile(templatePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &TemplateError{
				Message: fmt.Sprintf("template file not found: %s", templatePath),
				Cause:   err,
			}
		}
		return nil, &TemplateError{
			Message: fmt.Sprintf("failed to read template file: %s", templatePath),
			Cause:   err,
		}
	}
	return parse(string(content))
}

func parse(content string) (*template.Template, error) {
	tmpl, err := template.New("resume").Option("missingkey=error").Funcs(funcs).Parse(content)
	if err != nil {
		return nil, &TemplateError{Message: "failed to parse template", Cause: err}
	}
	return tmpl, nil
}

// contactLine joins the header's contact fields with LaTeX separators.
func contactLine(h Header) string {
	var parts []string
	if h.Location != "" {
		parts = append(parts, EscapeLaTeX(h.Location))
	}
	if h.Email != "" {
		parts = append(parts, fmt.Sprintf(`\href{mailto:%s}{%s}`, EscapeURL(h.Email), EscapeLaTeX(h.Email)))
	}
	if h.Phone != "" {
		tel := strings.NewReplacer(" ", "-", "(", "", ")", "").Replace(h.Phone)
		parts = append(parts, fmt.Sprintf(`\href{tel:%s}{%s}`, EscapeURL(tel), EscapeLaTeX(h.Phone)))
	}
	for _, link := range []string{h.LinkedIn, h.GitHub, h.Website} {
		if link != "" {
			parts = append(parts, fmt.Sprintf(`\href{%s}{%s}`, EscapeURL(link), EscapeLaTeX(displayURL(link))))
		}
	}
	return strings.Join(parts, ` \, | \, `)
}

func displayURL(u string) string {
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	u = strings.TrimPrefix(u, "www.")
	return strings.TrimSuffix(u, "/")
}

// FormatDateRange renders a start/end pair as "Jan 2024 -- Present".
// "present" (any case) or an empty end date reads as Present.
func FormatDateRange(start, end string) string {
	start = strings.TrimSpace(start)
	end = strings.TrimSpace(end)
	if start == "" && end == "" {
		return ""
	}
	if end == "" || strings.EqualFold(end, "present") {
		end = "Present"
	}
	if start == "" {
		return end
	}
	return start + " -- " + end
}
