// Package observability provides logging setup and formatted output for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/jobtriage/internal/resume"
	"github.com/jonathan/jobtriage/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// clip shortens s to n runes, marking the cut with "..."
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, clip(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func writeList(sb *strings.Builder, label string, items []string, limit int) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "%s:\n", label)
	for _, item := range items[:min(len(items), limit)] {
		fmt.Fprintf(sb, "  • %s\n", item)
	}
	if len(items) > limit {
		fmt.Fprintf(sb, "  ... and %d more\n", len(items)-limit)
	}
}

// PrintVerdict outputs the gate decision for one message.
func (p *Printer) PrintVerdict(msg types.RawMessage, v types.Verdict) {
	var sb strings.Builder
	decision := "REJECT"
	if v.Accept {
		decision = "ACCEPT"
	}
	fmt.Fprintf(&sb, "Decision: %s\n", decision)
	fmt.Fprintf(&sb, "Rule:     %s\n", v.Rule)
	fmt.Fprintf(&sb, "Reason:   %s\n", v.Reason)
	if v.Escalated {
		sb.WriteString("Escalated to model\n")
	}
	sb.WriteString("\n")
	if msg.Subject != "" {
		fmt.Fprintf(&sb, "Subject:  %s\n", msg.Subject)
	}
	if msg.From != "" {
		fmt.Fprintf(&sb, "From:     %s\n", msg.From)
	}
	fmt.Fprintf(&sb, "Signals:  core=%d tech=%d title=%t location=%t",
		v.CoreMatches, v.TechMatches, v.TitleKeyword, v.LocationCue)

	p.printBox("GATE VERDICT", sb.String())
}

// PrintAnalysis outputs a human-readable summary of the extracted JD analysis.
func (p *Printer) PrintAnalysis(a *types.JDAnalysis) {
	if a == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Title:     %s\n", a.Title)
	if a.Company != "" {
		fmt.Fprintf(&sb, "Company:   %s\n", a.Company)
	}
	fmt.Fprintf(&sb, "Cloud:     %s\n", strings.ToUpper(string(a.CloudFocus)))
	fmt.Fprintf(&sb, "Track:     %s\n", a.RoleTrack)
	fmt.Fprintf(&sb, "Domain:    %s\n", a.DomainFocus)
	fmt.Fprintf(&sb, "Seniority: %s\n", a.Seniority)
	if active := a.Triggers.Active(); len(active) > 0 {
		fmt.Fprintf(&sb, "Triggers:  %s\n", strings.Join(active, ", "))
	}
	sb.WriteString("\n")
	writeList(&sb, "Required Skills", a.RequiredSkills, maxItemsToShow)
	writeList(&sb, "Technologies", a.Technologies, 3)

	p.printBox("JD ANALYSIS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintMetadata outputs the selections behind a generated resume.
func (p *Printer) PrintMetadata(m *resume.Metadata) {
	if m == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Cloud:    %s (%s)\n", strings.ToUpper(string(m.Cloud)), m.Stack)
	fmt.Fprintf(&sb, "Track:    %s\n", m.RoleTrack)
	fmt.Fprintf(&sb, "Summary:  %s, %d bullet(s)\n", m.SummarySource, m.SummaryBullets)
	if len(m.TriggersApplied) > 0 {
		fmt.Fprintf(&sb, "Triggers: %s\n", strings.Join(m.TriggersApplied, ", "))
	}
	sb.WriteString("\n")

	if len(m.Entries) > 0 {
		sb.WriteString("Highlights:\n")
		for _, e := range m.Entries {
			fmt.Fprintf(&sb, "  • %s: %d/%d\n", e.Company, e.Selected, e.Target)
		}
	} else if len(m.HighlightCounts) > 0 {
		companies := make([]string, 0, len(m.HighlightCounts))
		for c := range m.HighlightCounts {
			companies = append(companies, c)
		}
		sort.Strings(companies)
		sb.WriteString("Highlights:\n")
		for _, c := range companies {
			fmt.Fprintf(&sb, "  • %s: %d\n", c, m.HighlightCounts[c])
		}
	}
	writeList(&sb, "Dropped", m.DroppedEntries, 3)
	writeList(&sb, "Skills", m.SkillLabels, 7)

	p.printBox("GENERATED RESUME", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintViolations outputs any validation findings.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintViolations(violations *types.Violations) {
	if violations == nil || len(violations.Violations) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "✅ NO VIOLATIONS FOUND")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d violations:\n\n", len(violations.Violations))

	for i, v := range violations.Violations {
		fmt.Fprintf(&sb, "⚠ %s (%s)\n", v.Type, v.Severity)
		fmt.Fprintf(&sb, "  %s\n", clip(v.Details, 45))
		if i < len(violations.Violations)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("VALIDATION", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintEmail outputs the composed subject and body.
func (p *Printer) PrintEmail(subject, body string) {
	p.printBox("EMAIL: "+clip(subject, boxWidth-11), body)
}
