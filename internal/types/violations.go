package types

// Violation severities
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Violation is a single resume sanity-check finding
type Violation struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Details  string `json:"details"`
	// Entry is the experience entry the finding belongs to, when there is one
	Entry string `json:"entry,omitempty"`
}

// Violations represents a collection of validation findings
type Violations struct {
	Violations []Violation `json:"violations"`
}

// Result splits the findings into a ValidationResult. OK is true when
// there are no error-severity findings.
func (v *Violations) Result() ValidationResult {
	res := ValidationResult{OK: true, Errors: []string{}}
	for _, x := range v.Violations {
		if x.Severity == SeverityError {
			res.OK = false
			res.Errors = append(res.Errors, x.Details)
		} else {
			res.Warnings = append(res.Warnings, x.Details)
		}
	}
	return res
}
