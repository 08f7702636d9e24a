package types

import "time"

// Status is the lifecycle state of a queued submission
type Status string

// Submission states
const (
	StatusPending          Status = "pending"
	StatusApproved         Status = "approved"
	StatusRejected         Status = "rejected"
	StatusChangesRequested Status = "changes_requested"
)

// ParsedSummary is the JD-derived summary shown on the approval dashboard
type ParsedSummary struct {
	Role           string `json:"role"`
	Cloud          Cloud  `json:"cloud"`
	Location       string `json:"location,omitempty"`
	RecruiterEmail string `json:"recruiterEmail,omitempty"`
	RecruiterName  string `json:"recruiterName,omitempty"`
}

// ValidationResult is the outcome of the resume sanity checks
type ValidationResult struct {
	OK       bool     `json:"ok"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings,omitempty"`
}

// Submission is a generated-but-unsent application awaiting a human decision.
// Only the approval queue mutates Status.
type Submission struct {
	ID              string           `json:"id"`
	CreatedAt       time.Time        `json:"timestamp"`
	JD              string           `json:"jd"`
	Source          Provenance       `json:"source"`
	Parsed          ParsedSummary    `json:"parsedData"`
	LaTeX           string           `json:"latex"`
	PDFPath         string           `json:"pdfPath,omitempty"`
	TexPath         string           `json:"texPath,omitempty"`
	EmailTo         string           `json:"emailTo,omitempty"`
	EmailCC         string           `json:"emailCC,omitempty"`
	EmailSubject    string           `json:"emailSubject"`
	EmailBody       string           `json:"emailBody"`
	Validation      ValidationResult `json:"validation"`
	Status          Status           `json:"status"`
	Comments        string           `json:"comments,omitempty"`
	NotifyChannelID string           `json:"notifyChannelId,omitempty"`
	SentAt          *time.Time       `json:"sentAt,omitempty"`
	MessageID       string           `json:"messageId,omitempty"`
	Analysis        *JDAnalysis      `json:"analysis,omitempty"`
}
