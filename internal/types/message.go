package types

import "time"

// RawMessage is an inbound message from any channel, before classification
type RawMessage struct {
	ID         string     `json:"id"`
	Source     Provenance `json:"source"`
	From       string     `json:"from"`
	FromName   string     `json:"fromName,omitempty"`
	Subject    string     `json:"subject"`
	Body       string     `json:"body"`
	InReplyTo  string     `json:"inReplyTo,omitempty"`
	References []string   `json:"references,omitempty"`
	ReceivedAt time.Time  `json:"receivedAt"`
}

// IsReplyThread reports whether the message carries reply/forward headers.
func (m RawMessage) IsReplyThread() bool {
	return m.InReplyTo != "" || len(m.References) > 0
}

// Verdict is the outcome of the classification gate
type Verdict struct {
	Accept       bool   `json:"accept"`
	Rule         string `json:"rule"`
	Reason       string `json:"reason"`
	Escalated    bool   `json:"escalated"`
	CoreMatches  int    `json:"coreMatches"`
	TechMatches  int    `json:"techMatches"`
	TitleKeyword bool   `json:"titleKeyword"`
	LocationCue  bool   `json:"locationCue"`
}

// ParsedJD holds the fields pulled from JD text by pattern matching
type ParsedJD struct {
	Role                    string `json:"role"`
	Location                string `json:"location,omitempty"`
	RecruiterEmail          string `json:"recruiterEmail,omitempty"`
	RecruiterName           string `json:"recruiterName,omitempty"`
	Company                 string `json:"company,omitempty"`
	HasApplicationQuestions bool   `json:"hasApplicationQuestions"`
}

// OutgoingEmail is an approved application ready to hand to a mail transport
type OutgoingEmail struct {
	To             string `json:"to"`
	CC             string `json:"cc,omitempty"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
	AttachmentPath string `json:"attachmentPath,omitempty"`
}
