// Package types provides type definitions for structured data used throughout the jobtriage system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// CandidateProfile is the ground truth for every generated resume and email.
type CandidateProfile struct {
	Name         string             `json:"name" validate:"required"`
	Title        string             `json:"title" validate:"required"`
	Email        string             `json:"email" validate:"required,email"`
	Phone        string             `json:"phone" validate:"required"`
	Location     string             `json:"location,omitempty"`
	Links        Links              `json:"links"`
	Summary      Summary            `json:"summary"`
	Experiences  []ExperienceEntry  `json:"experiences" validate:"required,min=1,dive"`
	Skills       []SkillBlock       `json:"skills"`
	Education    []EducationEntry   `json:"education"`
	Application  ApplicationProfile `json:"application"`
	FilenameBase string             `json:"filenameBase,omitempty"`
}

// Links holds optional profile URLs
type Links struct {
	LinkedIn string `json:"linkedin,omitempty"`
	GitHub   string `json:"github,omitempty"`
	Website  string `json:"website,omitempty"`
}

// Summary is a base paragraph plus optional per-role-track replacements
type Summary struct {
	Base     string               `json:"base"`
	Variants map[RoleTrack]string `json:"variants,omitempty"`
}

// ExperienceEntry is one employer block on the resume.
// TargetHighlights caps how many highlights the generator keeps for the entry;
// zero means the generator default.
type ExperienceEntry struct {
	Company          string                `json:"company" validate:"required"`
	Role             string                `json:"role" validate:"required"`
	Location         string                `json:"location,omitempty"`
	StartDate        string                `json:"startDate"`
	EndDate          string                `json:"endDate"`
	TargetHighlights int                   `json:"targetHighlights,omitempty" validate:"gte=0"`
	Highlights       []ExperienceHighlight `json:"highlights"`
}

// ExperienceHighlight is a single bullet of experience text with selection tags
type ExperienceHighlight struct {
	Text string        `json:"text"`
	Tags HighlightTags `json:"tags"`
}

// HighlightTags drive selection scoring only; they never alter the highlight text.
type HighlightTags struct {
	Clouds     []string `json:"clouds,omitempty"`
	RoleTracks []string `json:"roleTracks,omitempty"`
	Domains    []string `json:"domains,omitempty"`
	Triggers   []string `json:"triggers,omitempty"`
	Keywords   []string `json:"keywords,omitempty"`
	Priority   int      `json:"priority,omitempty"`
}

// SkillBlock is a labelled list of skills
type SkillBlock struct {
	Label string   `json:"label"`
	Items []string `json:"items"`
}

// EducationEntry is one education line
type EducationEntry struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree"`
	StartDate   string `json:"startDate,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
	Location    string `json:"location,omitempty"`
}

// ApplicationProfile answers the questions recruiters commonly ask in a JD.
type ApplicationProfile struct {
	FullLegalName         string `json:"fullLegalName,omitempty"`
	CurrentLocation       string `json:"currentLocation,omitempty"`
	Phone                 string `json:"phone,omitempty"`
	Email                 string `json:"email,omitempty"`
	VisaStatus            string `json:"visaStatus,omitempty"`
	InterviewAvailability string `json:"interviewAvailability,omitempty"`
	WillingToRelocate     string `json:"willingToRelocate,omitempty"`
	PreferredStartDate    string `json:"preferredStartDate,omitempty"`
	OverallExperience     string `json:"overallExperience,omitempty"`
	LinkedInURL           string `json:"linkedinUrl,omitempty"`
}
