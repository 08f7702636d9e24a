package compose

import (
	"strings"

	"github.com/jonathan/jobtriage/internal/types"
)

// DetailsHeader starts the application details block
const DetailsHeader = "APPLICATION DETAILS:"

var detailLabels = []struct {
	key, label string
}{
	{"fullLegalName", "Full Legal Name"},
	{"currentLocation", "Current Location"},
	{"phone", "Phone"},
	{"email", "Email"},
	{"visaStatus", "Visa/Work Permit"},
	{"interviewAvailability", "Interview Availability"},
	{"willingToRelocate", "Willing to Relocate"},
	{"preferredStartDate", "Preferred Start Date"},
	{"overallExperience", "Overall IT Experience"},
	{"linkedinUrl", "LinkedIn URL"},
}

// detailValue answers one question from the application profile, falling
// back to the identity fields for the contact questions.
func detailValue(p *types.CandidateProfile, key string) string {
	app := p.Application
	pick := func(v, fallback string) string {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
		return strings.TrimSpace(fallback)
	}
	switch key {
	case "fullLegalName":
		return pick(app.FullLegalName, p.Name)
	case "currentLocation":
		return pick(app.CurrentLocation, p.Location)
	case "phone":
		return pick(app.Phone, p.Phone)
	case "email":
		return pick(app.Email, p.Email)
	case "visaStatus":
		return pick(app.VisaStatus, "")
	case "interviewAvailability":
		return pick(app.InterviewAvailability, "")
	case "willingToRelocate":
		return pick(app.WillingToRelocate, "")
	case "preferredStartDate":
		return pick(app.PreferredStartDate, "")
	case "overallExperience":
		return pick(app.OverallExperience, "")
	case "linkedinUrl":
		return pick(app.LinkedInURL, p.Links.LinkedIn)
	}
	return ""
}

// ApplicationDetails renders answers for the asked question keys, in a
// fixed order. Keys the profile cannot answer are left out; the result is
// empty when nothing can be answered.
func ApplicationDetails(p *types.CandidateProfile, keys []string) string {
	asked := make(map[string]bool, len(keys))
	for _, k := range keys {
		asked[k] = true
	}
	var lines []string
	for _, d := range detailLabels {
		if !asked[d.key] {
			continue
		}
		if v := detailValue(p, d.key); v != "" {
			lines = append(lines, d.label+": "+v)
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return DetailsHeader + "\n" + strings.Join(lines, "\n")
}

// Signature is the closing block, built only from the profile.
func Signature(p *types.CandidateProfile) string {
	lines := []string{"Best regards,", p.Name, p.Email, p.Phone}
	if p.Links.LinkedIn != "" {
		lines = append(lines, "LinkedIn: "+p.Links.LinkedIn)
	}
	return strings.Join(lines, "\n")
}
