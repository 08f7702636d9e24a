package fetch

import (
	"net/url"
	"slices"
	"strings"
)

// Platform is a job board or applicant tracking system.
type Platform string

// Known platforms. Recruiter mail links mostly to the ATS boards; staffing
// agencies post to Dice and LinkedIn.
const (
	PlatformGreenhouse      Platform = "greenhouse"
	PlatformLever           Platform = "lever"
	PlatformWorkday         Platform = "workday"
	PlatformAshby           Platform = "ashby"
	PlatformSmartRecruiters Platform = "smartrecruiters"
	PlatformWorkable        Platform = "workable"
	PlatformLinkedIn        Platform = "linkedin"
	PlatformIndeed          Platform = "indeed"
	PlatformDice            Platform = "dice"
	PlatformUnknown         Platform = "unknown"
)

// board holds the hosts and extraction selectors of one platform.
type board struct {
	platform Platform
	domains  []string
	content  []string
	noise    []string
}

var boards = []board{
	{
		platform: PlatformGreenhouse,
		domains:  []string{"greenhouse.io"},
		content:  []string{".job__description.body", ".job__description", ".job-description__content", "#content", ".job-post-container"},
		noise:    []string{".application--wrapper", ".voluntary-self-id", ".voluntary-self-id-wrapper", "#usa_self_id_section", ".post-apply"},
	},
	{
		platform: PlatformLever,
		domains:  []string{"lever.co"},
		content:  []string{".posting-page", ".section-wrapper.page-full-width", ".posting-description", ".content"},
		noise:    []string{".apply-section", ".lever-application-form", ".posting-apply"},
	},
	{
		platform: PlatformWorkday,
		domains:  []string{"myworkdayjobs.com", "workday.com"},
		content:  []string{"[data-automation-id='jobPostingDescription']", "[data-automation-id='jobDescription']", ".job-description"},
		noise:    []string{"[data-automation-id='applyButton']", "[data-automation-id='similarJobs']", ".application-section"},
	},
	{
		platform: PlatformAshby,
		domains:  []string{"ashbyhq.com"},
		content:  []string{"[class*='_descriptionText']", "[class*='_description_']", "main"},
		noise:    []string{"[class*='_applicationForm']", "[class*='_navigation']"},
	},
	{
		platform: PlatformSmartRecruiters,
		domains:  []string{"smartrecruiters.com"},
		content:  []string{"[itemprop='description']", ".job-sections", "main"},
		noise:    []string{".job-apply", ".similar-jobs"},
	},
	{
		platform: PlatformWorkable,
		domains:  []string{"workable.com"},
		content:  []string{"[data-ui='job-description']", "[data-ui='job-requirements']", "main"},
		noise:    []string{"[data-ui='apply-button']", "[data-ui='similar-jobs']"},
	},
	{
		platform: PlatformLinkedIn,
		domains:  []string{"linkedin.com"},
		content:  []string{".show-more-less-html__markup", ".description__text", ".jobs-description__content"},
		noise:    []string{".top-card-layout__cta-container", ".similar-jobs", ".people-also-viewed"},
	},
	{
		platform: PlatformIndeed,
		domains:  []string{"indeed.com"},
		content:  []string{"#jobDescriptionText", ".jobsearch-jobDescriptionText"},
		noise:    []string{"#applyButtonLinkContainer", ".jobsearch-RelatedLinks"},
	},
	{
		platform: PlatformDice,
		domains:  []string{"dice.com"},
		content:  []string{"[data-testid='jobDescriptionHtml']", "#jobDescription", ".job-description"},
		noise:    []string{"[data-testid='apply-button']", "[data-testid='similar-jobs']"},
	},
}

// commonNoise is stripped from every page: apply forms, EEO blocks, share
// buttons and consent banners.
var commonNoise = []string{
	"form",
	"#application-form",
	".application-form",
	".application--container",
	".apply-button-container",
	"[data-testid='application-form']",
	".voluntary-disclosure",
	".eeo-statement",
	".eeo-section",
	"[data-testid='eeo']",
	".legal-disclosure",
	".self-identification",
	".social-share",
	".share-buttons",
	".social-links",
	".cookie-banner",
	".cookie-consent",
	".gdpr-notice",
}

func lookup(p Platform) (board, bool) {
	i := slices.IndexFunc(boards, func(b board) bool { return b.platform == p })
	if i < 0 {
		return board{}, false
	}
	return boards[i], true
}

// DetectPlatform identifies the platform from the URL host. Subdomains of a
// platform domain match; lookalike hosts do not.
func DetectPlatform(urlStr string) Platform {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return PlatformUnknown
	}
	host := strings.ToLower(parsed.Hostname())
	for _, b := range boards {
		for _, d := range b.domains {
			if host == d || strings.HasSuffix(host, "."+d) {
				return b.platform
			}
		}
	}
	return PlatformUnknown
}

// PlatformContentSelectors returns the description selectors for a
// platform, most specific first. Unknown platforms get JobPostingSelectors.
func PlatformContentSelectors(platform Platform) []string {
	b, ok := lookup(platform)
	if !ok {
		return JobPostingSelectors()
	}
	return slices.Clone(b.content)
}

// PlatformNoiseSelectors returns the common noise selectors plus the
// platform's own.
func PlatformNoiseSelectors(platform Platform) []string {
	out := slices.Clone(commonNoise)
	if b, ok := lookup(platform); ok {
		out = append(out, b.noise...)
	}
	return out
}
