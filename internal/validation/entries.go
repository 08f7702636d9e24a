package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jonathan/jobtriage/internal/ranking"
	"github.com/jonathan/jobtriage/internal/rendering"
	"github.com/jonathan/jobtriage/internal/resume"
	"github.com/jonathan/jobtriage/internal/types"
)

func checkEntries(doc *rendering.Document, entries []resume.EntryMeta) []types.Violation {
	var vs []types.Violation
	for i, e := range doc.Experiences {
		n := len(e.Highlights)
		if n == 0 {
			vs = append(vs, entryViolation(TypeBulletCount, e.Company, "%s has no highlights", e.Company))
		}
		if i < len(entries) && entries[i].Target > 0 && n > entries[i].Target {
			vs = append(vs, entryViolation(TypeBulletCount, e.Company,
				"%s has %d highlights, target is %d", e.Company, n, entries[i].Target))
		}

		seen := make(map[string]bool, n)
		for _, h := range e.Highlights {
			key := ranking.NormalizeText(h)
			if seen[key] {
				vs = append(vs, entryViolation(TypeDuplicate, e.Company, "%s repeats highlight %q", e.Company, h))
				continue
			}
			seen[key] = true
		}
	}
	return vs
}

func entryViolation(typ, entry, format string, args ...any) types.Violation {
	return types.Violation{
		Type:     typ,
		Severity: types.SeverityError,
		Details:  fmt.Sprintf(format, args...),
		Entry:    entry,
	}
}

var k8sPatterns = func() map[types.Cloud]*regexp.Regexp {
	m := make(map[types.Cloud]*regexp.Regexp, len(types.Clouds))
	for _, c := range types.Clouds {
		m[c] = wordPattern(resume.StackFor(c).K8s)
	}
	return m
}()

func wordPattern(terms ...string) *regexp.Regexp {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = regexp.QuoteMeta(t)
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// checkCloudAlignment flags entries that name another provider's Kubernetes
// service without naming the target provider at all.
func checkCloudAlignment(doc *rendering.Document, cloud types.Cloud) []types.Violation {
	if cloud == types.CloudNone {
		return nil
	}
	target := resume.StackFor(cloud)
	own := wordPattern(target.Name, target.K8s, target.ModelServing)

	var vs []types.Violation
	for _, e := range doc.Experiences {
		text := strings.Join(e.Highlights, "\n")
		if own.MatchString(text) {
			continue
		}
		for _, other := range types.Clouds {
			if other == cloud {
				continue
			}
			if m := k8sPatterns[other].FindString(text); m != "" {
				vs = append(vs, entryViolation(TypeCloudMismatch, e.Company,
					"%s mentions non-target cloud service %s (target %s)", e.Company, m, cloud))
				break
			}
		}
	}
	return vs
}
