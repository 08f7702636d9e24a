package profile

import (
	"encoding/json"
	"errors"
	"os"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/jobtriage/internal/schemas"
	"github.com/jonathan/jobtriage/internal/types"
)

// DefaultPath is used when CANDIDATE_PROFILE_PATH is unset
const DefaultPath = "data/candidate.json"

// DefaultTargetHighlights is the per-entry highlight budget when an entry does not set one
const DefaultTargetHighlights = 7

// PathFromEnv returns the profile path from the environment or DefaultPath.
func PathFromEnv() string {
	if p := os.Getenv("CANDIDATE_PROFILE_PATH"); p != "" {
		return p
	}
	return DefaultPath
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report JSON field names so errors match the profile file
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Load reads, schema-checks and validates the profile at path.
// Any problem is returned as a *ConfigError.
func Load(path string) (*types.CandidateProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Message: "failed to read file", Cause: err}
	}
	return Parse(path, data)
}

// Parse validates raw profile JSON; path is only used in error messages.
func Parse(path string, data []byte) (*types.CandidateProfile, error) {
	if err := schemas.Validate(schemas.CandidateProfile, data); err != nil {
		return nil, &ConfigError{Path: path, Message: "profile does not match schema", Cause: err}
	}

	var p types.CandidateProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, &ConfigError{Path: path, Message: "failed to parse JSON", Cause: err}
	}

	if err := Validate(&p); err != nil {
		return nil, &ConfigError{Path: path, Message: err.Error()}
	}
	return &p, nil
}

// Validate checks the required identity fields and experience list.
func Validate(p *types.CandidateProfile) error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		// drop the root struct name from the namespace
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		missing = append(missing, field+" ("+fe.Tag()+")")
	}
	return errors.New("missing or invalid required fields: " + strings.Join(missing, ", "))
}

// TargetFor returns the highlight budget for an experience entry.
func TargetFor(e types.ExperienceEntry) int {
	if e.TargetHighlights > 0 {
		return e.TargetHighlights
	}
	return DefaultTargetHighlights
}

var (
	unsafeChars = regexp.MustCompile(`[^\w-]+`)
	underscores = regexp.MustCompile(`_+`)
)

// FilenameBase returns the sanitized base name used for rendered artifacts.
func FilenameBase(p *types.CandidateProfile) string {
	const fallback = "candidate_resume"
	src := p.FilenameBase
	if src == "" {
		src = strings.Join(strings.Fields(p.Name), "_")
	}
	s := unsafeChars.ReplaceAllString(src, "_")
	s = underscores.ReplaceAllString(s, "_")
	s = strings.ToLower(strings.Trim(s, "_"))
	if s == "" {
		return fallback
	}
	return s
}
