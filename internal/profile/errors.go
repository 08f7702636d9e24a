// Package profile loads and validates the candidate profile that every resume and email is built from.
package profile

import "fmt"

// ConfigError means the profile is missing or incomplete. It is fatal at startup.
type ConfigError struct {
	Path    string
	Message string
	Cause   error
}

func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("candidate profile %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("candidate profile %s: %s", e.Path, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}
