package validation

import (
	"fmt"
	"strings"
)

// Error is returned by Check when a resume fails its sanity checks.
type Error struct {
	Errors []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("Validation failed: %s", strings.Join(e.Errors, "; "))
}
