package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/jobtriage/internal/approval"
	"github.com/jonathan/jobtriage/internal/fetch"
	"github.com/jonathan/jobtriage/internal/validation"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error: %s", e.Message)
	}
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error.
// Wrapped errors are unwrapped.
func HTTPStatus(err error) int {
	var (
		notFound   *approval.NotFoundError
		transition *approval.TransitionError
		send       *approval.SendError
		busy       *approval.InProgressError
		invalid    *validation.Error
		request    *ErrValidation
		fetchErr   *fetch.Error
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &request):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &transition), errors.As(err, &busy):
		return http.StatusConflict
	case errors.As(err, &invalid):
		return http.StatusUnprocessableEntity
	case errors.As(err, &send), errors.As(err, &fetchErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
