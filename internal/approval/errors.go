package approval

import (
	"fmt"

	"github.com/jonathan/jobtriage/internal/types"
)

// NotFoundError is returned when no submission has the requested ID
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("submission %s not found", e.ID)
}

// TransitionError is returned when an action is not allowed from the current status
type TransitionError struct {
	ID     string
	Action string
	From   types.Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s submission %s: status is %s", e.Action, e.ID, e.From)
}

// SendError is returned when the approved email could not be delivered.
// The submission keeps its previous status.
type SendError struct {
	ID      string
	Message string
	Cause   error
}

func (e *SendError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("send failed for %s: %s: %v", e.ID, e.Message, e.Cause)
	}
	return fmt.Sprintf("send failed for %s: %s", e.ID, e.Message)
}

func (e *SendError) Unwrap() error {
	return e.Cause
}

// InProgressError is returned while the submission's email is being sent
type InProgressError struct {
	ID string
}

func (e *InProgressError) Error() string {
	return fmt.Sprintf("submission %s is being sent", e.ID)
}

// RecordError is returned when the approved email was delivered but the
// approval could not be saved. Approving again saves without resending.
type RecordError struct {
	ID        string
	MessageID string
	Cause     error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("email for %s was sent as %s but the approval was not recorded: %v", e.ID, e.MessageID, e.Cause)
}

func (e *RecordError) Unwrap() error {
	return e.Cause
}

// StoreError wraps a failure of the underlying persistence layer
type StoreError struct {
	Op    string
	Cause error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("queue store %s failed: %v", e.Op, e.Cause)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}
