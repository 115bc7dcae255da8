package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for unknown tests, or a student result that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized indicates the caller does not own the test's group or is not on its roster.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidState indicates a transition or edit the current state does not permit.
	ErrInvalidState = errors.New("invalid state")
	// ErrValidation is wrapped by ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrTestNotActive is returned for submissions outside the started state.
	ErrTestNotActive = errors.New("test not active")
	// ErrDeadlineExceeded is returned for submissions at or after the deadline.
	ErrDeadlineExceeded = errors.New("deadline exceeded")
	// ErrDuplicateSubmission is returned for a second submission by the same student.
	ErrDuplicateSubmission = errors.New("duplicate submission")
	// ErrVersionConflict is returned by stores when a conditional update lost a race.
	ErrVersionConflict = errors.New("version conflict")
	// ErrLockTimeout is returned when the per-test lock could not be acquired in time.
	ErrLockTimeout = errors.New("lock acquisition timed out")
)

// ValidationError reports the first question that failed validation.
// QuestionIndex is -1 when the failure concerns the test as a whole.
type ValidationError struct {
	QuestionIndex int    `json:"questionIndex"`
	Reason        string `json:"reason"`
}

func (e *ValidationError) Error() string {
	if e.QuestionIndex < 0 {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Reason)
	}
	return fmt.Sprintf("%s: question %d: %s", ErrValidation, e.QuestionIndex, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
