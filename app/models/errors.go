package models

import (
	"errors"
	"fmt"
)

// Error codes returned to API clients
const (
	ErrorCodeNotFound          = "NOT_FOUND"
	ErrorCodeInvalidState      = "INVALID_STATE"
	ErrorCodeCapacityReached   = "CAPACITY_REACHED"
	ErrorCodeValidation        = "VALIDATION_ERROR"
	ErrorCodeDuplicateFeedback = "DUPLICATE_FEEDBACK"
	ErrorCodeForbidden         = "FORBIDDEN"
	ErrorCodeUnauthorized      = "UNAUTHORIZED"
	ErrorCodeInternal          = "INTERNAL_ERROR"
)

var (
	// ErrNotFound is returned when a referenced session or user does not exist
	ErrNotFound = errors.New("not found")
	// ErrCapacityReached is returned when a session has no free seat
	ErrCapacityReached = errors.New("session has reached its participant capacity")
	// ErrDuplicateFeedback is returned when a user already rated that partner in that session
	ErrDuplicateFeedback = errors.New("feedback already submitted for this partner")
	// ErrNotParticipant is returned when a user is not registered for the session
	ErrNotParticipant = errors.New("user is not a participant of this session")
	// ErrForbidden is returned when the caller may not perform the operation
	ErrForbidden = errors.New("operation not permitted for this user")
)

// StateError reports an operation rejected because of the session status
type StateError struct {
	Op     string
	Status SessionStatus
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s: session is %s", e.Op, e.Status)
}

// NewStateError builds a StateError for op against status
func NewStateError(op string, status SessionStatus) error {
	return &StateError{Op: op, Status: status}
}

// ValidationError reports a malformed request field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for field
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// ErrorCode maps an error to the code exposed to API clients
func ErrorCode(err error) string {
	var stateErr *StateError
	var validationErr *ValidationError
	switch {
	case errors.Is(err, ErrNotFound):
		return ErrorCodeNotFound
	case errors.Is(err, ErrCapacityReached):
		return ErrorCodeCapacityReached
	case errors.Is(err, ErrDuplicateFeedback):
		return ErrorCodeDuplicateFeedback
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrNotParticipant):
		return ErrorCodeForbidden
	case errors.As(err, &stateErr):
		return ErrorCodeInvalidState
	case errors.As(err, &validationErr):
		return ErrorCodeValidation
	}
	return ErrorCodeInternal
}
