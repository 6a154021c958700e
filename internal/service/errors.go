package service

import (
	"errors"
	"fmt"
)

// Error kinds. Concrete errors below wrap one of these so callers can branch
// with errors.Is on the kind alone.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrExternalService = errors.New("external service error")
)

var (
	ErrBookingNotFound = fmt.Errorf("booking %w", ErrNotFound)
	ErrMeetingNotFound = fmt.Errorf("meeting %w", ErrNotFound)
	ErrEntryNotFound   = fmt.Errorf("waiting entry %w", ErrNotFound)

	ErrMeetingAlreadyActive = fmt.Errorf("%w: booking already has an active meeting", ErrConflict)
	ErrMeetingAlreadyEnded  = fmt.Errorf("%w: meeting has already ended", ErrConflict)
	ErrMeetingNotActive     = fmt.Errorf("%w: meeting is not active", ErrConflict)
	ErrEntryAlreadyDecided  = fmt.Errorf("%w: waiting entry is already decided", ErrConflict)

	ErrInvalidJoinToken = fmt.Errorf("%w: invalid join token", ErrUnauthorized)
	ErrJoinWindowClosed = fmt.Errorf("%w: meeting is no longer joinable", ErrUnauthorized)
	ErrNotAdmitted      = fmt.Errorf("%w: visitor has not been admitted", ErrUnauthorized)
	ErrRoleNotAllowed   = fmt.Errorf("%w: role not allowed for this participant", ErrUnauthorized)
)

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// Kind maps an error to a stable label for logs.
func Kind(err error) string {
	var vErr *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &vErr):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrExternalService):
		return "external_service"
	}
	return "unexpected"
}
