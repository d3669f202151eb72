package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by services and repositories. Callers classify
// failures with errors.Is; the HTTP layer maps them to status codes.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("dependency unavailable")
	ErrRateLimited  = errors.New("rate limit exceeded")
)

// ValidationError reports a missing or malformed input field. It is always
// raised before any I/O happens.
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

// NewValidationError builds a *ValidationError for the given field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Unavailable wraps a storage or transport failure so it can be recognised
// as transient by retry policies and mapped to 503 by the API.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}
