package events

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is the parent of every input-tier failure.
	ErrInvalidInput = errors.New("invalid input")

	ErrCreateFailed = errors.New("failed to create event")
	ErrUpdateFailed = errors.New("failed to update event")
	ErrDeleteFailed = errors.New("failed to delete event")
)

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// IsInputError reports whether err belongs to the input tier (missing fields,
// malformed ids or a write the storage layer declined).
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrCreateFailed) ||
		errors.Is(err, ErrUpdateFailed) ||
		errors.Is(err, ErrDeleteFailed)
}
