package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for user-facing rejections. Callers match with errors.Is.
var (
	ErrNotFound               = errors.New("not found")
	ErrForbidden              = errors.New("forbidden")
	ErrValidation             = errors.New("validation failed")
	ErrAlreadyInFlight        = errors.New("an analysis is already in progress")
	ErrRateLimited            = errors.New("analysis rate limit reached")
	ErrInsufficientCredits    = errors.New("insufficient credits")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrInvalidStepIndex       = errors.New("step index out of range")
	ErrInvalidStepReference   = errors.New("step does not belong to this suggestion")
	ErrCannotDeleteSystemStep = errors.New("system generated steps cannot be deleted")
)

// RateLimitedError carries the moment the next analysis may be requested.
type RateLimitedError struct {
	NextAvailableAt time.Time
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s: next analysis available at %s", ErrRateLimited, e.NextAvailableAt.UTC().Format(time.RFC3339))
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// TransitionError describes a rejected edge in one of the status machines.
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s cannot move from %q to %q", ErrInvalidTransition, e.Entity, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// Validationf wraps ErrValidation with a field-level message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
