package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionExists     = errors.New("session already exists")
	ErrSessionEnded      = errors.New("session already ended")
	ErrStepMismatch      = errors.New("step mismatch")
	ErrVersionConflict   = errors.New("session was modified concurrently")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidInput      = errors.New("invalid input")
)

// StepMismatchError is returned when a client claims a step that is not
// the session's current one.
type StepMismatchError struct {
	Expected int
	Claimed  int
}

func (e *StepMismatchError) Error() string {
	return fmt.Sprintf("step mismatch: current step is %d, got %d", e.Expected, e.Claimed)
}

func (e *StepMismatchError) Unwrap() error { return ErrStepMismatch }

// IsConflict groups the errors that mean "the session is not in a state
// that allows this".
func IsConflict(err error) bool {
	return errors.Is(err, ErrSessionEnded) ||
		errors.Is(err, ErrStepMismatch) ||
		errors.Is(err, ErrVersionConflict) ||
		errors.Is(err, ErrInvalidTransition)
}
