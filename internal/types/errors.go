package types

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when a session id is unknown or expired.
	ErrSessionNotFound = errors.New("session not found or expired")

	// ErrUnresolvableDestination is returned when the geocoder cannot resolve
	// a destination name to a coordinate. Fatal to start.
	ErrUnresolvableDestination = errors.New("destination could not be resolved")

	// ErrVerificationExhausted marks a keyword that failed every verification
	// pass. Never fatal to the stage; the keyword is dropped.
	ErrVerificationExhausted = errors.New("keyword verification exhausted")
)

// StageFailureError signals that an entire pipeline stage failed after
// retries. The orchestrator leaves the session at the last committed stage so
// the caller can retry without losing progress.
type StageFailureError struct {
	Stage Stage
	Err   error
}

func (e *StageFailureError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageFailureError) Unwrap() error { return e.Err }
