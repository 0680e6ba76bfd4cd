package schedule

import (
	"errors"
	"fmt"
)

// ScheduleError represents a scheduling failure.
type ScheduleError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes schedule errors.
type ErrorCode string

const (
	// ErrCodeSpecInvalid indicates a malformed cron expression or an
	// unresolvable timezone. Rejected at registration, no side
	// effects.
	ErrCodeSpecInvalid ErrorCode = "SPEC_INVALID"

	// ErrCodeCallbackFailed indicates the job raised an error or
	// panicked during a scheduled firing. Reported to the error
	// channel; the scheduling loop continues.
	ErrCodeCallbackFailed ErrorCode = "CALLBACK_FAILED"
)

// Error implements the error interface.
func (e *ScheduleError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ScheduleError) Unwrap() error {
	return e.Err
}

// IsSpecError returns true if the error is a spec/timezone
// configuration error. Uses errors.As to handle wrapped errors.
func IsSpecError(err error) bool {
	var se *ScheduleError
	return errors.As(err, &se) && se.Code == ErrCodeSpecInvalid
}

// IsCallbackError returns true if the error came from a job callback.
func IsCallbackError(err error) bool {
	var se *ScheduleError
	return errors.As(err, &se) && se.Code == ErrCodeCallbackFailed
}
