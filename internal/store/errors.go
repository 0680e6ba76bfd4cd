package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// StoreError represents a failure in a store operation.
//
// The code places the failure in the recovery taxonomy:
//   - CONFIG_INVALID: rejected before any transaction started
//   - STORE_TRANSIENT: the transaction aborted with no state change;
//     recovery happens at the next scheduled occurrence
//   - INTEGRITY_VIOLATION: a constraint rejected the write; the
//     transaction aborted
type StoreError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op names the operation that failed (e.g. "aggregate").
	Op string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes store errors.
type ErrorCode string

const (
	// ErrCodeConfigInvalid indicates bad caller input (unknown period
	// token, non-positive delta, unknown schema name). No side effects.
	ErrCodeConfigInvalid ErrorCode = "CONFIG_INVALID"

	// ErrCodeTransient indicates lock contention, a timed-out
	// transaction, or a lost connection. The whole transaction rolled
	// back; retry at the next natural occurrence.
	ErrCodeTransient ErrorCode = "STORE_TRANSIENT"

	// ErrCodeIntegrity indicates a constraint violation (duplicate
	// key, missing foreign key). The transaction rolled back.
	ErrCodeIntegrity ErrorCode = "INTEGRITY_VIOLATION"
)

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Code, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Op, e.Message)
}

// Unwrap returns the underlying cause.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsConfigError returns true if the error is a configuration error.
// Uses errors.As to handle wrapped errors.
func IsConfigError(err error) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Code == ErrCodeConfigInvalid
}

// IsTransientError returns true if the error is a transient store
// error that will resolve at the next scheduled occurrence.
func IsTransientError(err error) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Code == ErrCodeTransient
}

// IsIntegrityError returns true if the error is a constraint
// violation.
func IsIntegrityError(err error) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Code == ErrCodeIntegrity
}

// classify wraps a driver error with the matching taxonomy code.
//
// SQLITE_BUSY/SQLITE_LOCKED and context expiry are transient: the
// transaction rolled back and the work is safe to redo later.
// Constraint failures are integrity violations. Anything else is
// reported as transient, since SQLite aborts the transaction either
// way and a retry at the next occurrence is the safe default.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &StoreError{Code: ErrCodeTransient, Op: op, Message: "transaction timed out", Err: err}
	}

	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) {
		switch sqlErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return &StoreError{Code: ErrCodeTransient, Op: op, Message: "database locked", Err: err}
		case sqlite3.ErrConstraint:
			return &StoreError{Code: ErrCodeIntegrity, Op: op, Message: "constraint violation", Err: err}
		}
	}

	return &StoreError{Code: ErrCodeTransient, Op: op, Message: "store operation failed", Err: err}
}
