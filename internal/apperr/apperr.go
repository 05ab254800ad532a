// Package apperr defines the engine's error taxonomy. Repositories wrap
// low-level errors with fmt.Errorf; services translate them into one of the
// four classes here so callers can branch without string matching.
package apperr

import (
	"errors"
	"fmt"
)

// Machine-readable conflict and validation codes surfaced to callers.
const (
	CodeSlotNotOffered       = "SLOT_NOT_OFFERED"
	CodeSlotAlreadyCommitted = "SLOT_ALREADY_COMMITTED"
	CodeTooSoon              = "TOO_SOON"
	CodeWeeklyLimitReached   = "WEEKLY_LIMIT_REACHED"
	CodeUnsupportedTimezone  = "UNSUPPORTED_TIMEZONE"
	CodeInvalidArgument      = "INVALID_ARGUMENT"
)

// ValidationError marks malformed input: bad weekday, time, date range, or an
// unsupported timezone. Detected before any mutating write.
type ValidationError struct {
	Code string
	Msg  string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validation(code, format string, args ...any) error {
	return &ValidationError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError marks a missing commitment, schedule version, or subscription.
type NotFoundError struct {
	Entity string
	ID     any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

func NotFound(entity string, id any) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ConflictError marks a scheduling conflict: slot not offered, slot already
// committed, or a replace requested too soon.
type ConflictError struct {
	Code string
	Msg  string
}

func (e *ConflictError) Error() string { return e.Msg }

func Conflict(code, format string, args ...any) error {
	return &ConflictError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// StorageError wraps a transaction or connectivity failure from the backing
// store after the transaction has rolled back.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }

func Storage(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// ConflictCode extracts the machine code from a conflict error, or "".
func ConflictCode(err error) string {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
