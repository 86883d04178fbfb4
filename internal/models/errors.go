package models

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by repositories, services, and handlers.
var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrDuplicate        = errors.New("duplicate")
)

// WriteError wraps a store failure. Retryable unless the underlying
// cause is a constraint or permission violation.
type WriteError struct {
	Op  string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Op, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// DecodeError marks a stored document that does not match the
// expected shape. Batch readers skip these rather than failing.
type DecodeError struct {
	Entity string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Entity, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsRetryable reports whether an error is worth retrying with backoff.
func IsRetryable(err error) bool {
	var we *WriteError
	if !errors.As(err, &we) {
		return false
	}
	return !errors.Is(err, ErrDuplicate) &&
		!errors.Is(err, ErrPermissionDenied) &&
		!errors.Is(err, ErrNotFound)
}
