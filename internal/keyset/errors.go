package keyset

import (
	"errors"
	"fmt"

	"github.com/roach88/prequel/internal/ir"
)

// ErrorCode categorizes KeySet errors.
type ErrorCode string

const (
	// ErrCodeUnsupportedOperation indicates an operation with no native
	// implementation and no matching scope on the bound model.
	ErrCodeUnsupportedOperation ErrorCode = "UNSUPPORTED_OPERATION"

	// ErrCodeInvalidArgument indicates an argument outside the operation's domain.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// ErrCodeKeyNotFound indicates a key absent from the backing store.
	// Raised by Mapper implementations, propagated unmodified by KeySet.
	ErrCodeKeyNotFound ErrorCode = "KEY_NOT_FOUND"
)

// Error is the structured error returned by KeySet operations and Mappers.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op names the operation or capability that failed.
	Op string

	// Klass names the model the KeySet is bound to ("KeySet" when unbound).
	Klass string

	// Key is the missing key (KEY_NOT_FOUND only).
	Key ir.Key

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Klass != "" {
		return fmt.Sprintf("%s: %s (klass=%s)", e.Code, e.Message, e.Klass)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsUnsupported reports whether err is an UNSUPPORTED_OPERATION error.
func IsUnsupported(err error) bool {
	return hasCode(err, ErrCodeUnsupportedOperation)
}

// IsInvalidArgument reports whether err is an INVALID_ARGUMENT error.
func IsInvalidArgument(err error) bool {
	return hasCode(err, ErrCodeInvalidArgument)
}

// IsKeyNotFound reports whether err is a KEY_NOT_FOUND error.
func IsKeyNotFound(err error) bool {
	return hasCode(err, ErrCodeKeyNotFound)
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// NewUnsupportedError reports a capability missing on klass.
func NewUnsupportedError(op, klass string) *Error {
	return &Error{
		Code:    ErrCodeUnsupportedOperation,
		Op:      op,
		Klass:   klass,
		Message: fmt.Sprintf("undefined operation %q for %s", op, klass),
	}
}

// NewInvalidArgumentError reports a bad argument to op.
func NewInvalidArgumentError(op, message string) *Error {
	return &Error{
		Code:    ErrCodeInvalidArgument,
		Op:      op,
		Message: fmt.Sprintf("%s: %s", op, message),
	}
}

// NewKeyNotFoundError reports a key missing from klass's store.
// cause is kept for errors.Is checks against store-level sentinels.
func NewKeyNotFoundError(klass string, key ir.Key, cause error) *Error {
	return &Error{
		Code:    ErrCodeKeyNotFound,
		Op:      "lookup",
		Klass:   klass,
		Key:     key,
		Message: fmt.Sprintf("key %q not found", key),
		Err:     cause,
	}
}
