// Package errors defines the tagged error taxonomy of the registration path.
//
// Every failure of the registration sequence is wrapped in an *Error whose
// Code names the step that failed. The HTTP layer collapses all codes into a
// single opaque response; the codes exist for logs and metrics.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// PoolError indicates a connection could not be acquired from the pool
	PoolError ErrorCode = "POOL_ERROR"
	// SchemaError indicates the users table could not be ensured
	SchemaError ErrorCode = "SCHEMA_ERROR"
	// WriteError indicates the insert failed (constraint violation, I/O)
	WriteError ErrorCode = "WRITE_ERROR"
	// ReadError indicates the read-back failed (not found, I/O)
	ReadError ErrorCode = "READ_ERROR"
	// Cancelled indicates the caller stopped waiting for an offloaded result
	Cancelled ErrorCode = "CANCELLED"
	// InternalError indicates anything else
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// Codes lists every code in a stable order.
var Codes = []ErrorCode{PoolError, SchemaError, WriteError, ReadError, Cancelled, InternalError}

// Error carries a code, a short message and the underlying cause.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	cause   error
}

// New creates a new *Error.
func New(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches another *Error with the same code, so callers can write
// errors.Is(err, &Error{Code: WriteError}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Pool wraps a connection acquisition failure.
func Pool(cause error) *Error { return New(PoolError, "acquire connection", cause) }

// Schema wraps a schema initialization failure.
func Schema(cause error) *Error { return New(SchemaError, "ensure schema", cause) }

// Write wraps an insert failure.
func Write(cause error) *Error { return New(WriteError, "insert record", cause) }

// Read wraps a read-back failure.
func Read(cause error) *Error { return New(ReadError, "read back record", cause) }

// CodeOf returns the code of the first *Error in err's chain, or
// InternalError when there is none. A nil error has no code.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return InternalError
}
