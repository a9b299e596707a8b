// Package batched structured error types for better error handling
package batched

import (
	"errors"
	"fmt"
)

// ErrorType represents categories of errors
type ErrorType int

const (
	// Shape and construction errors: rank, extents, layout pairing,
	// non-square input to the square heuristic.
	ErrTypeShape ErrorType = iota + 1
	// Invalid argument errors
	ErrTypeInvalidArg
	// Unsupported configuration: unknown algorithm, vendor library
	// unavailable, transpose not handled by the selected kernel.
	ErrTypeUnsupported
	// Execution errors
	ErrTypeExecution
	// Not implemented paths. These are raised as panics.
	ErrTypeNotImplemented
)

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Op      string      // Operation that failed
	Message string      // Human-readable message
	Err     error       // Underlying error if any
	Context interface{} // Additional context
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("batched %s error in %s: %s (caused by: %v)",
			e.Type.String(), e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("batched %s error in %s: %s",
		e.Type.String(), e.Op, e.Message)
}

// Unwrap allows error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// String returns the error type as a string
func (t ErrorType) String() string {
	switch t {
	case ErrTypeShape:
		return "Shape"
	case ErrTypeInvalidArg:
		return "InvalidArgument"
	case ErrTypeUnsupported:
		return "Unsupported"
	case ErrTypeExecution:
		return "Execution"
	case ErrTypeNotImplemented:
		return "NotImplemented"
	default:
		return "Unknown"
	}
}

// Common error constructors

// NewShapeError creates a shape or construction error
func NewShapeError(op string, message string, context interface{}) error {
	return &Error{
		Type:    ErrTypeShape,
		Op:      op,
		Message: message,
		Context: context,
	}
}

// NewInvalidArgError creates an invalid argument error
func NewInvalidArgError(op string, message string) error {
	return &Error{
		Type:    ErrTypeInvalidArg,
		Op:      op,
		Message: message,
	}
}

// NewUnsupportedError creates an unsupported-configuration error
func NewUnsupportedError(op string, message string, context interface{}) error {
	return &Error{
		Type:    ErrTypeUnsupported,
		Op:      op,
		Message: message,
		Context: context,
	}
}

// NewExecutionError creates an execution error
func NewExecutionError(op string, message string, err error) error {
	return &Error{
		Type:    ErrTypeExecution,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// notImplemented aborts an unimplemented path. There is no safe value to
// return, so it panics instead of returning an error.
func notImplemented(op string, message string) {
	panic(&Error{
		Type:    ErrTypeNotImplemented,
		Op:      op,
		Message: message,
	})
}

// Common pre-defined errors

var (
	// ErrNilHandle indicates a missing handle
	ErrNilHandle = NewInvalidArgError("Gemm", "handle is nil")

	// ErrNilView indicates a missing view
	ErrNilView = NewInvalidArgError("Analyze", "view is nil")
)

func errorType(err error) (ErrorType, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Type, true
	}
	return 0, false
}

// IsShapeError checks if an error is a shape or construction error
func IsShapeError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeShape
}

// IsInvalidArgError checks if an error is an invalid argument error
func IsInvalidArgError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeInvalidArg
}

// IsUnsupportedError checks if an error is an unsupported-configuration error
func IsUnsupportedError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeUnsupported
}

// IsExecutionError checks if an error is an execution error
func IsExecutionError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeExecution
}

// IsNotImplementedError checks if an error is a not implemented error
func IsNotImplementedError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeNotImplemented
}

// Status converts the result of a batched call into a status code: zero on
// success, the error type for structured errors and -1 for anything else.
func Status(err error) int {
	if err == nil {
		return 0
	}
	if t, ok := errorType(err); ok {
		return int(t)
	}
	return -1
}
