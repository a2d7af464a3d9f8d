package types

import (
	"errors"
	"fmt"
)

// ErrorCode classifies failures of core operations.
type ErrorCode string

const (
	CodeNotFound         ErrorCode = "NotFound"
	CodeDuplicate        ErrorCode = "Duplicate"
	CodeIllegalArgument  ErrorCode = "IllegalArgument"
	CodeValidationFailed ErrorCode = "ValidationFailed"
	CodeFatal            ErrorCode = "Fatal"
)

// Error is the concrete error type returned by core operations.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error returns the error message.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel of the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Message == "" && t.Cause == nil && t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrNotFound         = &Error{Code: CodeNotFound}
	ErrDuplicate        = &Error{Code: CodeDuplicate}
	ErrIllegalArgument  = &Error{Code: CodeIllegalArgument}
	ErrValidationFailed = &Error{Code: CodeValidationFailed}
	ErrFatal            = &Error{Code: CodeFatal}
)

// NotFoundf creates a NotFound error.
func NotFoundf(format string, args ...interface{}) error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Duplicatef creates a Duplicate error.
func Duplicatef(format string, args ...interface{}) error {
	return &Error{Code: CodeDuplicate, Message: fmt.Sprintf(format, args...)}
}

// IllegalArgumentf creates an IllegalArgument error.
func IllegalArgumentf(format string, args ...interface{}) error {
	return &Error{Code: CodeIllegalArgument, Message: fmt.Sprintf(format, args...)}
}

// Fatalf wraps cause as a Fatal error. Errors already carrying a code keep it.
func Fatalf(cause error, format string, args ...interface{}) error {
	var e *Error
	if errors.As(cause, &e) {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), cause)
	}
	return &Error{Code: CodeFatal, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
