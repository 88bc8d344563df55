// Package apperr provides the error taxonomy shared by the server and the sync layer.
//
// Services and stores return typed errors; callers branch on them with errors.Is
// against the sentinels, or with errors.As to read the Code:
//
//	if apperr.IsNotFound(err) {
//	    http.Error(w, err.Error(), http.StatusNotFound)
//	    return
//	}
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeValidation Code = "VALIDATION"
	CodeNotFound   Code = "NOT_FOUND"
	CodeTransient  Code = "TRANSIENT_REMOTE"
	CodeInternal   Code = "INTERNAL"
)

// HTTPStatus returns the HTTP status matching the code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeTransient:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Sentinels for errors.Is.
var (
	ErrValidation = &Error{Code: CodeValidation}
	ErrNotFound   = &Error{Code: CodeNotFound}
	ErrTransient  = &Error{Code: CodeTransient}
	ErrInternal   = &Error{Code: CodeInternal}
)

// Error is a coded error with a human message and an optional cause.
type Error struct {
	Code    Code
	Message string
	// Status is the HTTP status observed from the remote side, 0 for network failures.
	Status int
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Validation reports a missing or malformed field.
func Validation(format string, args ...any) error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a reference to a record that does not exist.
func NotFound(format string, args ...any) error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Transient reports a network failure or non-2xx response from the remote side.
func Transient(msg string, status int, cause error) error {
	return &Error{Code: CodeTransient, Message: msg, Status: status, Err: cause}
}

// Internal wraps an unexpected failure.
func Internal(msg string, cause error) error {
	return &Error{Code: CodeInternal, Message: msg, Err: cause}
}

// CodeOf extracts the code of err, or CodeInternal if err is not an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// StatusOf returns the remote HTTP status carried by a transient error, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }
func IsTransient(err error) bool  { return errors.Is(err, ErrTransient) }
