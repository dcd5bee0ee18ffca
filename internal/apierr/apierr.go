package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func NotFound(format string, args ...interface{}) *Error {
	return New(http.StatusNotFound, "not_found", fmt.Errorf(format, args...))
}

func InvalidArgument(format string, args ...interface{}) *Error {
	return New(http.StatusBadRequest, "invalid_argument", fmt.Errorf(format, args...))
}

func Constraint(format string, args ...interface{}) *Error {
	return New(http.StatusForbidden, "constraint_violation", fmt.Errorf(format, args...))
}

func Measurement(format string, args ...interface{}) *Error {
	return New(http.StatusBadRequest, "measurement_error", fmt.Errorf(format, args...))
}

func Internal(err error) *Error {
	return New(http.StatusInternalServerError, "internal", err)
}

// StatusOf returns the HTTP status carried by err, or 500 when err is not an
// *Error.
func StatusOf(err error) int {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Status
	}
	return http.StatusInternalServerError
}
