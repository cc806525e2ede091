package services

import (
	"errors"
	"fmt"
)

// Code classifies every failure the engine can surface. Handlers map these
// to HTTP statuses; pollers treat conflict as "try again".
type Code string

const (
	CodeUnauthorized  Code = "unauthorized"
	CodeConflict      Code = "conflict"
	CodeNotFound      Code = "not_found"
	CodeLimitExceeded Code = "limit_exceeded"
	CodeExpired       Code = "expired"
	CodeUpstream      Code = "upstream_failure"
)

type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

func newError(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Unauthorizedf(format string, args ...interface{}) *Error {
	return newError(CodeUnauthorized, format, args...)
}

func Conflictf(format string, args ...interface{}) *Error {
	return newError(CodeConflict, format, args...)
}

func NotFoundf(format string, args ...interface{}) *Error {
	return newError(CodeNotFound, format, args...)
}

func LimitExceededf(format string, args ...interface{}) *Error {
	return newError(CodeLimitExceeded, format, args...)
}

func Expiredf(format string, args ...interface{}) *Error {
	return newError(CodeExpired, format, args...)
}

func Upstreamf(format string, args ...interface{}) *Error {
	return newError(CodeUpstream, format, args...)
}

// CodeOf extracts the classification of err, or "" for plain errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
