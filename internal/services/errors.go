package services

import (
	"errors"
	"fmt"
)

// ErrorKind is the semantic category of a domain error
type ErrorKind string

const (
	KindNotFound            ErrorKind = "not_found"
	KindForbidden           ErrorKind = "forbidden"
	KindValidation          ErrorKind = "validation_failure"
	KindUpstreamUnavailable ErrorKind = "upstream_unavailable"
	KindUpstreamTimeout     ErrorKind = "upstream_timeout"
	KindGenerationFailed    ErrorKind = "generation_failed"
	KindStorage             ErrorKind = "storage_failure"
	KindConflict            ErrorKind = "conflict"
	KindUnauthorized        ErrorKind = "unauthorized"
)

// ErrRecordNotFound is returned by stores when no document matches
var ErrRecordNotFound = errors.New("record not found")

// Codes carried by Forbidden errors
const (
	CodeFeatureLocked = "FEATURE_LOCKED"
	CodeGoalLimit     = "GOAL_LIMIT"
)

// AppError is a domain error with a kind the transport maps to a status
type AppError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// AsAppError extracts an AppError from err's chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err is an AppError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Kind == kind
}

func notFound(format string, args ...any) *AppError {
	return &AppError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func validationFailure(format string, args ...any) *AppError {
	return &AppError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func forbidden(code, message string) *AppError {
	return &AppError{Kind: KindForbidden, Code: code, Message: message}
}

func storageFailure(message string, err error) *AppError {
	return &AppError{Kind: KindStorage, Message: message, Err: err}
}

// ErrDuplicateKey is returned by stores when a unique index rejects a write
var ErrDuplicateKey = errors.New("duplicate key")
