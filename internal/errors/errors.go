// Package errors provides unified error handling with structured error codes.
// Codes distinguish transient capture failures from caller-input errors and
// batch-level failures, so the pipeline can decide what is fatal.
package errors

import (
	goerrors "errors"
	"fmt"
)

// Code identifies an error category.
type Code string

const (
	CodeUnknown           Code = "UNKNOWN"
	CodeCaptureFailed     Code = "CAPTURE_FAILED"
	CodeImageDecode       Code = "IMAGE_DECODE"
	CodeDimensionMismatch Code = "DIMENSION_MISMATCH"
	CodeInvalidThreshold  Code = "INVALID_THRESHOLD"
	CodeBackupIncomplete  Code = "BACKUP_INCOMPLETE"
	CodePartialDeletion   Code = "PARTIAL_DELETION"
	CodePipelineStep      Code = "PIPELINE_STEP"
	CodeConfigInvalid     Code = "CONFIG_INVALID"
)

// AppError is the base error type with structured error code and metadata.
type AppError struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if len(e.Metadata) > 0 {
		s += fmt.Sprintf(" %v", e.Metadata)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// New creates a new AppError with the given code and message.
func New(code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// Newf creates a new AppError with formatted message.
func Newf(code Code, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError.
func Wrap(err error, code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with formatted message.
func Wrapf(err error, code Code, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// WithMetadata adds metadata to an AppError.
func (e *AppError) WithMetadata(key, value string) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// IsCode checks if an error (or any error in its chain) has a specific code.
func IsCode(err error, code Code) bool {
	var appErr *AppError
	for goerrors.As(err, &appErr) {
		if appErr.Code == code {
			return true
		}
		err = appErr.Cause
		appErr = nil
	}
	return false
}

// CodeOf returns the code of the outermost AppError in the chain.
func CodeOf(err error) Code {
	var appErr *AppError
	if goerrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// IsTransient returns true if the error counts toward a retry/error budget
// rather than failing fast.
func IsTransient(err error) bool {
	return IsCode(err, CodeCaptureFailed)
}
