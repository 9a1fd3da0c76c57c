package errors

import (
	"errors"
	"fmt"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode
	// Message is a human-readable error message.
	Message string
	// Retryable indicates if the operation can be retried.
	Retryable bool
	// Details contains additional context for the error.
	Details map[string]any
	// Cause is the underlying error that caused this error.
	Cause error
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// Newf creates a new AppError with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// --- Common Error Constructors ---

// MalformedRecord creates an error for a record with too few fields.
func MalformedRecord(got, want int) *AppError {
	return Newf(ErrCodeMalformedRecord, "record has %d fields, need at least %d", got, want)
}

// RecordExcluded creates an error for a record rejected by an exclusion rule.
func RecordExcluded(reason string) *AppError {
	return New(ErrCodeRecordExcluded, reason)
}

// MessageBuildFailed creates an error for a failed HL7 message construction.
func MessageBuildFailed(segment string, cause error) *AppError {
	return Newf(ErrCodeMessageBuildFailed, "could not create %s segment", segment).WithCause(cause)
}

// WriteContended creates a retryable error for transient write contention.
func WriteContended(path string, cause error) *AppError {
	return Newf(ErrCodeWriteContended, "resource temporarily unavailable: %s", path).WithCause(cause)
}

// WriteFailed creates an error for a persistent write failure.
func WriteFailed(path string, cause error) *AppError {
	return Newf(ErrCodeWriteFailed, "write failed: %s", path).WithCause(cause)
}

// EmptyInput creates an error for an input path with nothing to process.
func EmptyInput(path string) *AppError {
	return Newf(ErrCodeEmptyInput, "no input records found under %s", path)
}

// InvalidInput creates an error for an unreadable or unsupported input file.
func InvalidInput(path string, cause error) *AppError {
	return Newf(ErrCodeInvalidInput, "cannot read input file: %s", path).WithCause(cause)
}

// Internal creates an error for an unexpected internal failure.
func Internal(message string, cause error) *AppError {
	return New(ErrCodeInternal, message).WithCause(cause)
}

// --- Inspection helpers ---

// IsRetryable reports whether err (or any error in its chain) is a retryable
// AppError.
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// CodeOf returns the ErrorCode of err, or ErrCodeInternal if err is not an
// AppError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
