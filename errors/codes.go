package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Record errors (skip the record, never the run)
const (
	// ErrCodeMalformedRecord indicates a record with too few fields.
	ErrCodeMalformedRecord ErrorCode = "MALFORMED_RECORD"
	// ErrCodeRecordExcluded indicates a record rejected by an exclusion rule.
	ErrCodeRecordExcluded ErrorCode = "RECORD_EXCLUDED"
	// ErrCodeMessageBuildFailed indicates HL7 message construction failed.
	ErrCodeMessageBuildFailed ErrorCode = "MESSAGE_BUILD_FAILED"
)

// Write errors
const (
	// ErrCodeWriteContended indicates a transient resource-unavailable
	// condition on write; the writer retries these with backoff.
	ErrCodeWriteContended ErrorCode = "WRITE_CONTENDED"
	// ErrCodeWriteFailed indicates a persistent write failure.
	ErrCodeWriteFailed ErrorCode = "WRITE_FAILED"
)

// Input errors
const (
	// ErrCodeEmptyInput indicates an input path with nothing to process.
	ErrCodeEmptyInput ErrorCode = "EMPTY_INPUT"
	// ErrCodeInvalidInput indicates an unreadable or unsupported input file.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Internal errors
const (
	// ErrCodeInternal indicates an unexpected internal failure.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// retryableCodes maps each code to whether the operation may be retried.
var retryableCodes = map[ErrorCode]bool{
	ErrCodeWriteContended: true,
}

// IsRetryableCode reports whether a code is classified as retryable.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
