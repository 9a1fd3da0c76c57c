// Package errors provides structured error handling for the converter.
// It implements error types with machine-readable codes and retryable
// detection, so the artifact writer can distinguish transient write
// contention (retried with backoff) from persistent failures (surfaced
// immediately).
package errors
