// Package resilience provides retry with exponential backoff.
//
// The artifact writer uses it to ride out transient "resource temporarily
// unavailable" conditions on disk writes. Only errors classified as
// retryable are retried; everything else fails fast.
package resilience
