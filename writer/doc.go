// Package writer persists HL7 artifacts to the output tree.
//
// Each artifact lands in a year-partition subdirectory derived from a field
// inside it (falling back to "unknown"), named by a second-resolution
// timestamp plus a process-wide unique sequence number. Line endings are
// normalized to bare carriage returns before any byte reaches disk.
// Transient "resource temporarily unavailable" conditions are retried with
// exponential backoff; every other I/O failure surfaces immediately.
package writer
