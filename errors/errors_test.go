package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNewSetsRetryable(t *testing.T) {
	e := New(ErrCodeWriteContended, "busy")
	if !e.Retryable {
		t.Error("expected WRITE_CONTENDED to be retryable")
	}
	e = New(ErrCodeWriteFailed, "gone")
	if e.Retryable {
		t.Error("expected WRITE_FAILED to not be retryable")
	}
}

func TestErrorString(t *testing.T) {
	e := New(ErrCodeEmptyInput, "no data")
	if e.Error() != "EMPTY_INPUT: no data" {
		t.Errorf("unexpected error string: %s", e.Error())
	}

	cause := errors.New("disk full")
	e = New(ErrCodeWriteFailed, "write failed").WithCause(cause)
	want := "WRITE_FAILED: write failed (cause: disk full)"
	if e.Error() != want {
		t.Errorf("got %q, want %q", e.Error(), want)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	e := Internal("boom", cause)
	if !errors.Is(e, cause) {
		t.Error("expected errors.Is to find the cause")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(WriteContended("out/x.hl7", nil)) {
		t.Error("expected write contention to be retryable")
	}
	if IsRetryable(WriteFailed("out/x.hl7", nil)) {
		t.Error("expected persistent write failure to not be retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("expected plain error to not be retryable")
	}
	// Wrapped AppError is still detected.
	wrapped := fmt.Errorf("write batch: %w", WriteContended("out/x.hl7", nil))
	if !IsRetryable(wrapped) {
		t.Error("expected wrapped retryable error to be detected")
	}
}

func TestCodeOf(t *testing.T) {
	if CodeOf(MalformedRecord(3, 25)) != ErrCodeMalformedRecord {
		t.Error("expected MALFORMED_RECORD code")
	}
	if CodeOf(errors.New("plain")) != ErrCodeInternal {
		t.Error("expected INTERNAL for plain error")
	}
}

func TestHasCode(t *testing.T) {
	err := RecordExcluded("missing required surname")
	if !HasCode(err, ErrCodeRecordExcluded) {
		t.Error("expected RECORD_EXCLUDED code")
	}
	if HasCode(err, ErrCodeMalformedRecord) {
		t.Error("did not expect MALFORMED_RECORD code")
	}
}

func TestWithDetail(t *testing.T) {
	e := MalformedRecord(3, 25).WithDetail("line", 17)
	if e.Details["line"] != 17 {
		t.Errorf("expected line detail, got %v", e.Details["line"])
	}
}
