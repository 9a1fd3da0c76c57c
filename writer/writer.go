package writer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/davidkennedy02/csvtohl7/config"
	apperrors "github.com/davidkennedy02/csvtohl7/errors"
	"github.com/davidkennedy02/csvtohl7/logger"
	"github.com/davidkennedy02/csvtohl7/resilience"
	"github.com/davidkennedy02/csvtohl7/util"
)

// PartitionUnknown is the fallback partition for artifacts whose partition
// field is absent or does not start with a 4-digit year.
const PartitionUnknown = "unknown"

// timestampLayout gives second resolution; uniqueness comes from the
// sequence number, not the timestamp.
const timestampLayout = "2006-01-02-15-04-05"

// Writer persists artifacts under root, one file each.
type Writer struct {
	root  string
	ext   string
	seq   *Sequence
	retry resilience.RetryConfig
	log   *logger.Logger
	// OnRetry is invoked per retried attempt; the pipeline hooks metrics in.
	OnRetry func()
	// writeFn performs one write attempt. Tests substitute it to exercise
	// the retry wiring; everything else uses writeFile.
	writeFn func(path string, data []byte) error
}

// New creates a Writer and ensures the output root exists. Failure to create
// the root is the one writer error that aborts the run before it starts.
func New(root, ext string, cfg config.Writer, seq *Sequence, log *logger.Logger) (*Writer, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create output root %s: %w", root, err)
	}
	if ext == "" {
		ext = ".hl7"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if seq == nil {
		seq = NewSequence()
	}
	retry := resilience.DefaultRetryConfig()
	if cfg.RetryAttempts > 0 {
		retry.MaxAttempts = cfg.RetryAttempts
	}
	if cfg.RetryBaseDelay > 0 {
		retry.InitialBackoff = cfg.RetryBaseDelay
	}
	return &Writer{
		root:    root,
		ext:     ext,
		seq:     seq,
		retry:   retry,
		log:     log.WithComponent("writer"),
		writeFn: writeFile,
	}, nil
}

// Sequence exposes the writer's counter, shared process-wide.
func (w *Writer) Sequence() *Sequence { return w.seq }

// Write persists one artifact and returns its path. Transient contention is
// retried with backoff; any other failure is returned as-is. A failed
// attempt leaves no partial file behind.
func (w *Writer) Write(ctx context.Context, a Artifact) (string, error) {
	text, err := a.Serialize()
	if err != nil {
		return "", apperrors.Internal("serialize artifact", err)
	}
	data := []byte(NormalizeLineEndings(text))

	partition := w.partitionFor(a)
	dir := filepath.Join(w.root, partition)
	// Workers race to create the same partition directory; MkdirAll is
	// idempotent so the race is harmless.
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", apperrors.WriteFailed(dir, err)
	}

	seq := w.seq.Next()
	name := fmt.Sprintf("%s.%08d%s", time.Now().Format(timestampLayout), seq, w.ext)
	path := filepath.Join(dir, name)

	retry := w.retry
	retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
		if w.OnRetry != nil {
			w.OnRetry()
		}
		w.log.Warn("transient write failure, retrying",
			logger.Fields(logger.FieldAttempt, attempt, logger.FieldError, err.Error(), "backoff", backoff.String()))
	}

	err = resilience.RetryFunc(ctx, retry, func() error {
		return w.writeFn(path, data)
	})
	if err != nil {
		return "", err
	}

	w.log.Debug("artifact persisted",
		logger.Fields(logger.FieldPartition, partition, logger.FieldSequence, seq))
	return path, nil
}

// WriteBatch persists a batch of artifacts. The first failure aborts the
// batch's remaining writes and is returned along with the count persisted so
// far; the caller reports it and moves on to its next batch.
func (w *Writer) WriteBatch(ctx context.Context, artifacts []Artifact, batchID string) (int, error) {
	written := 0
	for _, a := range artifacts {
		if _, err := w.Write(ctx, a); err != nil {
			return written, fmt.Errorf("batch %s: %w", batchID, err)
		}
		written++
	}
	return written, nil
}

// partitionFor derives the year partition from the artifact's partition
// field. Anything without a 4-digit numeric prefix lands in the unknown
// partition with a warning; partitioning never fails a write.
func (w *Writer) partitionFor(a Artifact) string {
	field := strings.TrimSpace(a.PartitionField())
	if len(field) >= 4 && util.IsDigits(field[:4]) {
		return field[:4]
	}
	w.log.Warn("artifact has no parseable year, using fallback partition",
		logger.Fields(logger.FieldPartition, PartitionUnknown, "field", field))
	return PartitionUnknown
}

// writeFile writes data to path in one attempt, classifying the error. On
// any failure the partial file is removed so retries and callers never see a
// corrupt artifact.
func writeFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o640)
	if err != nil {
		return classifyWriteError(path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return classifyWriteError(path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return classifyWriteError(path, err)
	}
	return nil
}

// classifyWriteError maps EAGAIN onto the retryable contention error;
// everything else is persistent and fails fast.
func classifyWriteError(path string, err error) error {
	if errors.Is(err, syscall.EAGAIN) {
		return apperrors.WriteContended(path, err)
	}
	return apperrors.WriteFailed(path, err)
}

// NormalizeLineEndings rewrites every line terminator to a single carriage
// return: CRLF pairs first, then any remaining bare line feeds. HL7 segment
// separators are CR only.
func NormalizeLineEndings(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\r")
	return strings.ReplaceAll(s, "\n", "\r")
}
