package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"

	apperrors "github.com/davidkennedy02/csvtohl7/errors"
	"github.com/davidkennedy02/csvtohl7/logger"
	"github.com/davidkennedy02/csvtohl7/observability"
	"github.com/davidkennedy02/csvtohl7/writer"
)

// Transformer turns one raw record into an artifact. A returned error means
// skip-with-reason; it must never carry shared mutable state beyond its own
// logging.
type Transformer interface {
	Transform(rec Record) (writer.Artifact, error)
}

// ArtifactWriter persists a batch of artifacts. Implemented by
// writer.Writer; narrowed to an interface so worker tests can fake it.
type ArtifactWriter interface {
	WriteBatch(ctx context.Context, artifacts []writer.Artifact, batchID string) (int, error)
}

// worker is one long-lived consumer in the pool. It pulls batches until the
// queue closes, transforms records, persists artifacts in bulk and reports
// each batch's outcome.
type worker struct {
	id        int
	queue     *Queue
	transform Transformer
	writer    ArtifactWriter
	results   chan<- BatchResult
	log       *logger.Logger
	metrics   *observability.Metrics
}

func (w *worker) run(ctx context.Context) {
	for {
		batch, ok := w.queue.Pop(ctx)
		if !ok {
			w.log.Debug("worker exiting", logger.Fields("worker", w.id))
			return
		}
		res := w.processBatch(ctx, batch)
		select {
		case w.results <- res:
		case <-ctx.Done():
			return
		}
	}
}

// processBatch transforms every record, then writes the collected artifacts
// in bulk. A record failure is collected as a log entry and skipped; a write
// failure ends the batch but not the worker.
func (w *worker) processBatch(ctx context.Context, batch Batch) BatchResult {
	res := BatchResult{Batch: batch.ID, Records: len(batch.Records)}

	artifacts := make([]writer.Artifact, 0, len(batch.Records))
	for _, rec := range batch.Records {
		// A cancelled file run stops mid-batch: no further transforms, no
		// write.
		if ctx.Err() != nil {
			return res
		}
		artifact, err := w.transform.Transform(rec)
		if err != nil {
			res.Skipped++
			res.Entries = append(res.Entries, skipEntry(rec, err))
			w.metrics.AddRecordsSkipped(ctx, string(apperrors.CodeOf(err)), 1)
			continue
		}
		artifacts = append(artifacts, artifact)
	}

	w.metrics.AddRecordsRead(ctx, batch.ID.File, int64(len(batch.Records)))

	// A batch with zero valid artifacts performs no write and logs nothing
	// beyond the per-record skip reasons.
	if len(artifacts) == 0 || ctx.Err() != nil {
		return res
	}

	written, err := w.writer.WriteBatch(ctx, artifacts, batch.ID.String())
	res.Written = written
	if err != nil {
		res.Err = err
		res.Entries = append(res.Entries, LogEntry{
			Level:   "ERROR",
			Message: fmt.Sprintf("batch %s: persisted %d of %d artifacts: %v", batch.ID, written, len(artifacts), err),
		})
	}
	w.metrics.AddArtifactsWritten(ctx, int64(written))

	return res
}

// skipEntry builds the log entry for a skipped record. Exclusion errors may
// carry their own level; otherwise the level follows the error code.
func skipEntry(rec Record, err error) LogEntry {
	level := "WARNING"
	switch apperrors.CodeOf(err) {
	case apperrors.ErrCodeRecordExcluded:
		level = "INFO"
	case apperrors.ErrCodeMessageBuildFailed:
		level = "CRITICAL"
	}
	var appErr *apperrors.AppError
	if stderrors.As(err, &appErr) {
		if l, found := appErr.Details["level"].(string); found {
			level = l
		}
	}
	return LogEntry{
		Level:   level,
		Message: fmt.Sprintf("skipping record %s:%d: %v", rec.File, rec.Line, err),
	}
}
