package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the converter's metric instruments.
type Metrics struct {
	recordsRead      metric.Int64Counter
	recordsSkipped   metric.Int64Counter
	artifactsWritten metric.Int64Counter
	writeRetries     metric.Int64Counter
	fileDuration     metric.Float64Histogram
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	recordsRead, err := meter.Int64Counter("records.read.total",
		metric.WithDescription("Total records read from input files"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating records.read.total counter: %w", err)
	}

	recordsSkipped, err := meter.Int64Counter("records.skipped.total",
		metric.WithDescription("Total records skipped (malformed, excluded or failed)"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating records.skipped.total counter: %w", err)
	}

	artifactsWritten, err := meter.Int64Counter("artifacts.written.total",
		metric.WithDescription("Total HL7 artifacts persisted to disk"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating artifacts.written.total counter: %w", err)
	}

	writeRetries, err := meter.Int64Counter("write.retries.total",
		metric.WithDescription("Total transient write failures that were retried"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating write.retries.total counter: %w", err)
	}

	fileDuration, err := meter.Float64Histogram("file.duration",
		metric.WithDescription("Duration of processing one input file in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating file.duration histogram: %w", err)
	}

	return &Metrics{
		recordsRead:      recordsRead,
		recordsSkipped:   recordsSkipped,
		artifactsWritten: artifactsWritten,
		writeRetries:     writeRetries,
		fileDuration:     fileDuration,
	}, nil
}

// AddRecordsRead counts records read from a file.
func (m *Metrics) AddRecordsRead(ctx context.Context, file string, n int64) {
	if m == nil {
		return
	}
	m.recordsRead.Add(ctx, n, metric.WithAttributes(attribute.String("file", file)))
}

// AddRecordsSkipped counts skipped records by reason code.
func (m *Metrics) AddRecordsSkipped(ctx context.Context, reason string, n int64) {
	if m == nil {
		return
	}
	m.recordsSkipped.Add(ctx, n, metric.WithAttributes(attribute.String("reason", reason)))
}

// AddArtifactsWritten counts persisted artifacts.
func (m *Metrics) AddArtifactsWritten(ctx context.Context, n int64) {
	if m == nil {
		return
	}
	m.artifactsWritten.Add(ctx, n)
}

// AddWriteRetry counts one retried write attempt.
func (m *Metrics) AddWriteRetry(ctx context.Context) {
	if m == nil {
		return
	}
	m.writeRetries.Add(ctx, 1)
}

// RecordFileDuration records how long one input file took end to end.
func (m *Metrics) RecordFileDuration(ctx context.Context, file string, seconds float64) {
	if m == nil {
		return
	}
	m.fileDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("file", file)))
}
