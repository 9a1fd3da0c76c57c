package observability

import (
	"context"
	"testing"
)

func TestNewMetricsOnNoopMeter(t *testing.T) {
	m, err := NewMetrics(Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	ctx := context.Background()
	// No-op instruments must accept recordings without side effects.
	m.AddRecordsRead(ctx, "patients.csv", 100)
	m.AddRecordsSkipped(ctx, "MALFORMED_RECORD", 1)
	m.AddArtifactsWritten(ctx, 99)
	m.AddWriteRetry(ctx)
	m.RecordFileDuration(ctx, "patients.csv", 1.5)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.AddRecordsRead(ctx, "x", 1)
	m.AddRecordsSkipped(ctx, "y", 1)
	m.AddArtifactsWritten(ctx, 1)
	m.AddWriteRetry(ctx)
	m.RecordFileDuration(ctx, "x", 0.1)
}

func TestDefaultMeterConfig(t *testing.T) {
	cfg := DefaultMeterConfig("csvtohl7")
	if cfg.ServiceName != "csvtohl7" {
		t.Errorf("got %q", cfg.ServiceName)
	}
	if cfg.Endpoint != "localhost:4318" {
		t.Errorf("got %q", cfg.Endpoint)
	}
}
