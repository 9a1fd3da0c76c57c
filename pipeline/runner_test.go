package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidkennedy02/csvtohl7/config"
	apperrors "github.com/davidkennedy02/csvtohl7/errors"
	"github.com/davidkennedy02/csvtohl7/logger"
	"github.com/davidkennedy02/csvtohl7/writer"
)

func testPipelineConfig() config.Pipeline {
	return config.Pipeline{
		BatchSize:          1000,
		Workers:            2,
		QueueCapacity:      4,
		LargeFileThreshold: "64MB",
		MinLinesPerChunk:   100,
		DrainTimeout:       10 * time.Second,
	}
}

// writeNumberedPAS writes n records whose first field is the line number.
func writeNumberedPAS(t *testing.T, dir string, n int) InputFile {
	t.Helper()
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%d\x1efield\n", i)
	}
	path := filepath.Join(dir, "extract.txt")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	info, err := os.Stat(path)
	require.NoError(t, err)
	return InputFile{Path: path, Format: FormatPAS, Size: info.Size()}
}

func newTestRunner(cfg config.Pipeline, aw ArtifactWriter) *Runner {
	return NewRunner(cfg, &fakeTransformer{}, aw, logger.NewDefault("test"), nil)
}

func TestRunFileBatchesAndWritesEverything(t *testing.T) {
	file := writeNumberedPAS(t, t.TempDir(), 2500)
	aw := &fakeWriter{}
	runner := newTestRunner(testPipelineConfig(), aw)

	stats, err := runner.RunFile(context.Background(), file)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Batches, "2500 records at batch size 1000")
	assert.Equal(t, 2500, stats.Records)
	assert.Equal(t, 2500, stats.Written)
	assert.Zero(t, stats.Skipped)
	assert.False(t, stats.Chunked, "a small file takes the single-producer path")

	seen := make(map[string]int)
	for _, body := range aw.written {
		seen[body]++
	}
	require.Len(t, seen, 2500)
	for body, count := range seen {
		assert.Equal(t, 1, count, "record %s written exactly once", body)
	}
}

func TestRunFileChunkedCoversEveryRecordOnce(t *testing.T) {
	cfg := testPipelineConfig()
	cfg.LargeFileThreshold = "1B"
	cfg.BatchSize = 100
	file := writeNumberedPAS(t, t.TempDir(), 1003)
	aw := &fakeWriter{}
	runner := newTestRunner(cfg, aw)

	stats, err := runner.RunFile(context.Background(), file)
	require.NoError(t, err)

	assert.True(t, stats.Chunked)
	assert.Equal(t, 1003, stats.Records)
	assert.Equal(t, 1003, stats.Written)

	seen := make(map[string]int)
	for _, body := range aw.written {
		seen[body]++
	}
	require.Len(t, seen, 1003, "chunk ranges must not drop or duplicate records")
	for _, count := range seen {
		require.Equal(t, 1, count)
	}
}

func TestRunFileCountsSkippedRecords(t *testing.T) {
	dir := t.TempDir()
	content := "good\x1ef\nbad\x1ef\ngood2\x1ef\n"
	path := filepath.Join(dir, "extract.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	file := InputFile{Path: path, Format: FormatPAS, Size: int64(len(content))}

	tr := &fakeTransformer{fail: map[string]error{
		"bad": apperrors.RecordExcluded("deceased"),
	}}
	aw := &fakeWriter{}
	runner := NewRunner(testPipelineConfig(), tr, aw, logger.NewDefault("test"), nil)

	stats, err := runner.RunFile(context.Background(), file)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Records)
	assert.Equal(t, 2, stats.Written)
	assert.Equal(t, 1, stats.Skipped)
}

func TestRunFileEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	runner := newTestRunner(testPipelineConfig(), &fakeWriter{})
	stats, err := runner.RunFile(context.Background(), InputFile{Path: path, Format: FormatPAS})
	require.NoError(t, err)
	assert.Zero(t, stats.Records)
	assert.Zero(t, stats.Batches)
}

func TestRunFileAbandonedWorkersStopWriting(t *testing.T) {
	cfg := testPipelineConfig()
	cfg.Workers = 2
	cfg.BatchSize = 1
	cfg.QueueCapacity = 20
	cfg.DrainTimeout = 100 * time.Millisecond
	file := writeNumberedPAS(t, t.TempDir(), 12)

	tr := &stallingTransformer{delay: 300 * time.Millisecond}
	aw := &fakeWriter{}
	runner := NewRunner(cfg, tr, aw, logger.NewDefault("test"), nil)

	before := runtime.NumGoroutine()
	_, err := runner.RunFile(context.Background(), file)
	require.Error(t, err)
	written := aw.count()

	// Abandoning the file cancels its context; workers parked in a slow
	// transform must exit without touching the writer again.
	time.Sleep(600 * time.Millisecond)
	assert.Equal(t, written, aw.count(), "abandoned workers kept writing")
	assert.LessOrEqual(t, runtime.NumGoroutine(), before+2, "abandoned goroutines did not exit")
}

func TestRunFileSlowPoolWithProgressIsNotAbandoned(t *testing.T) {
	cfg := testPipelineConfig()
	cfg.Workers = 1
	cfg.BatchSize = 1
	cfg.QueueCapacity = 20
	cfg.DrainTimeout = 250 * time.Millisecond
	file := writeNumberedPAS(t, t.TempDir(), 5)

	// Each batch takes longer than nothing but well under the timeout; the
	// whole file takes several times the timeout. Progress must keep
	// resetting the drain timer.
	tr := &stallingTransformer{delay: 120 * time.Millisecond}
	aw := &fakeWriter{}
	runner := NewRunner(cfg, tr, aw, logger.NewDefault("test"), nil)

	stats, err := runner.RunFile(context.Background(), file)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Written)
}

func TestRunFileDrainTimeout(t *testing.T) {
	cfg := testPipelineConfig()
	cfg.Workers = 1
	cfg.DrainTimeout = 50 * time.Millisecond
	file := writeNumberedPAS(t, t.TempDir(), 10)

	tr := &stallingTransformer{delay: 2 * time.Second}
	runner := NewRunner(cfg, tr, &fakeWriter{}, logger.NewDefault("test"), nil)

	_, err := runner.RunFile(context.Background(), file)
	require.Error(t, err, "a wedged pool must not hang the run")
}

func TestRunDirProcessesRecognizedFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.csv"), []byte("h1,h2\n1,x\n2,y\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("3\x1ez\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.json"), []byte("{}"), 0o600))

	aw := &fakeWriter{}
	runner := newTestRunner(testPipelineConfig(), aw)
	summary, err := runner.RunDir(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Files, "only .csv and .txt are recognized")
	assert.Equal(t, 3, summary.Records)
	assert.Equal(t, 3, summary.Written)
}

func TestRunDirWithoutRecognizedFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.json"), []byte("{}"), 0o600))

	runner := newTestRunner(testPipelineConfig(), &fakeWriter{})
	summary, err := runner.RunDir(context.Background(), dir)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeEmptyInput))
	assert.Zero(t, summary.Files)
}

func TestRunDirMissingDirectory(t *testing.T) {
	runner := newTestRunner(testPipelineConfig(), &fakeWriter{})
	_, err := runner.RunDir(context.Background(), filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
}

func TestRunIDIsStablePerRunner(t *testing.T) {
	runner := newTestRunner(testPipelineConfig(), &fakeWriter{})
	require.NotEmpty(t, runner.RunID())
	assert.Equal(t, runner.RunID(), runner.RunID())
}

// stallingTransformer wedges the pool to exercise the drain safety net.
type stallingTransformer struct {
	delay time.Duration
}

func (s *stallingTransformer) Transform(rec Record) (writer.Artifact, error) {
	time.Sleep(s.delay)
	return fakeArtifact{partition: "1980", body: rec.Fields[0]}, nil
}
