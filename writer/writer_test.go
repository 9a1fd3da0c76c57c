package writer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidkennedy02/csvtohl7/config"
	apperrors "github.com/davidkennedy02/csvtohl7/errors"
	"github.com/davidkennedy02/csvtohl7/logger"
)

// testArtifact lets tests control partition field, body and serialization
// failures.
type testArtifact struct {
	partition string
	body      string
	err       error
}

func (a testArtifact) PartitionField() string { return a.partition }
func (a testArtifact) Serialize() (string, error) {
	return a.body, a.err
}

func newTestWriter(t *testing.T) (*Writer, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "out")
	cfg := config.Writer{RetryAttempts: 3, RetryBaseDelay: time.Millisecond}
	w, err := New(root, ".hl7", cfg, nil, logger.NewDefault("test"))
	require.NoError(t, err)
	return w, root
}

func readDirNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestWritePartitionsByYear(t *testing.T) {
	w, root := newTestWriter(t)
	path, err := w.Write(context.Background(), testArtifact{partition: "19800115", body: "MSH|x\r"})
	require.NoError(t, err)

	assert.Equal(t, "1980", filepath.Base(filepath.Dir(path)))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "MSH|x\r", string(data))
	assert.Equal(t, root, filepath.Dir(filepath.Dir(path)))
}

func TestWriteFallsBackToUnknownPartition(t *testing.T) {
	w, root := newTestWriter(t)
	tests := []string{"", "NULL", "19X00101", "19"}
	for _, field := range tests {
		_, err := w.Write(context.Background(), testArtifact{partition: field, body: "x"})
		require.NoError(t, err, "partition %q must not fail the write", field)
	}
	names := readDirNames(t, filepath.Join(root, PartitionUnknown))
	assert.Len(t, names, len(tests))
}

func TestWriteNormalizesLineEndings(t *testing.T) {
	w, _ := newTestWriter(t)
	path, err := w.Write(context.Background(), testArtifact{partition: "1980", body: "a|b\r\nc|d\ne|f\r"})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a|b\rc|d\re|f\r", string(data))
	assert.NotContains(t, string(data), "\n")
}

func TestWriteFileNamesCarrySequence(t *testing.T) {
	w, root := newTestWriter(t)
	for i := 0; i < 3; i++ {
		_, err := w.Write(context.Background(), testArtifact{partition: "1980", body: "x"})
		require.NoError(t, err)
	}

	names := readDirNames(t, filepath.Join(root, "1980"))
	require.Len(t, names, 3, "same-second writes must not collide")
	for _, name := range names {
		assert.True(t, strings.HasSuffix(name, ".hl7"))
		// <timestamp>.<8-digit sequence>.hl7
		parts := strings.Split(name, ".")
		require.Len(t, parts, 3)
		assert.Len(t, parts[1], 8)
	}
}

func TestWriteSerializationFailure(t *testing.T) {
	w, root := newTestWriter(t)
	_, err := w.Write(context.Background(), testArtifact{partition: "1980", err: assert.AnError})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInternal))

	_, statErr := os.Stat(filepath.Join(root, "1980"))
	assert.True(t, os.IsNotExist(statErr), "a failed serialization leaves nothing behind")
}

func TestWriteBatchStopsAtFirstFailure(t *testing.T) {
	w, _ := newTestWriter(t)
	artifacts := []Artifact{
		testArtifact{partition: "1980", body: "one"},
		testArtifact{partition: "1980", err: assert.AnError},
		testArtifact{partition: "1980", body: "three"},
	}

	written, err := w.WriteBatch(context.Background(), artifacts, "in.txt#c0.b0")
	require.Error(t, err)
	assert.Equal(t, 1, written)
	assert.Contains(t, err.Error(), "in.txt#c0.b0")
}

func TestWriteRetriesTransientContention(t *testing.T) {
	w, _ := newTestWriter(t) // 3 attempts, 1ms base delay

	attempts := 0
	realWrite := w.writeFn
	w.writeFn = func(path string, data []byte) error {
		attempts++
		if attempts <= 2 {
			return classifyWriteError(path, &os.PathError{Op: "write", Path: path, Err: syscall.EAGAIN})
		}
		return realWrite(path, data)
	}
	retried := 0
	w.OnRetry = func() { retried++ }

	path, err := w.Write(context.Background(), testArtifact{partition: "1980", body: "MSH|x\r"})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts, "two transient failures then success means exactly three attempts")
	assert.Equal(t, 2, retried)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "MSH|x\r", string(data))
}

func TestWriteExhaustedRetriesLeaveNoFile(t *testing.T) {
	w, root := newTestWriter(t)

	attempts := 0
	var target string
	w.writeFn = func(path string, data []byte) error {
		attempts++
		target = path
		return classifyWriteError(path, &os.PathError{Op: "write", Path: path, Err: syscall.EAGAIN})
	}

	_, err := w.Write(context.Background(), testArtifact{partition: "1980", body: "x"})
	require.Error(t, err)
	assert.Equal(t, 3, attempts, "retries stop at the configured attempt cap")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeWriteContended))

	_, statErr := os.Stat(target)
	assert.True(t, os.IsNotExist(statErr), "exhausted retries must leave no file")
	names := readDirNames(t, filepath.Join(root, "1980"))
	assert.Empty(t, names)
}

func TestWritePersistentFailureDoesNotRetry(t *testing.T) {
	w, _ := newTestWriter(t)

	attempts := 0
	w.writeFn = func(path string, data []byte) error {
		attempts++
		return classifyWriteError(path, &os.PathError{Op: "write", Path: path, Err: syscall.ENOSPC})
	}

	_, err := w.Write(context.Background(), testArtifact{partition: "1980", body: "x"})
	require.Error(t, err)
	assert.Equal(t, 1, attempts, "non-transient errors fail fast")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeWriteFailed))
}

func TestWriteFileRemovesTargetOnCreateFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "absent", "x.hl7")
	err := writeFile(path, []byte("x"))
	require.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSequenceUniqueUnderConcurrency(t *testing.T) {
	seq := NewSequence()
	const goroutines, perG = 8, 200

	var mu sync.Mutex
	seen := make(map[uint64]bool)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				n := seq.Next()
				mu.Lock()
				require.False(t, seen[n], "sequence %d handed out twice", n)
				seen[n] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(goroutines*perG), seq.Current())
}

func TestSharedSequenceAcrossWriters(t *testing.T) {
	seq := NewSequence()
	cfg := config.Writer{RetryAttempts: 1, RetryBaseDelay: time.Millisecond}
	log := logger.NewDefault("test")

	dir := t.TempDir()
	w1, err := New(filepath.Join(dir, "a"), ".hl7", cfg, seq, log)
	require.NoError(t, err)
	w2, err := New(filepath.Join(dir, "b"), ".hl7", cfg, seq, log)
	require.NoError(t, err)

	_, err = w1.Write(context.Background(), testArtifact{partition: "1980", body: "x"})
	require.NoError(t, err)
	_, err = w2.Write(context.Background(), testArtifact{partition: "1980", body: "y"})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), seq.Current())
}

func TestNormalizeLineEndings(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"a\r\nb", "a\rb"},
		{"a\nb", "a\rb"},
		{"a\rb", "a\rb"},
		{"a\r\n\nb\r", "a\r\rb\r"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeLineEndings(tt.in))
	}
}

func TestNormalizeLineEndingsIdempotent(t *testing.T) {
	in := "MSH|a\r\nPID|b\nEVN|c\r"
	once := NormalizeLineEndings(in)
	assert.Equal(t, once, NormalizeLineEndings(once))
}

func TestNewNormalizesExtension(t *testing.T) {
	root := filepath.Join(t.TempDir(), "out")
	w, err := New(root, "hl7", config.Writer{RetryAttempts: 1}, nil, logger.NewDefault("test"))
	require.NoError(t, err)

	path, err := w.Write(context.Background(), testArtifact{partition: "1980", body: "x"})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".hl7"))
}
