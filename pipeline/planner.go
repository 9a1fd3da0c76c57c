package pipeline

import (
	"bytes"
	"io"
	"os"

	apperrors "github.com/davidkennedy02/csvtohl7/errors"
)

// plannerBufSize is the read buffer used when counting lines. The planner
// never loads the file as a whole.
const plannerBufSize = 64 * 1024

// DefaultMinLinesPerChunk floors the chunk size when planning.
const DefaultMinLinesPerChunk = 100

// Plan partitions the data lines of file into at most desiredChunks
// contiguous, disjoint line ranges whose sizes differ by at most one.
//
// The chunk count is reduced so every chunk holds at least minLinesPerChunk
// lines, with a minimum of one chunk. An empty or header-only file yields an
// empty plan and no error: the caller treats it as nothing to do.
func Plan(file InputFile, desiredChunks, minLinesPerChunk int) ([]Chunk, error) {
	if desiredChunks < 1 {
		desiredChunks = 1
	}
	if minLinesPerChunk < 1 {
		minLinesPerChunk = DefaultMinLinesPerChunk
	}

	total, err := countLines(file.Path)
	if err != nil {
		return nil, apperrors.InvalidInput(file.Path, err)
	}

	offset := 0
	if file.Format.HasHeader() {
		offset = 1
	}
	dataLines := total - offset
	if dataLines <= 0 {
		return nil, nil
	}

	chunks := desiredChunks
	if dataLines < chunks*minLinesPerChunk {
		chunks = dataLines / minLinesPerChunk
		if chunks < 1 {
			chunks = 1
		}
	}

	base := dataLines / chunks
	remainder := dataLines % chunks

	plan := make([]Chunk, 0, chunks)
	start := offset
	for i := 0; i < chunks; i++ {
		size := base
		if i < remainder {
			size++
		}
		plan = append(plan, Chunk{Index: i, Start: start, End: start + size})
		start += size
	}
	return plan, nil
}

// countLines counts lines by scanning fixed-size buffers for line feeds. A
// trailing line without a terminator still counts.
func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	buf := make([]byte, plannerBufSize)
	lines := 0
	trailing := false
	for {
		n, err := f.Read(buf)
		if n > 0 {
			lines += bytes.Count(buf[:n], []byte{'\n'})
			trailing = buf[n-1] != '\n'
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
	}
	if trailing {
		lines++
	}
	return lines, nil
}
