package pipeline

import (
	"bufio"
	"context"
	"encoding/csv"
	"os"
	"strings"

	apperrors "github.com/davidkennedy02/csvtohl7/errors"
)

// maxLineBytes caps a single input line. Patient extracts run well under
// this; anything larger is a corrupt file.
const maxLineBytes = 1024 * 1024

// RecordIterator provides pull-based sequential access to the records of an
// input file or line range. Returns (zero, false, nil) when exhausted.
type RecordIterator interface {
	Next(ctx context.Context) (Record, bool, error)
	Close() error
}

// fileIterator reads records line by line within [start, end). end < 0
// means unbounded. Blank lines are skipped but still occupy a line number,
// so chunk ranges stay aligned with the planner's count.
type fileIterator struct {
	file    InputFile
	f       *os.File
	scanner *bufio.Scanner
	line    int
	start   int
	end     int
}

// NewFileIterator iterates every data record of a file (header excluded).
func NewFileIterator(file InputFile) (RecordIterator, error) {
	start := 0
	if file.Format.HasHeader() {
		start = 1
	}
	return newRangeIterator(file, start, -1)
}

// NewChunkIterator iterates the records of one planned chunk. Reaching
// end-of-file before the chunk's end is not an error; the chunk simply
// yields fewer records.
func NewChunkIterator(file InputFile, chunk Chunk) (RecordIterator, error) {
	return newRangeIterator(file, chunk.Start, chunk.End)
}

func newRangeIterator(file InputFile, start, end int) (RecordIterator, error) {
	f, err := os.Open(file.Path)
	if err != nil {
		return nil, apperrors.InvalidInput(file.Path, err)
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	return &fileIterator{
		file:    file,
		f:       f,
		scanner: scanner,
		start:   start,
		end:     end,
	}, nil
}

func (it *fileIterator) Next(ctx context.Context) (Record, bool, error) {
	for {
		select {
		case <-ctx.Done():
			return Record{}, false, ctx.Err()
		default:
		}

		if it.end >= 0 && it.line >= it.end {
			return Record{}, false, nil
		}
		if !it.scanner.Scan() {
			if err := it.scanner.Err(); err != nil {
				return Record{}, false, apperrors.InvalidInput(it.file.Path, err)
			}
			return Record{}, false, nil
		}

		lineNo := it.line
		it.line++
		if lineNo < it.start {
			continue
		}

		text := strings.TrimRight(it.scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}

		return Record{
			File:   it.file.Name(),
			Line:   lineNo,
			Fields: parseFields(text, it.file.Format),
		}, true, nil
	}
}

func (it *fileIterator) Close() error {
	return it.f.Close()
}

// parseFields splits one line into fields. CSV lines go through the csv
// parser; a line it rejects falls back to a plain comma split so the record
// can still be counted and skipped downstream on field count.
func parseFields(line string, format Format) []string {
	switch format {
	case FormatPAS:
		return strings.Split(line, string(rune(FieldSeparatorPAS)))
	default:
		r := csv.NewReader(strings.NewReader(line))
		r.FieldsPerRecord = -1
		r.LazyQuotes = true
		fields, err := r.Read()
		if err != nil {
			return strings.Split(line, ",")
		}
		return fields
	}
}
