package pipeline

import (
	"fmt"
	"path/filepath"
)

// Format identifies the layout of an input file.
type Format string

const (
	// FormatCSV is comma-separated with a header line.
	FormatCSV Format = "csv"
	// FormatPAS is the PAS extract layout: one record per line, fields
	// separated by the ASCII record separator, no header.
	FormatPAS Format = "pas"
)

// FieldSeparatorPAS separates fields within a PAS record.
const FieldSeparatorPAS = '\x1e'

// HasHeader reports whether line 0 of the format is a header, excluded from
// all chunk ranges.
func (f Format) HasHeader() bool { return f == FormatCSV }

// InputFile describes one file to process. Immutable once a run starts.
type InputFile struct {
	Path   string
	Format Format
	Size   int64
}

// Name returns the base file name, used in batch identifiers and logs.
func (f InputFile) Name() string { return filepath.Base(f.Path) }

// Record is one line of input split into fields.
type Record struct {
	File   string
	Line   int
	Fields []string
}

// Chunk is a half-open [Start, End) line range into one input file. Chunks
// of a file partition its data lines with no gaps and no overlaps.
type Chunk struct {
	Index int
	Start int
	End   int
}

// Lines returns the number of lines covered by the chunk.
func (c Chunk) Lines() int { return c.End - c.Start }

// BatchID identifies a batch for logging and correlation. It carries no
// ordering meaning.
type BatchID struct {
	File  string
	Chunk int
	Seq   int
}

func (id BatchID) String() string {
	return fmt.Sprintf("%s#c%d.b%d", id.File, id.Chunk, id.Seq)
}

// Batch is an ordered group of records moved through the queue together.
type Batch struct {
	ID      BatchID
	Records []Record
}
