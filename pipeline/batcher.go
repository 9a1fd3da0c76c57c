package pipeline

import "context"

// Batcher groups the records of one iterator into batches of at most size
// records, tagged with (file, chunk, sequence-within-chunk). The final
// partial batch is still emitted.
type Batcher struct {
	source RecordIterator
	file   string
	chunk  int
	size   int
	seq    int
	done   bool
}

// NewBatcher wraps a record iterator for one chunk (or whole file, chunk 0).
func NewBatcher(source RecordIterator, file string, chunk, size int) *Batcher {
	if size < 1 {
		size = 1
	}
	return &Batcher{source: source, file: file, chunk: chunk, size: size}
}

// Next returns the next batch. Returns (zero, false, nil) when the source is
// exhausted.
func (b *Batcher) Next(ctx context.Context) (Batch, bool, error) {
	if b.done {
		return Batch{}, false, nil
	}

	records := make([]Record, 0, b.size)
	for len(records) < b.size {
		rec, ok, err := b.source.Next(ctx)
		if err != nil {
			return Batch{}, false, err
		}
		if !ok {
			b.done = true
			break
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return Batch{}, false, nil
	}

	batch := Batch{
		ID:      BatchID{File: b.file, Chunk: b.chunk, Seq: b.seq},
		Records: records,
	}
	b.seq++
	return batch, true, nil
}

// Close releases the underlying iterator.
func (b *Batcher) Close() error {
	return b.source.Close()
}
