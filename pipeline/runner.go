package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/davidkennedy02/csvtohl7/config"
	apperrors "github.com/davidkennedy02/csvtohl7/errors"
	"github.com/davidkennedy02/csvtohl7/logger"
	"github.com/davidkennedy02/csvtohl7/observability"
)

// FileStats summarizes one processed input file.
type FileStats struct {
	File    string
	Batches int
	Records int
	Written int
	Skipped int
	Failed  int // batches with a surfaced write failure
	Chunked bool
}

// Summary accumulates stats across a whole run.
type Summary struct {
	Files   int
	Records int
	Written int
	Skipped int
	Failed  int
}

func (s *Summary) add(fs FileStats) {
	s.Files++
	s.Records += fs.Records
	s.Written += fs.Written
	s.Skipped += fs.Skipped
	s.Failed += fs.Failed
}

// Runner is the orchestrator: it decides the chunked vs single-producer
// strategy per file, wires planner, producers, queue, workers and the result
// sink, and performs shutdown and drain.
type Runner struct {
	cfg       config.Pipeline
	transform Transformer
	writer    ArtifactWriter
	log       *logger.Logger
	metrics   *observability.Metrics
	runID     string
}

// NewRunner creates a Runner. metrics may be nil.
func NewRunner(cfg config.Pipeline, transform Transformer, aw ArtifactWriter, log *logger.Logger, metrics *observability.Metrics) *Runner {
	runID := uuid.NewString()
	return &Runner{
		cfg:       cfg,
		transform: transform,
		writer:    aw,
		log:       log.WithComponent("pipeline").WithFields(logger.Fields(logger.FieldRunID, runID)),
		metrics:   metrics,
		runID:     runID,
	}
}

// RunID returns the run's correlation identifier.
func (r *Runner) RunID() string { return r.runID }

// RunDir processes every recognized file in dir: .csv as CSV, .txt as PAS
// extracts. Files are processed one at a time; parallelism lives inside
// each file's worker pool.
func (r *Runner) RunDir(ctx context.Context, dir string) (Summary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Summary{}, apperrors.InvalidInput(dir, err)
	}

	var summary Summary
	recognized := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var format Format
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".csv":
			format = FormatCSV
		case ".txt":
			format = FormatPAS
		default:
			continue
		}
		recognized++

		info, err := entry.Info()
		if err != nil {
			r.log.Error("cannot stat input file", logger.ErrorFields("stat", err))
			continue
		}
		file := InputFile{
			Path:   filepath.Join(dir, entry.Name()),
			Format: format,
			Size:   info.Size(),
		}

		stats, err := r.RunFile(ctx, file)
		if err != nil {
			// One unreadable file does not end the run.
			r.log.Error("file processing failed",
				logger.Fields(logger.FieldFile, file.Name(), logger.FieldError, err.Error()))
			continue
		}
		summary.add(stats)
	}

	// A directory with recognized files that all failed is reported through
	// the per-file error logs, not as empty input.
	if recognized == 0 {
		return summary, apperrors.EmptyInput(dir)
	}

	r.log.Info("run complete", logger.Fields(
		"files", summary.Files,
		logger.FieldRecords, summary.Records,
		logger.FieldWritten, summary.Written,
		logger.FieldSkipped, summary.Skipped,
		"failed_batches", summary.Failed,
	))
	return summary, nil
}

// RunFile processes one input file through the full pipeline.
func (r *Runner) RunFile(ctx context.Context, file InputFile) (FileStats, error) {
	// Every return cancels the file's context, so workers and producers of
	// an abandoned file exit instead of writing into the next file's run.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	stats := FileStats{File: file.Name()}
	log := r.log.WithFields(logger.Fields(logger.FieldFile, file.Name()))

	chunks, err := r.planFile(file, log)
	if err != nil {
		return stats, err
	}
	if chunks == nil {
		log.Info("input file has no data lines, nothing to do")
		return stats, nil
	}
	stats.Chunked = chunks[0].End >= 0

	workers := r.cfg.EffectiveWorkers()
	queue := NewQueue(r.cfg.QueueCapacity)
	results := make(chan BatchResult, r.cfg.QueueCapacity)

	// Workers.
	var workerWG sync.WaitGroup
	for i := 0; i < workers; i++ {
		w := &worker{
			id:        i,
			queue:     queue,
			transform: r.transform,
			writer:    r.writer,
			results:   results,
			log:       log,
			metrics:   r.metrics,
		}
		workerWG.Add(1)
		go func() {
			defer workerWG.Done()
			w.run(ctx)
		}()
	}

	// Producers, one per chunk.
	var producerWG sync.WaitGroup
	producersDone := make(chan struct{})
	for _, chunk := range chunks {
		producerWG.Add(1)
		go func(c Chunk) {
			defer producerWG.Done()
			r.produce(ctx, file, c, queue, log)
		}(chunk)
	}
	go func() {
		producerWG.Wait()
		// All work is enqueued; the close is the termination signal every
		// worker observes exactly once.
		queue.Close()
		close(producersDone)
	}()

	// Close results only after every worker has exited.
	go func() {
		workerWG.Wait()
		close(results)
	}()

	// Drain loop: relay worker outcomes until the pool exits. After the
	// producers finish, a stalled pool (e.g. a wedged transform) is
	// abandoned once DrainTimeout passes without progress; this is a
	// safety net, not an expected path.
	var drainTimer *time.Timer
	var drainC <-chan time.Time
	defer func() {
		if drainTimer != nil {
			drainTimer.Stop()
		}
	}()

	for {
		select {
		case res, ok := <-results:
			if !ok {
				r.metrics.RecordFileDuration(ctx, file.Name(), time.Since(start).Seconds())
				log.Info("file processed", logger.Fields(
					"batches", stats.Batches,
					logger.FieldRecords, stats.Records,
					logger.FieldWritten, stats.Written,
					logger.FieldSkipped, stats.Skipped,
					logger.FieldDuration, time.Since(start).Milliseconds(),
				))
				return stats, nil
			}
			r.relay(res, log)
			stats.Batches++
			stats.Records += res.Records
			stats.Written += res.Written
			stats.Skipped += res.Skipped
			if res.Err != nil {
				stats.Failed++
			}
			if drainTimer != nil {
				// Stop-and-drain before Reset: a stale expiry left in the
				// channel would abandon a pool that just made progress.
				if !drainTimer.Stop() {
					select {
					case <-drainTimer.C:
					default:
					}
				}
				drainTimer.Reset(r.cfg.DrainTimeout)
			}
		case <-producersDone:
			producersDone = nil
			drainTimer = time.NewTimer(r.cfg.DrainTimeout)
			drainC = drainTimer.C
		case <-drainC:
			log.Critical("worker pool did not drain in time, abandoning file",
				logger.Fields("timeout", r.cfg.DrainTimeout.String()))
			return stats, apperrors.Internal("worker pool stalled during drain", nil)
		}
	}
}

// planFile picks the strategy. Small files get a single full-range chunk;
// files above the threshold are planned into one chunk per worker. A nil
// chunk slice means nothing to do.
func (r *Runner) planFile(file InputFile, log *logger.Logger) ([]Chunk, error) {
	if file.Size <= r.cfg.ThresholdBytes() {
		start := 0
		if file.Format.HasHeader() {
			start = 1
		}
		return []Chunk{{Index: 0, Start: start, End: -1}}, nil
	}

	log.Info("large file, planning chunks", logger.Fields(
		"size", file.Size, "threshold", r.cfg.ThresholdBytes()))
	chunks, err := Plan(file, r.cfg.EffectiveWorkers(), r.cfg.MinLinesPerChunk)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, nil
	}
	log.Info("chunk plan ready", logger.Fields("chunks", len(chunks)))
	return chunks, nil
}

// produce drives one chunk's batcher, pushing batches until the range is
// exhausted. Push blocks when the queue is full, giving backpressure.
func (r *Runner) produce(ctx context.Context, file InputFile, chunk Chunk, queue *Queue, log *logger.Logger) {
	var (
		iter RecordIterator
		err  error
	)
	if chunk.End < 0 {
		iter, err = NewFileIterator(file)
	} else {
		iter, err = NewChunkIterator(file, chunk)
	}
	if err != nil {
		log.Error("cannot open chunk", logger.Fields(
			logger.FieldChunk, chunk.Index, logger.FieldError, err.Error()))
		return
	}

	batcher := NewBatcher(iter, file.Name(), chunk.Index, r.cfg.BatchSize)
	defer batcher.Close()

	for {
		batch, ok, err := batcher.Next(ctx)
		if err != nil {
			log.Error("chunk read failed", logger.Fields(
				logger.FieldChunk, chunk.Index, logger.FieldError, err.Error()))
			return
		}
		if !ok {
			return
		}
		if err := queue.Push(ctx, batch); err != nil {
			return
		}
		log.Debug("batch enqueued", logger.Fields(
			logger.FieldBatch, batch.ID.String(), logger.FieldRecords, len(batch.Records)))
	}
}

// relay forwards a batch outcome to the logging collaborator in arrival
// order.
func (r *Runner) relay(res BatchResult, log *logger.Logger) {
	for _, entry := range res.Entries {
		log.LogAt(entry.Level, entry.Message, logger.Fields(logger.FieldBatch, res.Batch.String()))
	}
	log.Debug("batch complete", logger.Fields(
		logger.FieldBatch, res.Batch.String(),
		logger.FieldRecords, res.Records,
		logger.FieldWritten, res.Written,
		logger.FieldSkipped, res.Skipped,
	))
}
