// Package pipeline implements the chunked parallel batch pipeline that
// drives the converter.
//
// An input file is divided into line-safe chunks, each chunk is read by a
// producer goroutine that groups records into fixed-size batches, batches
// flow through a bounded work queue to a fixed pool of workers, and workers
// transform records into HL7 artifacts and persist them. Per-batch outcomes
// fan back through a results channel to the orchestrator, which relays them
// to the logger.
//
// Guarantees:
//
//   - Every well-formed data line reaches exactly one batch, and every batch
//     exactly one worker (at-least-once delivery into the pool).
//   - The bounded queue gives producers backpressure instead of unbounded
//     memory growth.
//   - Termination is a closed queue: after all producers join, the
//     orchestrator closes the queue and every worker observes the close
//     exactly once. This replaces the poison-pill re-enqueue protocol used
//     by runtimes without closable channels.
//   - A malformed record or failed transform is logged and skipped, never
//     fatal. A persistent write failure drops the rest of its batch and is
//     reported; the pool keeps running.
//
// Chunking is line-based: one record per line. Quoted CSV fields containing
// embedded line breaks are not supported by the chunked strategy.
package pipeline
