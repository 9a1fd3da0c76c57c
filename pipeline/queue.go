package pipeline

import (
	"context"
	"sync"
)

// Queue is the bounded multi-producer/multi-consumer work queue between
// producers and the worker pool. Its capacity provides backpressure: a
// producer blocks on Push when consumers fall behind.
//
// Termination uses the channel close as the end-of-work signal: the
// orchestrator calls Close exactly once after every producer has joined, and
// each worker observes the close exactly once. No sentinel value needs to be
// re-enqueued.
type Queue struct {
	ch        chan Batch
	closeOnce sync.Once
}

// NewQueue creates a queue with the given capacity (minimum 1).
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{ch: make(chan Batch, capacity)}
}

// Push enqueues a batch, blocking while the queue is full.
func (q *Queue) Push(ctx context.Context, b Batch) error {
	select {
	case q.ch <- b:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pop dequeues the next batch. ok is false once the queue is closed and
// drained, or the context is cancelled.
func (q *Queue) Pop(ctx context.Context) (Batch, bool) {
	select {
	case b, open := <-q.ch:
		if !open {
			return Batch{}, false
		}
		return b, true
	case <-ctx.Done():
		return Batch{}, false
	}
}

// Close signals that no further batches will be enqueued. Idempotent.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.ch) })
}

// Len returns the number of batches currently buffered.
func (q *Queue) Len() int { return len(q.ch) }
