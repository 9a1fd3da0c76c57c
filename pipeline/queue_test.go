package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuePushPop(t *testing.T) {
	q := NewQueue(2)
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, Batch{ID: BatchID{Seq: 1}}))
	require.NoError(t, q.Push(ctx, Batch{ID: BatchID{Seq: 2}}))
	assert.Equal(t, 2, q.Len())

	b, ok := q.Pop(ctx)
	require.True(t, ok)
	assert.Equal(t, 1, b.ID.Seq)
}

func TestQueuePushBlocksWhenFull(t *testing.T) {
	q := NewQueue(1)
	require.NoError(t, q.Push(context.Background(), Batch{}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := q.Push(ctx, Batch{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueuePopAfterCloseDrainsThenStops(t *testing.T) {
	q := NewQueue(4)
	ctx := context.Background()
	require.NoError(t, q.Push(ctx, Batch{ID: BatchID{Seq: 1}}))
	q.Close()

	b, ok := q.Pop(ctx)
	require.True(t, ok, "buffered batches survive the close")
	assert.Equal(t, 1, b.ID.Seq)

	_, ok = q.Pop(ctx)
	assert.False(t, ok)
}

func TestQueueCloseIsIdempotent(t *testing.T) {
	q := NewQueue(1)
	q.Close()
	assert.NotPanics(t, q.Close)
}

func TestQueuePopHonorsCancellation(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok := q.Pop(ctx)
	assert.False(t, ok)
}

func TestQueueEveryConsumerObservesClose(t *testing.T) {
	q := NewQueue(8)
	ctx := context.Background()

	const batches = 40
	for i := 0; i < batches; i++ {
		go func(i int) { _ = q.Push(ctx, Batch{ID: BatchID{Seq: i}}) }(i)
	}

	var mu sync.Mutex
	popped := 0
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				_, ok := q.Pop(ctx)
				if !ok {
					return
				}
				mu.Lock()
				popped++
				if popped == batches {
					q.Close()
				}
				mu.Unlock()
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("consumers did not all observe the close")
	}
	assert.Equal(t, batches, popped)
}
