package writer

import "sync"

// Sequence is the process-wide monotonic artifact counter. Values are
// pairwise distinct across concurrent workers and never reset during a run.
// The critical section is limited to the increment-and-read.
type Sequence struct {
	mu sync.Mutex
	n  uint64
}

// NewSequence creates a counter starting at zero; the first Next returns 1.
func NewSequence() *Sequence { return &Sequence{} }

// Next increments the counter and returns the new value.
func (s *Sequence) Next() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return s.n
}

// Current returns the last value handed out.
func (s *Sequence) Current() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}
