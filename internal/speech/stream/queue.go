package stream

import (
	"sync"
	"time"
)

// chunkQueue is the one-producer/one-consumer FIFO between the capture
// callback and the transcription worker. Push never blocks: the capture
// thread must not stall even when inference falls behind, and dropping
// audio is not an option, so the queue grows instead of applying
// backpressure. Session length is bounded by the owning application, which
// bounds the queue in practice.
type chunkQueue struct {
	mu     sync.Mutex
	items  [][]float32
	signal chan struct{}
}

func newChunkQueue() *chunkQueue {
	return &chunkQueue{signal: make(chan struct{}, 1)}
}

// push appends a chunk and wakes the consumer if it is waiting.
func (q *chunkQueue) push(chunk []float32) {
	q.mu.Lock()
	q.items = append(q.items, chunk)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// pop removes and returns the oldest chunk, waiting up to timeout when the
// queue is empty. It returns false on timeout.
func (q *chunkQueue) pop(timeout time.Duration) ([]float32, bool) {
	if chunk, ok := q.tryPop(); ok {
		return chunk, true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-q.signal:
		return q.tryPop()
	case <-timer.C:
		return nil, false
	}
}

func (q *chunkQueue) tryPop() ([]float32, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}
	chunk := q.items[0]
	q.items = q.items[1:]
	return chunk, true
}

func (q *chunkQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
