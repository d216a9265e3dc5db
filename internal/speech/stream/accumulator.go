package stream

import (
	"sync"
	"time"

	"github.com/whisperflow/whisperflow/internal/audio"
)

// Accumulator buffers capture frames until enough audio for one chunk has
// arrived. Add runs on the capture callback thread, so it does nothing
// beyond appending a slice and comparing a counter under a short lock.
type Accumulator struct {
	mu               sync.Mutex
	sampleRate       int
	thresholdSamples int
	frames           [][]float32
	buffered         int
}

// NewAccumulator creates an accumulator emitting chunks of at least the
// given duration.
func NewAccumulator(sampleRate int, chunkDuration time.Duration) *Accumulator {
	return &Accumulator{
		sampleRate:       sampleRate,
		thresholdSamples: int(chunkDuration.Seconds() * float64(sampleRate)),
	}
}

// Add appends a frame to the pending buffer. When the buffered duration
// reaches the chunk threshold it returns the concatenation of all pending
// frames in arrival order and clears the buffer. Ownership of the frame
// passes to the accumulator.
func (a *Accumulator) Add(frame []float32) ([]float32, bool) {
	if len(frame) == 0 {
		return nil, false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.frames = append(a.frames, frame)
	a.buffered += len(frame)

	if a.buffered < a.thresholdSamples {
		return nil, false
	}
	return a.drainLocked(), true
}

// Flush drains whatever is pending as one chunk, which may be shorter than
// the threshold. The caller decides whether a short remainder is worth
// transcribing.
func (a *Accumulator) Flush() []float32 {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.buffered == 0 {
		return nil
	}
	return a.drainLocked()
}

// BufferedDuration returns the play time of the pending, not yet emitted
// audio.
func (a *Accumulator) BufferedDuration() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return audio.Duration(a.buffered, a.sampleRate)
}

// Reset discards all pending audio.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.frames = nil
	a.buffered = 0
}

func (a *Accumulator) drainLocked() []float32 {
	chunk := make([]float32, 0, a.buffered)
	for _, f := range a.frames {
		chunk = append(chunk, f...)
	}
	a.frames = nil
	a.buffered = 0
	return chunk
}
