// Package stream implements the streaming transcription pipeline: capture
// frames accumulate into bounded chunks, a single worker transcribes them
// in FIFO order, and the session assembles a best-effort running transcript
// while capture is still in progress.
package stream

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/whisperflow/whisperflow/internal/audio"
	"github.com/whisperflow/whisperflow/internal/speech/engine"
)

// Status is the lifecycle state of a Session.
type Status int

const (
	StatusIdle Status = iota
	StatusStreaming
	StatusDraining
	StatusStopped
)

// String returns the lowercase name of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusStreaming:
		return "streaming"
	case StatusDraining:
		return "draining"
	case StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ErrAlreadyStreaming is returned by Start when the session is not Idle.
// Sessions are single-use: a stopped session cannot be restarted.
var ErrAlreadyStreaming = errors.New("streaming session already started")

// Config holds the tunables of one streaming session.
type Config struct {
	SampleRate    int           // fixed at 16000 for the transcription backends
	ChunkDuration time.Duration // buffered audio per transcription chunk
	MinFinalChunk time.Duration // floor below which trailing audio is discarded
	JoinTimeout   time.Duration // bound on waiting for the worker at Stop
	PollInterval  time.Duration // worker wait granularity on an empty queue
	Language      string
	Prompt        string // vocabulary hint passed to the backend
}

func (c Config) withDefaults() Config {
	if c.SampleRate <= 0 {
		c.SampleRate = 16000
	}
	if c.ChunkDuration <= 0 {
		c.ChunkDuration = 3 * time.Second
	}
	if c.MinFinalChunk <= 0 {
		c.MinFinalChunk = 500 * time.Millisecond
	}
	if c.JoinTimeout <= 0 {
		c.JoinTimeout = 5 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 100 * time.Millisecond
	}
	return c
}

// PartialResultFunc receives the full transcript-so-far after each
// non-empty chunk. It is invoked from the worker goroutine.
type PartialResultFunc func(text string)

// Session coordinates capture, buffering, and transcription for one
// continuous recording. Exactly two flows touch it concurrently while
// streaming: the capture callback (AddAudio) and the single worker
// goroutine. The chunk queue is the only structure shared between them.
type Session struct {
	id     string
	cfg    Config
	engine engine.Transcriber
	logger *slog.Logger

	acc        *Accumulator
	queue      *chunkQueue
	workerDone chan struct{}

	mu        sync.Mutex
	status    Status
	segments  []string
	onPartial PartialResultFunc

	// Performance counters, written only by the worker.
	chunksProcessed int
	inferenceTotal  time.Duration
}

// NewSession creates an Idle session using the given transcription backend.
func NewSession(t engine.Transcriber, cfg Config, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()

	id := xid.New().String()
	return &Session{
		id:     id,
		cfg:    cfg,
		engine: t,
		logger: logger.With(slog.String("session_id", id)),
		acc:    NewAccumulator(cfg.SampleRate, cfg.ChunkDuration),
		queue:  newChunkQueue(),
	}
}

// ID returns the session's identifier, as used in its log records.
func (s *Session) ID() string {
	return s.id
}

// SetPartialResultCallback registers the live transcript callback. Must be
// called before Start.
func (s *Session) SetPartialResultCallback(fn PartialResultFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onPartial = fn
}

// Start transitions Idle -> Streaming and spawns the transcription worker.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusIdle {
		return ErrAlreadyStreaming
	}

	s.acc.Reset()
	s.segments = nil
	s.chunksProcessed = 0
	s.inferenceTotal = 0
	s.workerDone = make(chan struct{})
	s.status = StatusStreaming

	go s.worker()

	s.logger.Debug("streaming started",
		slog.Duration("chunk_duration", s.cfg.ChunkDuration),
		slog.Int("sample_rate", s.cfg.SampleRate),
	)
	return nil
}

// AddAudio hands one capture frame to the session. It is a no-op when the
// session is not Streaming, so late frames after Stop cannot corrupt state.
// It runs on the capture callback thread and never blocks on transcription.
func (s *Session) AddAudio(frame []float32) {
	if s.Status() != StatusStreaming {
		return
	}

	chunk, ok := s.acc.Add(frame)
	if !ok {
		return
	}
	s.queue.push(chunk)
}

// Stop flushes pending audio, drains the worker, and returns the final
// space-joined transcript in chunk submission order. Calling Stop when the
// session is not Streaming returns "".
func (s *Session) Stop() string {
	s.mu.Lock()
	if s.status != StatusStreaming {
		s.mu.Unlock()
		return ""
	}
	s.mu.Unlock()

	// Flush the remainder before signaling drain so the worker cannot
	// observe an empty queue and exit ahead of the final chunk.
	if rest := s.acc.Flush(); len(rest) > 0 {
		dur := audio.Duration(len(rest), s.cfg.SampleRate)
		if dur >= s.cfg.MinFinalChunk {
			s.queue.push(rest)
		} else {
			s.logger.Debug("discarding trailing audio below floor",
				slog.Duration("duration", dur),
				slog.Duration("floor", s.cfg.MinFinalChunk),
			)
		}
	}

	s.mu.Lock()
	s.status = StatusDraining
	done := s.workerDone
	s.mu.Unlock()

	select {
	case <-done:
	case <-time.After(s.cfg.JoinTimeout):
		s.logger.Warn("worker join timed out, returning partial transcript",
			slog.Duration("timeout", s.cfg.JoinTimeout),
			slog.Int("queued_chunks", s.queue.len()),
		)
	}

	s.mu.Lock()
	s.status = StatusStopped
	transcript := strings.Join(s.segments, " ")
	processed := s.chunksProcessed
	total := s.inferenceTotal
	s.mu.Unlock()

	if processed > 0 {
		s.logger.Info("streaming complete",
			slog.Int("chunks", processed),
			slog.Duration("avg_inference", total/time.Duration(processed)),
		)
	}
	return transcript
}

// Status returns the current lifecycle state. Never blocks on the worker.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// IsStreaming reports whether the session currently accepts audio.
func (s *Session) IsStreaming() bool {
	return s.Status() == StatusStreaming
}

// IsReady reports whether the transcription backend is loaded. Gating
// Start on readiness is the owning application's decision.
func (s *Session) IsReady() bool {
	return s.engine.Ready()
}

// Transcript returns the transcript accumulated so far.
func (s *Session) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.segments, " ")
}

// worker is the single consumer of the chunk queue. One worker, FIFO:
// submission order and completion order coincide, so no re-sequencing is
// needed before concatenation.
func (s *Session) worker() {
	defer close(s.workerDone)

	opts := engine.Options{
		Language: s.cfg.Language,
		Prompt:   s.cfg.Prompt,
		Profile:  engine.ProfileStreaming,
	}

	for {
		chunk, ok := s.queue.pop(s.cfg.PollInterval)
		if !ok {
			if s.Status() != StatusStreaming && s.queue.len() == 0 {
				return
			}
			continue
		}

		start := time.Now()
		text, err := s.engine.Transcribe(context.Background(), chunk, opts)
		elapsed := time.Since(start)

		if err != nil {
			// One bad chunk never takes the session down.
			s.logger.Warn("chunk transcription failed, dropping chunk",
				slog.String("error", err.Error()),
				slog.Duration("chunk", audio.Duration(len(chunk), s.cfg.SampleRate)),
			)
			continue
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		s.mu.Lock()
		s.segments = append(s.segments, text)
		s.chunksProcessed++
		s.inferenceTotal += elapsed
		full := strings.Join(s.segments, " ")
		cb := s.onPartial
		s.mu.Unlock()

		if cb != nil {
			cb(full)
		}

		chunkDur := audio.Duration(len(chunk), s.cfg.SampleRate)
		if chunkDur > 0 {
			s.logger.Debug("chunk transcribed",
				slog.Duration("inference", elapsed),
				slog.Float64("rtf", elapsed.Seconds()/chunkDur.Seconds()),
			)
		}
	}
}
