package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/whisperflow/whisperflow/internal/speech/engine"
)

// fakeTranscriber records every chunk it receives and answers through fn,
// indexed by call order.
type fakeTranscriber struct {
	mu    sync.Mutex
	fn    func(call int, samples []float32) (string, error)
	calls [][]float32
}

func (f *fakeTranscriber) Transcribe(_ context.Context, samples []float32, _ engine.Options) (string, error) {
	f.mu.Lock()
	call := len(f.calls)
	f.calls = append(f.calls, samples)
	fn := f.fn
	f.mu.Unlock()

	if fn == nil {
		return fmt.Sprintf("c%d", call+1), nil
	}
	return fn(call, samples)
}

func (f *fakeTranscriber) Ready() bool  { return true }
func (f *fakeTranscriber) Close() error { return nil }

func (f *fakeTranscriber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeTranscriber) callLens() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	lens := make([]int, len(f.calls))
	for i, c := range f.calls {
		lens[i] = len(c)
	}
	return lens
}

// testConfig keeps the tests fast: 100ms chunks at 16kHz.
func testConfig() Config {
	return Config{
		SampleRate:    16000,
		ChunkDuration: 100 * time.Millisecond,
		MinFinalChunk: 20 * time.Millisecond,
		JoinTimeout:   2 * time.Second,
		PollInterval:  5 * time.Millisecond,
	}
}

const testChunkSamples = 1600 // 100ms at 16kHz

func feedChunks(s *Session, n int) {
	for i := 0; i < n; i++ {
		s.AddAudio(make([]float32, testChunkSamples))
	}
}

func TestSessionStopWithoutAudio(t *testing.T) {
	sess := NewSession(&fakeTranscriber{}, testConfig(), nil)

	if err := sess.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := sess.Stop(); got != "" {
		t.Errorf("transcript = %q, want empty", got)
	}
	if sess.Status() != StatusStopped {
		t.Errorf("status = %v, want %v", sess.Status(), StatusStopped)
	}
}

func TestSessionStopBeforeStart(t *testing.T) {
	sess := NewSession(&fakeTranscriber{}, testConfig(), nil)

	if got := sess.Stop(); got != "" {
		t.Errorf("transcript = %q, want empty", got)
	}
	if sess.Status() != StatusIdle {
		t.Errorf("status = %v, want %v", sess.Status(), StatusIdle)
	}
}

func TestSessionDoubleStop(t *testing.T) {
	ft := &fakeTranscriber{}
	sess := NewSession(ft, testConfig(), nil)

	if err := sess.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	feedChunks(sess, 1)
	first := sess.Stop()
	if first != "c1" {
		t.Errorf("first Stop = %q, want %q", first, "c1")
	}
	if got := sess.Stop(); got != "" {
		t.Errorf("second Stop = %q, want empty", got)
	}
}

func TestSessionNotReusable(t *testing.T) {
	sess := NewSession(&fakeTranscriber{}, testConfig(), nil)

	if err := sess.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := sess.Start(); !errors.Is(err, ErrAlreadyStreaming) {
		t.Errorf("second Start = %v, want ErrAlreadyStreaming", err)
	}

	sess.Stop()
	if err := sess.Start(); !errors.Is(err, ErrAlreadyStreaming) {
		t.Errorf("Start after Stop = %v, want ErrAlreadyStreaming", err)
	}
}

func TestSessionTranscriptOrder(t *testing.T) {
	ft := &fakeTranscriber{
		fn: func(call int, _ []float32) (string, error) {
			// Slow first chunk: completion order must still follow
			// submission order because there is a single worker.
			if call == 0 {
				time.Sleep(50 * time.Millisecond)
			}
			return fmt.Sprintf("c%d", call+1), nil
		},
	}
	sess := NewSession(ft, testConfig(), nil)

	if err := sess.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	feedChunks(sess, 3)

	if got := sess.Stop(); got != "c1 c2 c3" {
		t.Errorf("transcript = %q, want %q", got, "c1 c2 c3")
	}
}

func TestSessionChunkErrorDropped(t *testing.T) {
	ft := &fakeTranscriber{
		fn: func(call int, _ []float32) (string, error) {
			if call == 1 {
				return "", errors.New("inference failed")
			}
			return fmt.Sprintf("c%d", call+1), nil
		},
	}
	sess := NewSession(ft, testConfig(), nil)

	if err := sess.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	feedChunks(sess, 3)

	if got := sess.Stop(); got != "c1 c3" {
		t.Errorf("transcript = %q, want %q", got, "c1 c3")
	}
}

func TestSessionEmptyResultSkipped(t *testing.T) {
	ft := &fakeTranscriber{
		fn: func(call int, _ []float32) (string, error) {
			if call == 1 {
				return "  ", nil
			}
			return fmt.Sprintf("c%d", call+1), nil
		},
	}
	sess := NewSession(ft, testConfig(), nil)

	if err := sess.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	feedChunks(sess, 3)

	// No empty segment, so no double space in the join.
	if got := sess.Stop(); got != "c1 c3" {
		t.Errorf("transcript = %q, want %q", got, "c1 c3")
	}
}

func TestSessionPartialResults(t *testing.T) {
	ft := &fakeTranscriber{}
	sess := NewSession(ft, testConfig(), nil)

	var mu sync.Mutex
	var partials []string
	sess.SetPartialResultCallback(func(text string) {
		mu.Lock()
		partials = append(partials, text)
		mu.Unlock()
	})

	if err := sess.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	feedChunks(sess, 2)
	sess.Stop()

	mu.Lock()
	defer mu.Unlock()
	want := []string{"c1", "c1 c2"}
	if len(partials) != len(want) {
		t.Fatalf("partials = %v, want %v", partials, want)
	}
	for i := range want {
		if partials[i] != want[i] {
			t.Errorf("partials[%d] = %q, want %q", i, partials[i], want[i])
		}
	}
}

func TestSessionTrailingAudioFlushed(t *testing.T) {
	ft := &fakeTranscriber{}
	sess := NewSession(ft, testConfig(), nil)

	if err := sess.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	feedChunks(sess, 1)
	// Half a chunk: above the 20ms floor, flushed at Stop.
	sess.AddAudio(make([]float32, testChunkSamples/2))
	sess.Stop()

	lens := ft.callLens()
	if len(lens) != 2 {
		t.Fatalf("transcribe calls = %d, want 2", len(lens))
	}
	if lens[0] != testChunkSamples {
		t.Errorf("first chunk = %d samples, want %d", lens[0], testChunkSamples)
	}
	if lens[1] != testChunkSamples/2 {
		t.Errorf("trailing chunk = %d samples, want %d", lens[1], testChunkSamples/2)
	}
}

func TestSessionTrailingAudioBelowFloorDiscarded(t *testing.T) {
	ft := &fakeTranscriber{}
	sess := NewSession(ft, testConfig(), nil)

	if err := sess.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// 10ms of audio, under the 20ms floor.
	sess.AddAudio(make([]float32, 160))

	if got := sess.Stop(); got != "" {
		t.Errorf("transcript = %q, want empty", got)
	}
	if n := ft.callCount(); n != 0 {
		t.Errorf("transcribe calls = %d, want 0", n)
	}
}

func TestSessionAddAudioAfterStop(t *testing.T) {
	ft := &fakeTranscriber{}
	sess := NewSession(ft, testConfig(), nil)

	if err := sess.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	sess.Stop()

	feedChunks(sess, 2)
	time.Sleep(20 * time.Millisecond)

	if n := ft.callCount(); n != 0 {
		t.Errorf("transcribe calls after stop = %d, want 0", n)
	}
}

func TestSessionJoinTimeout(t *testing.T) {
	release := make(chan struct{})
	ft := &fakeTranscriber{
		fn: func(call int, _ []float32) (string, error) {
			<-release
			return "late", nil
		},
	}
	cfg := testConfig()
	cfg.JoinTimeout = 50 * time.Millisecond
	sess := NewSession(ft, cfg, nil)

	if err := sess.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	feedChunks(sess, 1)

	start := time.Now()
	got := sess.Stop()
	elapsed := time.Since(start)
	close(release)

	if got != "" {
		t.Errorf("transcript = %q, want empty partial result", got)
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("Stop took %v, want bounded by join timeout", elapsed)
	}
	if sess.Status() != StatusStopped {
		t.Errorf("status = %v, want %v", sess.Status(), StatusStopped)
	}
}

func TestSessionStatusTransitions(t *testing.T) {
	sess := NewSession(&fakeTranscriber{}, testConfig(), nil)

	if sess.Status() != StatusIdle {
		t.Errorf("status = %v, want %v", sess.Status(), StatusIdle)
	}
	if err := sess.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !sess.IsStreaming() {
		t.Error("IsStreaming = false after Start")
	}
	sess.Stop()
	if sess.IsStreaming() {
		t.Error("IsStreaming = true after Stop")
	}
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusIdle, "idle"},
		{StatusStreaming, "streaming"},
		{StatusDraining, "draining"},
		{StatusStopped, "stopped"},
		{Status(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}
