package engine

import (
	"context"
	"errors"
)

// Profile selects the parameter set used for a transcription call.
type Profile int

const (
	// ProfileStreaming trades a little accuracy for per-chunk latency:
	// smaller beam, voice-activity filtering, and no inter-chunk context,
	// so a chunk's processing time never grows with session length.
	ProfileStreaming Profile = iota

	// ProfileBatch favours accuracy for one-shot transcription.
	ProfileBatch
)

// Options carries per-call transcription parameters.
type Options struct {
	Language string
	Prompt   string
	Profile  Profile
}

// ErrModelNotLoaded is returned by Transcribe when the backend's model
// is not yet ready to serve inference.
var ErrModelNotLoaded = errors.New("speech model not loaded")

// Transcriber converts mono 16kHz float32 PCM into text.
type Transcriber interface {
	// Transcribe runs one audio chunk to completion. An empty string with
	// a nil error means the audio carried no recognizable speech.
	Transcribe(ctx context.Context, samples []float32, opts Options) (string, error)

	// Ready reports whether the backend can serve Transcribe calls.
	// It never blocks.
	Ready() bool

	Close() error
}

// Loader is implemented by backends that load a heavyweight local model.
// Remote backends that are usable immediately do not implement it.
type Loader interface {
	// Load loads the model, blocking until it is usable.
	Load() error

	// LoadAsync loads the model in the background and invokes onLoaded
	// exactly once with the result. The callback fires on the loader's
	// goroutine; callers needing another execution context must marshal
	// themselves.
	LoadAsync(onLoaded func(error))
}
