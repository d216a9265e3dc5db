// Package whisper provides a local transcription backend on top of the
// whisper.cpp Go bindings. The model loads once, inference runs through a
// single context guarded by a mutex: the cgo layer is not thread safe.
package whisper

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/whisperflow/whisperflow/internal/speech/engine"
	"github.com/whisperflow/whisperflow/internal/speech/registry"
)

const (
	defaultStreamingBeam = 3
	defaultBatchBeam     = 5
)

func init() {
	registry.Transcribers.Register("whisper", func(config map[string]string) (engine.Transcriber, error) {
		modelPath := config["model_path"]
		if modelPath == "" {
			if m := config["model"]; m != "" {
				modelPath = "./models/ggml-" + m + ".bin"
			} else {
				modelPath = "./models/ggml-base.en.bin"
			}
		}

		vadCfg := engine.DefaultVADConfig()
		if s := config["vad_energy_threshold"]; s != "" {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("whisper: invalid vad_energy_threshold %q: %w", s, err)
			}
			vadCfg.EnergyThreshold = v
		}

		return New(modelPath, vadCfg), nil
	})
}

// Transcriber implements engine.Transcriber and engine.Loader using a
// local whisper.cpp model.
type Transcriber struct {
	modelPath string
	vadCfg    engine.VADConfig

	stateMu sync.Mutex
	loading bool
	model   whisper.Model
	wctx    whisper.Context

	// Serializes inference. Concurrent Process calls on the same backend
	// state crash inside the C library.
	inferMu sync.Mutex
}

// New creates an unloaded whisper transcriber for the given model file.
func New(modelPath string, vadCfg engine.VADConfig) *Transcriber {
	return &Transcriber{modelPath: modelPath, vadCfg: vadCfg}
}

// Load loads the model, blocking until it is usable. Loading twice is a
// no-op.
func (t *Transcriber) Load() error {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()

	if t.model != nil {
		return nil
	}

	model, err := whisper.New(t.modelPath)
	if err != nil {
		return fmt.Errorf("load whisper model %s: %w", t.modelPath, err)
	}

	wctx, err := model.NewContext()
	if err != nil {
		model.Close()
		return fmt.Errorf("create whisper context: %w", err)
	}
	wctx.SetTranslate(false)

	t.model = model
	t.wctx = wctx
	return nil
}

// LoadAsync loads the model in the background and reports the result to
// onLoaded. A load already in flight or finished makes this a no-op.
func (t *Transcriber) LoadAsync(onLoaded func(error)) {
	t.stateMu.Lock()
	if t.loading || t.model != nil {
		t.stateMu.Unlock()
		return
	}
	t.loading = true
	t.stateMu.Unlock()

	go func() {
		err := t.Load()

		t.stateMu.Lock()
		t.loading = false
		t.stateMu.Unlock()

		if onLoaded != nil {
			onLoaded(err)
		}
	}()
}

// Ready reports whether the model is loaded.
func (t *Transcriber) Ready() bool {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	return t.model != nil
}

// Transcribe runs one chunk of 16kHz mono float32 PCM through the model.
// The streaming profile skips silence-only chunks and uses a smaller beam
// than batch; each call is independent of previous chunks.
func (t *Transcriber) Transcribe(_ context.Context, samples []float32, opts engine.Options) (string, error) {
	if !t.Ready() {
		return "", engine.ErrModelNotLoaded
	}
	if len(samples) == 0 {
		return "", nil
	}

	if opts.Profile == engine.ProfileStreaming && !engine.HasVoice(samples, t.vadCfg) {
		return "", nil
	}

	lang := opts.Language
	if lang == "" {
		lang = "auto"
	}
	beam := defaultBatchBeam
	if opts.Profile == engine.ProfileStreaming {
		beam = defaultStreamingBeam
	}

	t.inferMu.Lock()
	defer t.inferMu.Unlock()

	if err := t.wctx.SetLanguage(lang); err != nil {
		return "", fmt.Errorf("set language %q: %w", lang, err)
	}
	t.wctx.SetBeamSize(beam)
	if opts.Prompt != "" {
		t.wctx.SetInitialPrompt(opts.Prompt)
	}

	var sb strings.Builder
	onSegment := func(segment whisper.Segment) {
		sb.WriteString(segment.Text)
		sb.WriteString(" ")
	}

	if err := t.wctx.Process(samples, nil, onSegment, nil); err != nil {
		return "", fmt.Errorf("whisper process: %w", err)
	}

	return cleanText(sb.String()), nil
}

// Close releases the model.
func (t *Transcriber) Close() error {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()

	if t.model == nil {
		return nil
	}
	err := t.model.Close()
	t.model = nil
	t.wctx = nil
	return err
}

// cleanText trims whitespace and drops the markers whisper emits for
// non-speech audio.
func cleanText(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	upper := strings.ToUpper(text)
	for _, marker := range []string{"[BLANK_AUDIO]", "(BLANK_AUDIO)", "[SILENCE]", "[MUSIC]"} {
		upper = strings.ReplaceAll(upper, marker, "")
	}
	if strings.TrimSpace(upper) == "" {
		return ""
	}
	if len(text) < 2 {
		return ""
	}
	return text
}
