// Package openai provides a remote transcription backend using the OpenAI
// Whisper API. There is no local model to load, so the backend is always
// ready; network and API failures surface per chunk and are recovered by
// the streaming worker.
package openai

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/whisperflow/whisperflow/internal/audio"
	"github.com/whisperflow/whisperflow/internal/speech/engine"
	"github.com/whisperflow/whisperflow/internal/speech/registry"
)

const sampleRate = 16000

func init() {
	registry.Transcribers.Register("openai", func(config map[string]string) (engine.Transcriber, error) {
		apiKey := config["openai_api_key"]
		if apiKey == "" {
			apiKey = config["api_key"]
		}
		if apiKey == "" {
			return nil, fmt.Errorf("openai: API key required (set openai_api_key in config)")
		}

		clientCfg := goopenai.DefaultConfig(apiKey)
		if baseURL := config["openai_base_url"]; baseURL != "" {
			clientCfg.BaseURL = baseURL
		}

		model := config["openai_model"]
		if model == "" {
			model = goopenai.Whisper1
		}

		return &Transcriber{
			client: goopenai.NewClientWithConfig(clientCfg),
			model:  model,
			vadCfg: engine.DefaultVADConfig(),
		}, nil
	})
}

// Transcriber implements engine.Transcriber against the OpenAI audio API.
type Transcriber struct {
	client *goopenai.Client
	model  string
	vadCfg engine.VADConfig
}

// Transcribe uploads one chunk as an in-memory WAV file. Silence-only
// chunks are skipped locally in the streaming profile to avoid paying for
// requests that return nothing.
func (t *Transcriber) Transcribe(ctx context.Context, samples []float32, opts engine.Options) (string, error) {
	if len(samples) == 0 {
		return "", nil
	}
	if opts.Profile == engine.ProfileStreaming && !engine.HasVoice(samples, t.vadCfg) {
		return "", nil
	}

	req := goopenai.AudioRequest{
		Model:    t.model,
		FilePath: "chunk.wav",
		Reader:   bytes.NewReader(audio.EncodeWAV(samples, sampleRate)),
		Language: opts.Language,
		Prompt:   opts.Prompt,
	}

	resp, err := t.client.CreateTranscription(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai transcription: %w", err)
	}

	return strings.TrimSpace(resp.Text), nil
}

// Ready always reports true: the remote service needs no local loading.
func (t *Transcriber) Ready() bool {
	return true
}

// Close is a no-op.
func (t *Transcriber) Close() error {
	return nil
}
