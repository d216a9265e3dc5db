// Package config loads and validates the whisperflow configuration file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete application configuration.
type Config struct {
	Backend       BackendConfig       `yaml:"backend"`
	Audio         AudioConfig         `yaml:"audio"`
	Streaming     StreamingConfig     `yaml:"streaming"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	VAD           VADConfig           `yaml:"vad"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// BackendConfig selects and parameterizes the transcription backend.
type BackendConfig struct {
	Name          string `yaml:"name"`            // "whisper" or "openai"
	ModelPath     string `yaml:"model_path"`      // local whisper model file
	OpenAIAPIKey  string `yaml:"openai_api_key"`  // overridden by OPENAI_API_KEY
	OpenAIBaseURL string `yaml:"openai_base_url"`
	OpenAIModel   string `yaml:"openai_model"`
}

// AudioConfig contains capture parameters.
type AudioConfig struct {
	SampleRate      int `yaml:"sample_rate"`       // fixed at 16000 for whisper
	FramesPerBuffer int `yaml:"frames_per_buffer"`
}

// StreamingConfig contains the streaming session tunables.
type StreamingConfig struct {
	ChunkDuration      float64 `yaml:"chunk_duration"`       // seconds
	MinFinalChunk      float64 `yaml:"min_final_chunk"`      // seconds
	WorkerJoinTimeout  float64 `yaml:"worker_join_timeout"`  // seconds
	QueuePollInterval  int     `yaml:"queue_poll_interval"`  // milliseconds
	MaxRecordingLength float64 `yaml:"max_recording_length"` // seconds, enforced by the app
}

// TranscriptionConfig contains language and vocabulary settings.
type TranscriptionConfig struct {
	Language         string `yaml:"language"`
	CustomVocabulary string `yaml:"custom_vocabulary"` // comma-separated hint words
}

// VADConfig contains the silence-skip filter settings.
type VADConfig struct {
	EnergyThreshold float64 `yaml:"energy_threshold"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			Name:      "whisper",
			ModelPath: "./models/ggml-base.en.bin",
		},
		Audio: AudioConfig{
			SampleRate:      16000,
			FramesPerBuffer: 1024,
		},
		Streaming: StreamingConfig{
			ChunkDuration:      3.0,
			MinFinalChunk:      0.5,
			WorkerJoinTimeout:  5.0,
			QueuePollInterval:  100,
			MaxRecordingLength: 60.0,
		},
		Transcription: TranscriptionConfig{
			Language: "en",
		},
		VAD: VADConfig{
			EnergyThreshold: 0.01,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the configuration file at path, applies defaults for missing
// sections, environment overrides, and validates the result. A missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// applyEnv applies environment variable overrides for secrets that should
// not live in the config file.
func (c *Config) applyEnv() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.Backend.OpenAIAPIKey = key
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if err := c.Backend.Validate(); err != nil {
		return fmt.Errorf("backend config: %w", err)
	}
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}
	if err := c.Streaming.Validate(); err != nil {
		return fmt.Errorf("streaming config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

// Validate checks the backend selection.
func (b *BackendConfig) Validate() error {
	switch b.Name {
	case "whisper", "openai":
		return nil
	case "":
		return fmt.Errorf("backend name is required")
	default:
		return fmt.Errorf("unknown backend %q", b.Name)
	}
}

// Validate checks the capture parameters.
func (a *AudioConfig) Validate() error {
	if a.SampleRate != 16000 {
		return fmt.Errorf("sample_rate must be 16000 (the transcription models expect 16kHz), got %d", a.SampleRate)
	}
	if a.FramesPerBuffer <= 0 {
		return fmt.Errorf("frames_per_buffer must be positive, got %d", a.FramesPerBuffer)
	}
	return nil
}

// Validate checks the streaming tunables.
func (s *StreamingConfig) Validate() error {
	if s.ChunkDuration <= 0 {
		return fmt.Errorf("chunk_duration must be positive, got %g", s.ChunkDuration)
	}
	if s.MinFinalChunk < 0 {
		return fmt.Errorf("min_final_chunk must not be negative, got %g", s.MinFinalChunk)
	}
	if s.MinFinalChunk > s.ChunkDuration {
		return fmt.Errorf("min_final_chunk (%g) must not exceed chunk_duration (%g)", s.MinFinalChunk, s.ChunkDuration)
	}
	if s.WorkerJoinTimeout <= 0 {
		return fmt.Errorf("worker_join_timeout must be positive, got %g", s.WorkerJoinTimeout)
	}
	if s.QueuePollInterval <= 0 {
		return fmt.Errorf("queue_poll_interval must be positive, got %d", s.QueuePollInterval)
	}
	if s.MaxRecordingLength <= 0 {
		return fmt.Errorf("max_recording_length must be positive, got %g", s.MaxRecordingLength)
	}
	return nil
}

// Validate checks the logging settings.
func (l *LoggingConfig) Validate() error {
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", l.Level)
	}
	switch l.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q", l.Format)
	}
	return nil
}

// GetChunkDuration returns the chunk duration as a time.Duration.
func (s *StreamingConfig) GetChunkDuration() time.Duration {
	return time.Duration(s.ChunkDuration * float64(time.Second))
}

// GetMinFinalChunk returns the trailing-chunk floor as a time.Duration.
func (s *StreamingConfig) GetMinFinalChunk() time.Duration {
	return time.Duration(s.MinFinalChunk * float64(time.Second))
}

// GetWorkerJoinTimeout returns the join bound as a time.Duration.
func (s *StreamingConfig) GetWorkerJoinTimeout() time.Duration {
	return time.Duration(s.WorkerJoinTimeout * float64(time.Second))
}

// GetQueuePollInterval returns the worker poll interval as a time.Duration.
func (s *StreamingConfig) GetQueuePollInterval() time.Duration {
	return time.Duration(s.QueuePollInterval) * time.Millisecond
}

// GetMaxRecordingLength returns the application-enforced recording cap.
func (s *StreamingConfig) GetMaxRecordingLength() time.Duration {
	return time.Duration(s.MaxRecordingLength * float64(time.Second))
}

// PromptHint joins the custom vocabulary into the hint string passed as
// the backend's prompt parameter. Empty when no vocabulary is configured.
func (t *TranscriptionConfig) PromptHint() string {
	if t.CustomVocabulary == "" {
		return ""
	}

	var words []string
	for _, w := range strings.Split(t.CustomVocabulary, ",") {
		if w = strings.TrimSpace(w); w != "" {
			words = append(words, w)
		}
	}
	return strings.Join(words, ", ")
}

// BackendSettings flattens the backend section into the key/value map the
// backend registry factories consume.
func (c *Config) BackendSettings() map[string]string {
	return map[string]string{
		"model_path":           c.Backend.ModelPath,
		"openai_api_key":       c.Backend.OpenAIAPIKey,
		"openai_base_url":      c.Backend.OpenAIBaseURL,
		"openai_model":         c.Backend.OpenAIModel,
		"vad_energy_threshold": strconv.FormatFloat(c.VAD.EnergyThreshold, 'g', -1, 64),
	}
}
