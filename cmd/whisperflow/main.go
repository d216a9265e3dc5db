// Command whisperflow is a push-to-talk dictation tool: it records from
// the default microphone, streams the audio through the transcription
// pipeline, prints the live partial transcript, and emits the final text
// when recording stops.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/whisperflow/whisperflow/config"
	"github.com/whisperflow/whisperflow/internal/audio"
	"github.com/whisperflow/whisperflow/internal/speech/engine"
	"github.com/whisperflow/whisperflow/internal/speech/registry"
	"github.com/whisperflow/whisperflow/internal/speech/stream"

	// Register transcription backends via init().
	_ "github.com/whisperflow/whisperflow/internal/speech/backends/openai"
	_ "github.com/whisperflow/whisperflow/internal/speech/backends/whisper"
)

const defaultConfigPath = "config.yaml"

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Logging)
	slog.SetDefault(logger)

	// Later sessions pick up config edits (vocabulary, language) without a
	// restart; the backend itself is fixed for the process lifetime.
	var current atomic.Pointer[config.Config]
	current.Store(cfg)
	watcher, err := config.Watch(*configPath, func(c *config.Config) {
		current.Store(c)
	})
	if err != nil {
		logger.Warn("config watching disabled", slog.String("error", err.Error()))
	} else {
		defer watcher.Close()
	}

	transcriber, err := registry.Transcribers.Create(cfg.Backend.Name, cfg.BackendSettings())
	if err != nil {
		logger.Error("failed to create transcription backend", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer transcriber.Close()

	if loader, ok := transcriber.(engine.Loader); ok {
		loaded := make(chan error, 1)
		loader.LoadAsync(func(err error) { loaded <- err })

		logger.Info("loading speech model",
			slog.String("backend", cfg.Backend.Name),
			slog.String("model_path", cfg.Backend.ModelPath),
		)
		if err := <-loaded; err != nil {
			logger.Error("model load failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("speech model ready")
	}

	if err := audio.Init(); err != nil {
		logger.Error("audio init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer audio.Terminate()

	if name, err := audio.InputDeviceName(); err == nil {
		logger.Info("using input device", slog.String("device", name))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// Single stdin pump shared by the idle prompt and the recording loop.
	lines := make(chan struct{})
	go func() {
		defer close(lines)
		reader := bufio.NewReader(os.Stdin)
		for {
			if _, err := reader.ReadString('\n'); err != nil {
				return
			}
			lines <- struct{}{}
		}
	}()

	for {
		fmt.Println("\npress Enter to start recording, Ctrl+C to quit")
		select {
		case <-sigCh:
			return
		case _, ok := <-lines:
			if !ok {
				return
			}
		}

		transcript, quit := record(current.Load(), transcriber, lines, sigCh)
		if transcript == "" {
			fmt.Println("(no speech recognized)")
		} else {
			fmt.Println(transcript)
		}
		if quit {
			return
		}
	}
}

// record runs one streaming session: capture until Enter, SIGINT, or the
// configured maximum recording length. Returns the final transcript and
// whether the user asked to quit.
func record(cfg *config.Config, transcriber engine.Transcriber, lines chan struct{}, sigCh chan os.Signal) (string, bool) {
	sess := stream.NewSession(transcriber, stream.Config{
		SampleRate:    cfg.Audio.SampleRate,
		ChunkDuration: cfg.Streaming.GetChunkDuration(),
		MinFinalChunk: cfg.Streaming.GetMinFinalChunk(),
		JoinTimeout:   cfg.Streaming.GetWorkerJoinTimeout(),
		PollInterval:  cfg.Streaming.GetQueuePollInterval(),
		Language:      cfg.Transcription.Language,
		Prompt:        cfg.Transcription.PromptHint(),
	}, slog.Default())

	sess.SetPartialResultCallback(func(text string) {
		// Worker-thread callback; terminal writes are safe here.
		fmt.Printf("\r\033[K%s", text)
	})

	capture := audio.NewCapture(audio.CaptureConfig{
		SampleRate:      cfg.Audio.SampleRate,
		FramesPerBuffer: cfg.Audio.FramesPerBuffer,
	}, sess.AddAudio)

	if err := capture.Open(); err != nil {
		slog.Error("failed to open capture", slog.String("error", err.Error()))
		return "", false
	}
	defer capture.Close()

	if err := sess.Start(); err != nil {
		slog.Error("failed to start session", slog.String("error", err.Error()))
		return "", false
	}
	if err := capture.Start(); err != nil {
		slog.Error("failed to start capture", slog.String("error", err.Error()))
		sess.Stop()
		return "", false
	}

	fmt.Println("recording... press Enter to stop")

	quit := false
	select {
	case <-lines:
	case <-sigCh:
		quit = true
	case <-time.After(cfg.Streaming.GetMaxRecordingLength()):
		fmt.Println("\nmaximum recording length reached")
	}

	if err := capture.Stop(); err != nil {
		slog.Warn("failed to stop capture", slog.String("error", err.Error()))
	}

	transcript := sess.Stop()
	fmt.Println()
	return transcript, quit
}

func initLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
