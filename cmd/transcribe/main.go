// Command transcribe converts a 16kHz mono WAV file to text in one shot
// using the high-accuracy batch profile.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/whisperflow/whisperflow/config"
	"github.com/whisperflow/whisperflow/internal/audio"
	"github.com/whisperflow/whisperflow/internal/speech/engine"
	"github.com/whisperflow/whisperflow/internal/speech/registry"

	// Register transcription backends via init().
	_ "github.com/whisperflow/whisperflow/internal/speech/backends/openai"
	_ "github.com/whisperflow/whisperflow/internal/speech/backends/whisper"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to configuration file")
	language := flag.String("language", "", "override configured language")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: transcribe [flags] <file.wav>\n")
		flag.PrintDefaults()
		os.Exit(2)
	}
	wavPath := flag.Arg(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	data, err := os.ReadFile(wavPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read %s: %v\n", wavPath, err)
		os.Exit(1)
	}

	samples, sampleRate, err := audio.DecodeWAV(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to decode %s: %v\n", wavPath, err)
		os.Exit(1)
	}
	if sampleRate != cfg.Audio.SampleRate {
		slog.Info("resampling input",
			slog.Int("from_hz", sampleRate),
			slog.Int("to_hz", cfg.Audio.SampleRate),
		)
		samples = audio.Resample(samples, sampleRate, cfg.Audio.SampleRate)
	}

	transcriber, err := registry.Transcribers.Create(cfg.Backend.Name, cfg.BackendSettings())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create transcription backend: %v\n", err)
		os.Exit(1)
	}
	defer transcriber.Close()

	if loader, ok := transcriber.(engine.Loader); ok {
		slog.Info("loading speech model", slog.String("model_path", cfg.Backend.ModelPath))
		if err := loader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "model load failed: %v\n", err)
			os.Exit(1)
		}
	}

	lang := cfg.Transcription.Language
	if *language != "" {
		lang = *language
	}

	text, err := transcriber.Transcribe(context.Background(), samples, engine.Options{
		Language: lang,
		Prompt:   cfg.Transcription.PromptHint(),
		Profile:  engine.ProfileBatch,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "transcription failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(text)
}
