package registry

import "github.com/whisperflow/whisperflow/internal/speech/engine"

// Transcribers is the global transcription backend registry.
var Transcribers = New[engine.Transcriber]()
