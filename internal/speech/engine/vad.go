package engine

import "math"

// VADConfig holds voice activity detection parameters.
type VADConfig struct {
	EnergyThreshold float64 // RMS energy threshold on normalized [-1, 1] samples
	SpeechMinDurMs  int     // Minimum duration to confirm speech start
	SilenceMinDurMs int     // Minimum duration to confirm speech end
	SampleRate      int     // Audio sample rate in Hz
	FrameSizeMs     int     // Frame size in milliseconds
}

// DefaultVADConfig returns sensible defaults for 16kHz float32 audio.
func DefaultVADConfig() VADConfig {
	return VADConfig{
		EnergyThreshold: 0.01,
		SpeechMinDurMs:  200,
		SilenceMinDurMs: 700,
		SampleRate:      16000,
		FrameSizeMs:     30,
	}
}

// VAD performs energy-based voice activity detection on float32 PCM.
type VAD struct {
	config        VADConfig
	isSpeaking    bool
	speechFrames  int
	silenceFrames int
	frameSamples  int
}

// NewVAD creates a new voice activity detector.
func NewVAD(cfg VADConfig) *VAD {
	return &VAD{
		config:       cfg,
		frameSamples: cfg.SampleRate * cfg.FrameSizeMs / 1000,
	}
}

// FrameSamples returns the number of samples the detector expects per frame.
func (v *VAD) FrameSamples() int {
	return v.frameSamples
}

// VADEvent indicates a speech boundary.
type VADEvent int

const (
	VADNone VADEvent = iota
	VADSpeechStart
	VADSpeechEnd
)

// ProcessFrame analyzes one frame of float32 PCM and returns a VAD event.
func (v *VAD) ProcessFrame(samples []float32) VADEvent {
	energy := rmsEnergy(samples)
	frameMs := v.config.FrameSizeMs

	if energy >= v.config.EnergyThreshold {
		v.silenceFrames = 0
		v.speechFrames++

		if !v.isSpeaking && v.speechFrames*frameMs >= v.config.SpeechMinDurMs {
			v.isSpeaking = true
			return VADSpeechStart
		}
	} else {
		v.speechFrames = 0
		v.silenceFrames++

		if v.isSpeaking && v.silenceFrames*frameMs >= v.config.SilenceMinDurMs {
			v.isSpeaking = false
			return VADSpeechEnd
		}
	}

	return VADNone
}

// IsSpeaking returns whether speech is currently detected.
func (v *VAD) IsSpeaking() bool {
	return v.isSpeaking
}

// Reset clears the VAD state.
func (v *VAD) Reset() {
	v.isSpeaking = false
	v.speechFrames = 0
	v.silenceFrames = 0
}

// HasVoice reports whether the chunk contains sustained speech. It is used
// by the streaming profile to skip silence-only chunks before inference.
func HasVoice(samples []float32, cfg VADConfig) bool {
	v := NewVAD(cfg)
	frame := v.frameSamples
	if frame <= 0 {
		return len(samples) > 0
	}

	for i := 0; i+frame <= len(samples); i += frame {
		if v.ProcessFrame(samples[i:i+frame]) == VADSpeechStart {
			return true
		}
	}
	return v.isSpeaking
}

// rmsEnergy computes the root-mean-square energy of float32 PCM samples.
func rmsEnergy(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sumSquares float64
	for _, s := range samples {
		sumSquares += float64(s) * float64(s)
	}

	return math.Sqrt(sumSquares / float64(len(samples)))
}
