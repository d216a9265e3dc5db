// Package audio provides PCM helpers, WAV framing, and microphone capture
// for the 16kHz mono float32 audio the transcription backends consume.
package audio

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Duration returns the play time of n samples at the given sample rate.
func Duration(n, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(n) / float64(sampleRate) * float64(time.Second))
}

// PCM16ToFloat32 converts little-endian 16-bit PCM bytes to normalized
// float32 samples in [-1, 1).
func PCM16ToFloat32(data []byte) ([]float32, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("pcm data length must be even for 16-bit audio, got %d", len(data))
	}

	samples := make([]float32, len(data)/2)
	for i := range samples {
		s := int16(binary.LittleEndian.Uint16(data[i*2:]))
		samples[i] = float32(s) / 32768.0
	}
	return samples, nil
}

// Float32ToPCM16 converts normalized float32 samples to little-endian
// 16-bit PCM bytes, clamping out-of-range values.
func Float32ToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}
