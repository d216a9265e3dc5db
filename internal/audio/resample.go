package audio

// Resample converts float32 PCM from one sample rate to another using
// linear interpolation. Good enough for speech: the transcription models
// expect 16kHz, while recordings commonly arrive at 44.1kHz or 48kHz.
func Resample(in []float32, fromRate, toRate int) []float32 {
	if fromRate == toRate || fromRate <= 0 || toRate <= 0 {
		return in
	}
	if len(in) < 2 {
		return nil
	}

	ratio := float64(fromRate) / float64(toRate)
	outSamples := int(float64(len(in)) / ratio)
	out := make([]float32, outSamples)

	for i := range out {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := sampleAt(in, srcIdx)
		s1 := sampleAt(in, srcIdx+1)
		out[i] = s0 + float32(frac)*(s1-s0)
	}

	return out
}

func sampleAt(buf []float32, idx int) float32 {
	if idx >= len(buf) {
		idx = len(buf) - 1
	}
	if idx < 0 {
		return 0
	}
	return buf[idx]
}
