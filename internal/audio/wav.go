package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

const wavHeaderSize = 44

// EncodeWAV wraps float32 samples as a mono 16-bit PCM WAV file at the
// given sample rate. Transcription APIs that require a container format
// receive this instead of raw PCM.
func EncodeWAV(samples []float32, sampleRate int) []byte {
	pcm := Float32ToPCM16(samples)

	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(pcm)))
	writeWAVHeader(buf, len(pcm), sampleRate)
	buf.Write(pcm)
	return buf.Bytes()
}

func writeWAVHeader(w io.Writer, dataSize, sampleRate int) {
	byteRate := sampleRate * 2 // mono, 2 bytes per sample

	// RIFF header
	w.Write([]byte("RIFF"))
	binary.Write(w, binary.LittleEndian, uint32(36+dataSize))
	w.Write([]byte("WAVE"))

	// fmt sub-chunk
	w.Write([]byte("fmt "))
	binary.Write(w, binary.LittleEndian, uint32(16)) // sub-chunk size
	binary.Write(w, binary.LittleEndian, uint16(1))  // PCM format
	binary.Write(w, binary.LittleEndian, uint16(1))  // mono
	binary.Write(w, binary.LittleEndian, uint32(sampleRate))
	binary.Write(w, binary.LittleEndian, uint32(byteRate))
	binary.Write(w, binary.LittleEndian, uint16(2))  // block align
	binary.Write(w, binary.LittleEndian, uint16(16)) // bits per sample

	// data sub-chunk
	w.Write([]byte("data"))
	binary.Write(w, binary.LittleEndian, uint32(dataSize))
}

// DecodeWAV parses a mono 16-bit PCM WAV file and returns its samples as
// normalized float32 along with the sample rate.
func DecodeWAV(data []byte) ([]float32, int, error) {
	if len(data) < wavHeaderSize {
		return nil, 0, fmt.Errorf("wav data too short: %d bytes", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("not a RIFF/WAVE file")
	}

	// Walk sub-chunks; fmt and data may be separated by others (LIST, fact).
	var (
		sampleRate    int
		bitsPerSample int
		channels      int
		pcm           []byte
		sawFmt        bool
	)

	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+size > len(data) {
			return nil, 0, fmt.Errorf("truncated %q chunk: need %d bytes, have %d", id, size, len(data)-body)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, fmt.Errorf("fmt chunk too short: %d bytes", size)
			}
			format := binary.LittleEndian.Uint16(data[body:])
			channels = int(binary.LittleEndian.Uint16(data[body+2:]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4:]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14:]))
			if format != 1 {
				return nil, 0, fmt.Errorf("unsupported wav format %d, want PCM", format)
			}
			sawFmt = true
		case "data":
			pcm = data[body : body+size]
		}

		pos = body + size
		if size%2 == 1 {
			pos++ // chunks are word-aligned
		}
	}

	if !sawFmt {
		return nil, 0, fmt.Errorf("missing fmt chunk")
	}
	if pcm == nil {
		return nil, 0, fmt.Errorf("missing data chunk")
	}
	if channels != 1 {
		return nil, 0, fmt.Errorf("unsupported channel count %d, want mono", channels)
	}
	if bitsPerSample != 16 {
		return nil, 0, fmt.Errorf("unsupported bit depth %d, want 16", bitsPerSample)
	}

	samples, err := PCM16ToFloat32(pcm)
	if err != nil {
		return nil, 0, err
	}
	return samples, sampleRate, nil
}
