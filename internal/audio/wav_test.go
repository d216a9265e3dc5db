package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestWAVRoundTrip(t *testing.T) {
	samples := make([]float32, 16000)
	for i := range samples {
		samples[i] = float32(i%100) / 200
	}

	data := EncodeWAV(samples, 16000)
	back, rate, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if rate != 16000 {
		t.Errorf("sample rate = %d, want 16000", rate)
	}
	if len(back) != len(samples) {
		t.Errorf("got %d samples, want %d", len(back), len(samples))
	}
}

func TestEncodeWAVHeader(t *testing.T) {
	data := EncodeWAV(make([]float32, 100), 16000)

	if len(data) != wavHeaderSize+200 {
		t.Fatalf("encoded size = %d, want %d", len(data), wavHeaderSize+200)
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE magic")
	}
	if got := binary.LittleEndian.Uint32(data[24:28]); got != 16000 {
		t.Errorf("header sample rate = %d, want 16000", got)
	}
	if got := binary.LittleEndian.Uint16(data[22:24]); got != 1 {
		t.Errorf("header channels = %d, want 1", got)
	}
	if got := binary.LittleEndian.Uint32(data[40:44]); got != 200 {
		t.Errorf("data chunk size = %d, want 200", got)
	}
}

func TestDecodeWAVSkipsExtraChunks(t *testing.T) {
	// fmt and data separated by a LIST chunk, as ffmpeg output often is.
	var buf bytes.Buffer
	pcm := Float32ToPCM16(make([]float32, 50))

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(0)) // size, unchecked
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint32(16000))
	binary.Write(&buf, binary.LittleEndian, uint32(32000))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))

	buf.WriteString("LIST")
	binary.Write(&buf, binary.LittleEndian, uint32(4))
	buf.WriteString("INFO")

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	samples, rate, err := DecodeWAV(buf.Bytes())
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if rate != 16000 {
		t.Errorf("sample rate = %d, want 16000", rate)
	}
	if len(samples) != 50 {
		t.Errorf("got %d samples, want 50", len(samples))
	}
}

func TestDecodeWAVErrors(t *testing.T) {
	stereo := EncodeWAV(make([]float32, 100), 16000)
	binary.LittleEndian.PutUint16(stereo[22:24], 2)

	eightBit := EncodeWAV(make([]float32, 100), 16000)
	binary.LittleEndian.PutUint16(eightBit[34:36], 8)

	ulaw := EncodeWAV(make([]float32, 100), 16000)
	binary.LittleEndian.PutUint16(ulaw[20:22], 7)

	truncated := EncodeWAV(make([]float32, 100), 16000)
	truncated = truncated[:len(truncated)-10]
	binaryFix := make([]byte, len(truncated))
	copy(binaryFix, truncated)

	tests := []struct {
		name string
		data []byte
	}{
		{"too short", []byte("RIFF")},
		{"wrong magic", bytes.Repeat([]byte{0}, 64)},
		{"stereo", stereo},
		{"8-bit", eightBit},
		{"non-pcm format", ulaw},
		{"truncated data chunk", binaryFix},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := DecodeWAV(tt.data); err == nil {
				t.Error("expected decode error")
			}
		})
	}
}
