package transcription

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestEncodeWAVHeader(t *testing.T) {
	samples := make([]float32, 16000)
	wav := EncodeWAV(samples, 16000)

	if got, want := len(wav), wavHeaderSize+2*len(samples); got != want {
		t.Fatalf("len = %d, want %d", got, want)
	}

	tests := []struct {
		name   string
		offset int
		want   []byte
	}{
		{"riff tag", 0, []byte("RIFF")},
		{"wave tag", 8, []byte("WAVE")},
		{"fmt tag", 12, []byte("fmt ")},
		{"data tag", 36, []byte("data")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := wav[tt.offset : tt.offset+4]; !bytes.Equal(got, tt.want) {
				t.Errorf("bytes at %d = %q, want %q", tt.offset, got, tt.want)
			}
		})
	}

	le := binary.LittleEndian
	if got := le.Uint32(wav[4:]); got != uint32(36+2*len(samples)) {
		t.Errorf("riff size = %d", got)
	}
	if got := le.Uint16(wav[20:]); got != 1 {
		t.Errorf("format = %d, want PCM", got)
	}
	if got := le.Uint16(wav[22:]); got != 1 {
		t.Errorf("channels = %d", got)
	}
	if got := le.Uint32(wav[24:]); got != 16000 {
		t.Errorf("sample rate = %d", got)
	}
	if got := le.Uint32(wav[28:]); got != 32000 {
		t.Errorf("byte rate = %d", got)
	}
	if got := le.Uint16(wav[34:]); got != 16 {
		t.Errorf("bits per sample = %d", got)
	}
	if got := le.Uint32(wav[40:]); got != uint32(2*len(samples)) {
		t.Errorf("data size = %d", got)
	}
}

func TestEncodeWAVSamples(t *testing.T) {
	wav := EncodeWAV([]float32{1, -1, 0}, 8000)
	data := wav[wavHeaderSize:]

	want := []int16{0x7FFF, -0x8000, 0}
	for i, w := range want {
		if got := int16(binary.LittleEndian.Uint16(data[2*i:])); got != w {
			t.Errorf("sample %d = %d, want %d", i, got, w)
		}
	}
}
