package transcription

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/GriffinCanCode/livecaption/internal/audio"
)

const wavHeaderSize = 44

// EncodeWAV wraps samples in a RIFF/WAVE container: mono, 16-bit PCM at
// sampleRate. The RIFF size is 36 + 2N and the data size 2N for N samples.
func EncodeWAV(samples []float32, sampleRate int) []byte {
	pcm := audio.EncodePCM16(samples)
	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(pcm)))
	_ = writeWAVHeader(buf, len(pcm), sampleRate)
	buf.Write(pcm)
	return buf.Bytes()
}

func writeWAVHeader(w io.Writer, dataSize, sampleRate int) error {
	const (
		channels      = 1
		bitsPerSample = 16
		blockAlign    = channels * bitsPerSample / 8
	)
	fields := []any{
		[4]byte{'R', 'I', 'F', 'F'},
		uint32(36 + dataSize),
		[4]byte{'W', 'A', 'V', 'E'},
		[4]byte{'f', 'm', 't', ' '},
		uint32(16), // fmt chunk size
		uint16(1),  // PCM
		uint16(channels),
		uint32(sampleRate),
		uint32(sampleRate * blockAlign),
		uint16(blockAlign),
		uint16(bitsPerSample),
		[4]byte{'d', 'a', 't', 'a'},
		uint32(dataSize),
	}
	for _, f := range fields {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	return nil
}
