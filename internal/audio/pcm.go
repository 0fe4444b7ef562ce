package audio

import "encoding/binary"

// EncodePCM16 converts float samples to 16-bit little-endian PCM. Samples are
// clamped to [-1, 1]; negatives scale by 32768 and positives by 32767 so
// both extremes are representable.
func EncodePCM16(samples []float32) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		s = max(-1, min(1, s))
		var v int16
		if s < 0 {
			v = int16(s * 0x8000)
		} else {
			v = int16(s * 0x7FFF)
		}
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
	}
	return buf
}

// DecodePCM16 converts 16-bit little-endian PCM back to floats. A trailing
// odd byte is ignored.
func DecodePCM16(b []byte) []float32 {
	out := make([]float32, len(b)/2)
	for i := range out {
		v := int16(binary.LittleEndian.Uint16(b[i*2:]))
		out[i] = float32(v) / 0x8000
	}
	return out
}
