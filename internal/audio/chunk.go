package audio

import "time"

// Frame is one buffer of mono samples read from a device, already at the
// capture sample rate.
type Frame struct {
	Data      []float32
	Device    string
	Timestamp int64
}

// Chunk is a fixed-duration slice of captured audio submitted as one
// transcription unit. Epoch identifies the capture run that produced it.
type Chunk struct {
	Samples    []float32
	SampleRate int
	Epoch      uint64
	Seq        int
	Final      bool
}

// Duration returns the playback length of the chunk.
func (c Chunk) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}

// Seconds returns Duration in fractional seconds.
func (c Chunk) Seconds() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}
