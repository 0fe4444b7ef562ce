package capture

import "github.com/GriffinCanCode/livecaption/internal/audio"

// Stats accounts for every sample a chunker has seen:
// Ingested == Submitted + Dropped + buffered.
type Stats struct {
	Ingested  int
	Submitted int
	Dropped   int
	Chunks    int
}

// Chunker slices a sample stream into fixed-size windows. Samples leave in
// the order they arrived; the remainder carries into the next window.
type Chunker struct {
	sampleRate int
	size       int
	minFlush   int
	epoch      uint64
	buf        []float32
	seq        int
	stats      Stats
}

// NewChunker creates a chunker emitting windows of size samples. A flush
// emits the remainder only when it holds at least minFlush samples.
func NewChunker(sampleRate, size, minFlush int, epoch uint64) *Chunker {
	return &Chunker{
		sampleRate: sampleRate,
		size:       size,
		minFlush:   minFlush,
		epoch:      epoch,
		buf:        make([]float32, 0, 2*size),
	}
}

// Push appends samples and returns every full window now available.
func (c *Chunker) Push(samples []float32) []audio.Chunk {
	c.stats.Ingested += len(samples)
	c.buf = append(c.buf, samples...)

	var out []audio.Chunk
	for len(c.buf) >= c.size {
		out = append(out, c.take(c.size, false))
	}
	return out
}

// Flush empties the buffer. The remainder becomes a final chunk when it is
// long enough, otherwise it is dropped.
func (c *Chunker) Flush() (audio.Chunk, bool) {
	n := len(c.buf)
	if n == 0 {
		return audio.Chunk{}, false
	}
	if n < c.minFlush {
		c.Discard()
		return audio.Chunk{}, false
	}
	return c.take(n, true), true
}

// Discard drops whatever is buffered.
func (c *Chunker) Discard() {
	c.stats.Dropped += len(c.buf)
	c.buf = c.buf[:0]
}

// Buffered reports the number of samples waiting for the next window.
func (c *Chunker) Buffered() int { return len(c.buf) }

// BufferedSeconds reports Buffered as seconds of audio.
func (c *Chunker) BufferedSeconds() float64 {
	return float64(len(c.buf)) / float64(c.sampleRate)
}

func (c *Chunker) Stats() Stats { return c.stats }

func (c *Chunker) take(n int, final bool) audio.Chunk {
	samples := make([]float32, n)
	copy(samples, c.buf[:n])
	rest := copy(c.buf, c.buf[n:])
	c.buf = c.buf[:rest]

	c.seq++
	c.stats.Submitted += n
	c.stats.Chunks++
	return audio.Chunk{
		Samples:    samples,
		SampleRate: c.sampleRate,
		Epoch:      c.epoch,
		Seq:        c.seq,
		Final:      final,
	}
}
