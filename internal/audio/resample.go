package audio

import (
	"bytes"
	"fmt"

	soxr "github.com/zaf/resample"
)

// resampler converts device-rate mono audio to the capture rate. The soxr
// writer and the buffer it writes into must stay paired.
type resampler struct {
	r   *soxr.Resampler
	out *bytes.Buffer
}

func newResampler(from, to float64) (*resampler, error) {
	out := &bytes.Buffer{}
	r, err := soxr.New(out, from, to, 1, soxr.I16, soxr.HighQ)
	if err != nil {
		return nil, fmt.Errorf("create resampler %.0f->%.0f: %w", from, to, err)
	}
	return &resampler{r: r, out: out}, nil
}

// Process resamples one frame. The result may be shorter or empty while the
// filter fills.
func (r *resampler) Process(in []float32) ([]float32, error) {
	if _, err := r.r.Write(EncodePCM16(in)); err != nil {
		return nil, fmt.Errorf("resample: %w", err)
	}
	out := DecodePCM16(r.out.Bytes())
	r.out.Reset()
	return out, nil
}

func (r *resampler) Close() error {
	return r.r.Close()
}
