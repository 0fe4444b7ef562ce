package transcription

import (
	"context"

	"github.com/GriffinCanCode/livecaption/internal/audio"
	"github.com/GriffinCanCode/livecaption/internal/grpcclient"
)

// GRPC forwards chunks to an inference server as WAV payloads.
type GRPC struct {
	client *grpcclient.Client
}

// NewGRPC takes ownership of c; Close closes it.
func NewGRPC(c *grpcclient.Client) *GRPC {
	return &GRPC{client: c}
}

func (g *GRPC) Name() string { return "grpc" }

func (g *GRPC) Transcribe(ctx context.Context, chunk audio.Chunk) (string, error) {
	return g.client.Transcribe(ctx, EncodeWAV(chunk.Samples, chunk.SampleRate))
}

// Check reports whether the inference server is serving.
func (g *GRPC) Check(ctx context.Context) error {
	return g.client.Check(ctx)
}

func (g *GRPC) Close() error {
	return g.client.Close()
}
