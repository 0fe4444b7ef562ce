// Package transcription turns audio chunks into text through a configured
// backend: a demo placeholder, an upload-and-poll HTTP service, synchronous
// HTTP or gRPC services, or a local whisper model.
package transcription

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/GriffinCanCode/livecaption/internal/audio"
	"github.com/GriffinCanCode/livecaption/internal/config"
	"github.com/GriffinCanCode/livecaption/internal/errors"
	"github.com/GriffinCanCode/livecaption/internal/grpcclient"
	"github.com/GriffinCanCode/livecaption/internal/resilience"
	"github.com/GriffinCanCode/livecaption/internal/trace"
)

// Backend transcribes a single chunk. Implementations make at most one
// logical request per call and never queue chunks.
type Backend interface {
	Name() string
	Transcribe(ctx context.Context, chunk audio.Chunk) (string, error)
}

// Dispatcher fronts a Backend with tracing, logging and error
// normalization. It is safe for concurrent use; every chunk is transcribed
// independently so completions may arrive out of order.
type Dispatcher struct {
	backend  Backend
	inflight atomic.Int64
}

// NewDispatcher wraps b.
func NewDispatcher(b Backend) *Dispatcher {
	return &Dispatcher{backend: b}
}

// New builds the dispatcher for the backend cfg resolves to.
func New(cfg config.TranscriptionConfig) (*Dispatcher, error) {
	b, err := NewBackend(cfg)
	if err != nil {
		return nil, err
	}
	return NewDispatcher(b), nil
}

// NewBackend constructs the backend cfg resolves to.
func NewBackend(cfg config.TranscriptionConfig) (Backend, error) {
	client := &http.Client{Timeout: cfg.RequestTimeout}

	switch name := cfg.ResolvedBackend(); name {
	case config.BackendDemo:
		return Demo{}, nil
	case config.BackendAssemblyAI:
		if cfg.AssemblyAIKey == "" {
			return nil, errors.New(errors.ConfigInvalid, "assemblyai backend needs ASSEMBLYAI_API_KEY")
		}
		poll := resilience.PollConfig{Interval: cfg.PollInterval, MaxAttempts: cfg.PollAttempts}
		return NewAssemblyAI(cfg.AssemblyAIBaseURL, cfg.AssemblyAIKey, poll, client), nil
	case config.BackendOpenAI:
		if cfg.OpenAIKey == "" {
			return nil, errors.New(errors.ConfigInvalid, "openai backend needs OPENAI_API_KEY")
		}
		return NewOpenAI(cfg.OpenAIBaseURL, cfg.OpenAIKey, cfg.OpenAIModel, client), nil
	case config.BackendGRPC:
		if cfg.InferenceAddr == "" {
			return nil, errors.New(errors.ConfigInvalid, "grpc backend needs INFERENCE_ADDR")
		}
		c, err := grpcclient.New(cfg.InferenceAddr)
		if err != nil {
			return nil, err
		}
		return NewGRPC(c), nil
	case config.BackendWhisper:
		return newWhisper(cfg.WhisperModel)
	default:
		return nil, errors.Newf(errors.ConfigInvalid, "unknown transcription backend %q", name)
	}
}

// Backend reports the name of the wrapped backend.
func (d *Dispatcher) Backend() string { return d.backend.Name() }

// InFlight reports how many chunks are currently being transcribed.
func (d *Dispatcher) InFlight() int64 { return d.inflight.Load() }

// Transcribe runs one chunk through the backend. Returned errors are always
// AppErrors; the text is trimmed and may be empty.
func (d *Dispatcher) Transcribe(ctx context.Context, chunk audio.Chunk) (string, error) {
	if len(chunk.Samples) == 0 {
		return "", errors.New(errors.InvalidArgument, "empty chunk")
	}

	ctx, span := trace.StartSpan(ctx, "transcribe_chunk")
	defer span.End()
	span.SetAttr("backend", d.backend.Name())
	span.SetAttr("seq", chunk.Seq)
	span.SetAttr("seconds", chunk.Seconds())

	d.inflight.Add(1)
	defer d.inflight.Add(-1)

	log := trace.Logger(ctx)
	text, err := d.backend.Transcribe(ctx, chunk)
	if err != nil {
		if errors.CodeOf(err) == errors.Unknown {
			err = errors.Wrap(err, errors.Remote, "backend failure")
		}
		span.SetAttr("error", err.Error())
		log.Warn("transcription failed", "backend", d.backend.Name(), "seq", chunk.Seq, "error", err)
		return "", err
	}

	text = strings.TrimSpace(text)
	log.Debug("chunk transcribed", "backend", d.backend.Name(), "seq", chunk.Seq, "final", chunk.Final, "chars", len(text))
	return text, nil
}

// Close releases backend resources such as gRPC connections or models.
func (d *Dispatcher) Close() error {
	if c, ok := d.backend.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
