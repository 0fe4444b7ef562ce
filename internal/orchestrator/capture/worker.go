// Package capture runs the capture side of a session: it reads frames from
// an audio source, slices them into fixed-duration chunks and hands every
// chunk off without waiting for its transcription.
package capture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/GriffinCanCode/livecaption/internal/audio"
	"github.com/GriffinCanCode/livecaption/internal/errors"
	"github.com/GriffinCanCode/livecaption/internal/trace"
)

// SubmitFunc receives each chunk. It is called on its own goroutine.
type SubmitFunc func(chunk audio.Chunk)

// StatusFunc receives progress messages for the running capture. It runs on
// the capture goroutine and must not block.
type StatusFunc func(ctx context.Context, epoch uint64, text string)

// EndedFunc is told when the source closes its frame channel on its own.
// The run stays registered until Stop is called.
type EndedFunc func(epoch uint64)

// Option configures a Worker.
type Option func(*Worker)

// WithEnded registers fn for sources that end without a Stop.
func WithEnded(fn EndedFunc) Option {
	return func(w *Worker) { w.ended = fn }
}

// Config sizes the chunking.
type Config struct {
	SampleRate      int
	ChunkSamples    int
	MinFlushSamples int
	StatusInterval  time.Duration
}

// Worker owns at most one running capture.
type Worker struct {
	src    audio.Source
	cfg    Config
	submit SubmitFunc
	status StatusFunc
	ended  EndedFunc

	mu   sync.Mutex
	run  *run
	last Stats
}

type run struct {
	stream  audio.Stream
	chunker *Chunker
	epoch   uint64
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewWorker creates a worker. status may be nil.
func NewWorker(src audio.Source, cfg Config, submit SubmitFunc, status StatusFunc, opts ...Option) *Worker {
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = DefaultStatusInterval
	}
	if cfg.MinFlushSamples <= 0 {
		cfg.MinFlushSamples = cfg.SampleRate
	}
	if status == nil {
		status = func(context.Context, uint64, string) {}
	}
	w := &Worker{src: src, cfg: cfg, submit: submit, status: status}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Start opens the source for ref and begins chunking. Chunks carry epoch.
// Failing to open the source is the only error and leaves the worker idle.
func (w *Worker) Start(ctx context.Context, ref string, epoch uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.run != nil {
		return errors.New(errors.Internal, "capture already running")
	}

	stream, err := w.src.Open(ctx, ref)
	if err != nil {
		return errors.Wrapf(err, errors.SourceUnavailable, "open audio source %q", ref)
	}

	runCtx, cancel := context.WithCancel(ctx)
	r := &run{
		stream:  stream,
		chunker: NewChunker(w.cfg.SampleRate, w.cfg.ChunkSamples, w.cfg.MinFlushSamples, epoch),
		epoch:   epoch,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	w.run = r

	trace.Logger(ctx).Info("capture started", "source", ref, "device", stream.Device(), "epoch", epoch)
	go w.consume(runCtx, r)
	return nil
}

// Stop ends the running capture and releases the source. With forceFlush
// the buffered remainder is submitted as a final chunk when long enough.
// Stopping an idle worker returns the stats of the last capture.
func (w *Worker) Stop(forceFlush bool) Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	r := w.run
	if r == nil {
		return w.last
	}
	w.run = nil

	r.cancel()
	<-r.done
	if err := r.stream.Close(); err != nil {
		trace.Logger(context.Background()).Warn("release audio source", "error", err)
	}

	if forceFlush {
		if c, ok := r.chunker.Flush(); ok {
			go w.submit(c)
		}
	} else {
		r.chunker.Discard()
	}

	w.last = r.chunker.Stats()
	trace.Logger(context.Background()).Info("capture stopped", "epoch", r.epoch,
		"chunks", w.last.Chunks, "ingested", w.last.Ingested, "dropped", w.last.Dropped)
	return w.last
}

// Running reports whether a capture is active.
func (w *Worker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.run != nil
}

func (w *Worker) consume(ctx context.Context, r *run) {
	defer close(r.done)

	ticker := time.NewTicker(w.cfg.StatusInterval)
	defer ticker.Stop()

	frames := r.stream.Frames()
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-frames:
			if !ok {
				trace.Logger(ctx).Warn("audio source ended", "epoch", r.epoch)
				w.status(ctx, r.epoch, "⚠️ Audio source ended")
				if w.ended != nil {
					go w.ended(r.epoch)
				}
				return
			}
			for _, c := range r.chunker.Push(f.Data) {
				w.status(ctx, r.epoch, fmt.Sprintf("🎧 Processing %.1fs audio chunk...", c.Seconds()))
				go w.submit(c)
			}
		case <-ticker.C:
			w.status(ctx, r.epoch, fmt.Sprintf("🎵 Capturing audio... (%.1fs buffered)", r.chunker.BufferedSeconds()))
		}
	}
}
