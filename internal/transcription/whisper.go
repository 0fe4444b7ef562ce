//go:build whisper

package transcription

import (
	"context"
	"strings"
	"sync"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/GriffinCanCode/livecaption/internal/audio"
	"github.com/GriffinCanCode/livecaption/internal/errors"
)

// whisperSampleRate is the only rate the model accepts.
const whisperSampleRate = 16000

// Whisper runs chunks through a local whisper.cpp model. The underlying
// context is not thread safe so inference is serialized.
type Whisper struct {
	model whisper.Model
	wctx  whisper.Context
	mu    sync.Mutex
}

func newWhisper(modelPath string) (Backend, error) {
	if modelPath == "" {
		return nil, errors.New(errors.ConfigInvalid, "whisper backend needs WHISPER_MODEL")
	}
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ConfigInvalid, "load whisper model %s", modelPath)
	}
	wctx, err := model.NewContext()
	if err != nil {
		model.Close()
		return nil, errors.Wrap(err, errors.Internal, "create whisper context")
	}
	_ = wctx.SetLanguage("auto")
	wctx.SetTranslate(false)
	return &Whisper{model: model, wctx: wctx}, nil
}

func (w *Whisper) Name() string { return "whisper" }

func (w *Whisper) Transcribe(ctx context.Context, chunk audio.Chunk) (string, error) {
	if chunk.SampleRate != whisperSampleRate {
		return "", errors.Newf(errors.InvalidArgument, "whisper needs %d Hz audio, got %d", whisperSampleRate, chunk.SampleRate)
	}
	if err := ctx.Err(); err != nil {
		return "", errors.Wrap(err, errors.Cancelled, "whisper request cancelled")
	}

	var sb strings.Builder
	onSegment := func(s whisper.Segment) { sb.WriteString(s.Text) }

	w.mu.Lock()
	err := w.wctx.Process(chunk.Samples, nil, onSegment, nil)
	w.mu.Unlock()
	if err != nil {
		return "", errors.Wrap(err, errors.Remote, "whisper process")
	}

	text := strings.TrimSpace(sb.String())
	if text == "[BLANK_AUDIO]" || text == "BLANK_AUDIO" {
		return "", nil
	}
	return text, nil
}

func (w *Whisper) Close() error {
	return w.model.Close()
}
