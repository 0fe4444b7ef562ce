//go:build !whisper

package transcription

import "github.com/GriffinCanCode/livecaption/internal/errors"

func newWhisper(string) (Backend, error) {
	return nil, errors.New(errors.ConfigInvalid, "whisper backend not compiled in; rebuild with -tags whisper")
}
