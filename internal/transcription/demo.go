package transcription

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/livecaption/internal/audio"
)

// Demo answers every chunk with a placeholder naming its duration. It is the
// backend used when no credentials are configured and makes no network call.
type Demo struct{}

func (Demo) Name() string { return "demo" }

func (Demo) Transcribe(_ context.Context, chunk audio.Chunk) (string, error) {
	return fmt.Sprintf("💬 [Audio captured: %.1fs]\n\nDemo mode active. Configure a transcription API key to enable real captions.", chunk.Seconds()), nil
}
