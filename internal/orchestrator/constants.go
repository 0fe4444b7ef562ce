package orchestrator

import "time"

const (
	// InboxSize bounds messages waiting for the session loop.
	InboxSize = 64

	DefaultRestartGrace = 500 * time.Millisecond

	// TranscribedPreviewChars bounds the excerpt in "Transcribed" statuses.
	TranscribedPreviewChars = 30
)

// Surface-facing texts.
const (
	msgListening     = "✅ Listening... Play audio to see captions!"
	msgStopped       = "⏹️ Stopped"
	msgNoAudio       = "No audio was captured. Please ensure captions are running and capturing audio."
	msgGenerating    = "Generating summary from transcript..."
	msgCleared       = "Transcript cleared"
	msgSourceFailed  = "❌ Could not open audio source: %s"
	msgTranscribeErr = "❌ %s"
	msgTranscribed   = "✅ Transcribed: \"%s\""
)
