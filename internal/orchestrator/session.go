package orchestrator

import (
	"time"

	"github.com/GriffinCanCode/livecaption/internal/orchestrator/transcript"
)

// State is the capture state of the session.
type State string

const (
	Idle      State = "idle"
	Capturing State = "capturing"
)

// session is the single mutable session. Only the loop goroutine touches it.
type session struct {
	id        string
	state     State
	source    string
	epoch     uint64
	target    string
	recording bool
	startedAt time.Time

	transcript     *transcript.Buffer
	summaryPending bool
	// summarySegs is how many leading segments the pending summary covers.
	// Clearing the transcript zeroes it.
	summarySegs int
}

func (s *session) resetTranscript() {
	s.transcript.Reset()
	s.summarySegs = 0
}

// Snapshot is a read-only view of the session for status reads.
type Snapshot struct {
	SessionID           string    `json:"session_id"`
	State               State     `json:"state"`
	Source              string    `json:"source,omitempty"`
	Epoch               uint64    `json:"epoch"`
	Target              string    `json:"target,omitempty"`
	RecordingForSummary bool      `json:"recording_for_summary"`
	SummaryPending      bool      `json:"summary_pending"`
	Segments            int       `json:"segments"`
	Chars               int       `json:"chars"`
	StartedAt           time.Time `json:"started_at,omitzero"`
}

func (s *session) snapshot() Snapshot {
	return Snapshot{
		SessionID:           s.id,
		State:               s.state,
		Source:              s.source,
		Epoch:               s.epoch,
		Target:              s.target,
		RecordingForSummary: s.recording,
		SummaryPending:      s.summaryPending,
		Segments:            s.transcript.Len(),
		Chars:               s.transcript.Chars(),
		StartedAt:           s.startedAt,
	}
}
