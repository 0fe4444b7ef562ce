// Package events defines the messages exchanged between viewing surfaces and
// the captioning core: commands flowing in and events flowing out.
package events

import (
	"time"

	"github.com/rs/xid"

	"github.com/GriffinCanCode/livecaption/internal/errors"
)

// Type names an event sent to surfaces.
type Type string

const (
	CaptureStarted  Type = "CAPTURE_STARTED"
	CaptureStopped  Type = "CAPTURE_STOPPED"
	Transcript      Type = "TRANSCRIPT"
	SummaryProgress Type = "SUMMARY_PROGRESS"
	Summary         Type = "SUMMARY"
	Notification    Type = "NOTIFICATION"
	Status          Type = "STATUS"
)

// Color is a presentation hint on STATUS events.
type Color string

const (
	Green Color = "green"
	Blue  Color = "blue"
	Red   Color = "red"
)

// Event is emitted by the core. Every event carries an id, the session it
// belongs to (empty for notifications) and a timestamp.
type Event struct {
	ID              string    `json:"id"`
	Type            Type      `json:"type"`
	SessionID       string    `json:"session_id,omitempty"`
	Text            string    `json:"text,omitempty"`
	SourceLabel     string    `json:"source_label,omitempty"`
	SourceSurfaceID string    `json:"source_surface_id,omitempty"`
	Color           Color     `json:"color,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// New stamps an event with a fresh id and the current time.
func New(t Type, sessionID, text string) Event {
	return Event{
		ID:        xid.New().String(),
		Type:      t,
		SessionID: sessionID,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// NewStatus builds a STATUS event with a color hint.
func NewStatus(sessionID, text string, c Color) Event {
	e := New(Status, sessionID, text)
	e.Color = c
	return e
}

// NewNotification builds a NOTIFICATION event for an activity signal
// raised by surfaceID.
func NewNotification(surfaceID, label string) Event {
	e := New(Notification, "", "")
	e.SourceSurfaceID = surfaceID
	e.SourceLabel = label
	return e
}

// CommandType names a command sent by a surface.
type CommandType string

const (
	StartCapture    CommandType = "START_CAPTURE"
	StopCapture     CommandType = "STOP_CAPTURE"
	RequestSummary  CommandType = "REQUEST_SUMMARY"
	ClearTranscript CommandType = "CLEAR_TRANSCRIPT"
	AudioActivity   CommandType = "AUDIO_ACTIVITY"
)

// Command is a request from a surface.
type Command struct {
	Type    CommandType `json:"type"`
	Source  string      `json:"source,omitempty"`
	Label   string      `json:"label,omitempty"`
	TraceID string      `json:"trace_id,omitempty"`
}

// Validate rejects unknown command types and activity signals without a label.
func (c Command) Validate() error {
	switch c.Type {
	case StartCapture, StopCapture, RequestSummary, ClearTranscript:
		return nil
	case AudioActivity:
		if c.Label == "" {
			return errors.New(errors.InvalidArgument, "AUDIO_ACTIVITY needs a label")
		}
		return nil
	case "":
		return errors.New(errors.InvalidArgument, "command type is required")
	default:
		return errors.Newf(errors.InvalidArgument, "unknown command %q", c.Type)
	}
}
