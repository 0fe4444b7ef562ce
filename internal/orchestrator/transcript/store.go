// Package transcript holds the running session transcript and decides which
// transcription results count as caption content.
package transcript

import (
	"strings"
	"time"
)

// Kind classifies a transcription result.
type Kind int

const (
	// Empty results carry no text and are ignored.
	Empty Kind = iota
	// Content is caption text; it is appended and forwarded.
	Content
	// Status is progress or error chatter; it is never persisted.
	Status
)

func (k Kind) String() string {
	switch k {
	case Content:
		return "content"
	case Status:
		return "status"
	default:
		return "empty"
	}
}

// statusMarkers identify status chatter that reaches the content path.
var statusMarkers = []string{"Buffered:", "Transcribing", "Error", "⚠️", "❌"}

// Classify reports whether text is caption content.
func Classify(text string) Kind {
	if strings.TrimSpace(text) == "" {
		return Empty
	}
	for _, m := range statusMarkers {
		if strings.Contains(text, m) {
			return Status
		}
	}
	return Content
}

// Entry is one appended content segment.
type Entry struct {
	Timestamp time.Time
	Text      string
}

// Snapshot is a point-in-time copy of the transcript.
type Snapshot struct {
	Text     string
	Segments int
}

// Buffer is an ordered list of content segments. It is not safe for
// concurrent use; the session loop owns it.
type Buffer struct {
	entries []Entry
	chars   int
}

// NewBuffer creates an empty transcript.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append adds a content segment in arrival order. Blank text is ignored.
func (b *Buffer) Append(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	b.entries = append(b.entries, Entry{Timestamp: time.Now(), Text: text})
	b.chars += len(text)
	return true
}

// Text joins the segments with single spaces.
func (b *Buffer) Text() string {
	parts := make([]string, len(b.entries))
	for i, e := range b.entries {
		parts[i] = e.Text
	}
	return strings.Join(parts, " ")
}

// Len reports the number of segments.
func (b *Buffer) Len() int { return len(b.entries) }

// Empty reports whether the transcript holds no content.
func (b *Buffer) Empty() bool { return len(b.entries) == 0 }

// Chars reports the total length of all segments, excluding separators.
func (b *Buffer) Chars() int { return b.chars }

// Snapshot copies the current transcript.
func (b *Buffer) Snapshot() Snapshot {
	return Snapshot{Text: b.Text(), Segments: len(b.entries)}
}

// Discard drops the first n segments, keeping anything appended after a
// snapshot of n segments was taken.
func (b *Buffer) Discard(n int) {
	if n >= len(b.entries) {
		b.Reset()
		return
	}
	for _, e := range b.entries[:n] {
		b.chars -= len(e.Text)
	}
	b.entries = append(b.entries[:0], b.entries[n:]...)
}

// Reset clears the transcript.
func (b *Buffer) Reset() {
	b.entries = b.entries[:0]
	b.chars = 0
}

// Entries returns a copy of all segments.
func (b *Buffer) Entries() []Entry {
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}
