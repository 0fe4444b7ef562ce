package transcript

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		text string
		want Kind
	}{
		{"", Empty},
		{"   \n", Empty},
		{"Good morning everyone", Content},
		{"💬 [Audio captured: 1.0s]\n\nDemo mode active. Configure a transcription API key to enable real captions.", Content},
		{"Buffered: 1.5s", Status},
		{"Transcribing chunk 4", Status},
		{"Error: HTTP 401", Status},
		{"⚠️ Audio source ended", Status},
		{"❌ Capture failed", Status},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := Classify(tt.text); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestBufferAppendJoinsWithSpaces(t *testing.T) {
	b := NewBuffer()
	for _, s := range []string{"Hello there.", "  This is a test.  ", "", "Bye."} {
		b.Append(s)
	}

	if got, want := b.Text(), "Hello there. This is a test. Bye."; got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
	if b.Len() != 3 {
		t.Errorf("Len = %d, want 3", b.Len())
	}
	if b.Chars() != len("Hello there.")+len("This is a test.")+len("Bye.") {
		t.Errorf("Chars = %d", b.Chars())
	}
}

func TestBufferDiscardKeepsNewer(t *testing.T) {
	b := NewBuffer()
	b.Append("one")
	b.Append("two")
	snap := b.Snapshot()
	b.Append("three")

	b.Discard(snap.Segments)
	if got := b.Text(); got != "three" {
		t.Errorf("Text() after Discard = %q, want %q", got, "three")
	}
	if b.Chars() != len("three") {
		t.Errorf("Chars = %d", b.Chars())
	}

	b.Discard(10)
	if !b.Empty() || b.Chars() != 0 {
		t.Errorf("buffer not empty: %q", b.Text())
	}
}

func TestBufferReset(t *testing.T) {
	b := NewBuffer()
	b.Append("something")
	b.Reset()
	if !b.Empty() || b.Text() != "" {
		t.Errorf("Reset left %q", b.Text())
	}
}

func TestEntriesIsCopy(t *testing.T) {
	b := NewBuffer()
	b.Append("original")
	e := b.Entries()
	e[0].Text = "changed"
	if b.Text() != "original" {
		t.Error("Entries() exposed internal state")
	}
}
