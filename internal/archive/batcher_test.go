package archive

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"
)

type fakeWriter struct {
	mu      sync.Mutex
	batches [][]Segment
	err     error
	delay   time.Duration
}

func (f *fakeWriter) InsertSegments(_ context.Context, segs []Segment) (int, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, segs)
	if f.err != nil {
		return 0, f.err
	}
	return len(segs), nil
}

func (f *fakeWriter) getBatches() [][]Segment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]Segment(nil), f.batches...)
}

func seg(text string) Segment {
	return Segment{SessionID: "s", Text: text}
}

func TestBatcher_FlushOnMaxSize(t *testing.T) {
	w := &fakeWriter{}
	b := NewBatcher(w, 3, time.Hour)

	for _, text := range []string{"a", "b", "c", "d"} {
		b.Add(seg(text))
	}
	if got := b.Pending(); got != 1 {
		t.Errorf("Pending() = %d, want 1", got)
	}

	b.Stop()
	batches := w.getBatches()
	if len(batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(batches))
	}
	if len(batches[0]) != 3 || len(batches[1]) != 1 {
		t.Errorf("batch sizes = %d, %d", len(batches[0]), len(batches[1]))
	}
}

func TestBatcher_FlushAfterDelay(t *testing.T) {
	w := &fakeWriter{}
	b := NewBatcher(w, 100, 20*time.Millisecond)
	defer b.Stop()

	b.Add(seg("a"))
	b.Add(seg("b"))

	deadline := time.Now().Add(2 * time.Second)
	for len(w.getBatches()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("timer flush never happened")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := len(w.getBatches()[0]); got != 2 {
		t.Errorf("batch size = %d, want 2", got)
	}
}

func TestBatcher_BatchesWriteInOrder(t *testing.T) {
	w := &fakeWriter{delay: 5 * time.Millisecond}
	b := NewBatcher(w, 1, time.Hour)

	for _, text := range []string{"1", "2", "3", "4", "5"} {
		b.Add(seg(text))
	}
	b.Stop()

	batches := w.getBatches()
	if len(batches) != 5 {
		t.Fatalf("got %d batches, want 5", len(batches))
	}
	for i, batch := range batches {
		if want := string(rune('1' + i)); batch[0].Text != want {
			t.Errorf("batch %d = %q, want %q", i, batch[0].Text, want)
		}
	}
}

func TestBatcher_FlushThenRunsAfterSegments(t *testing.T) {
	w := &fakeWriter{delay: 5 * time.Millisecond}
	b := NewBatcher(w, 100, time.Hour)

	b.Add(seg("a"))
	var sawBatches int
	b.FlushThen(func(context.Context) { sawBatches = len(w.getBatches()) })
	b.Stop()

	if sawBatches != 1 {
		t.Errorf("fn saw %d batches, want 1", sawBatches)
	}
}

func TestBatcher_ErrorKeepsGoing(t *testing.T) {
	w := &fakeWriter{err: stderrors.New("disk full")}
	b := NewBatcher(w, 1, time.Hour)

	b.Add(seg("a"))
	b.Add(seg("b"))
	b.Stop()

	if got := len(w.getBatches()); got != 2 {
		t.Errorf("writes attempted = %d, want 2", got)
	}
}

func TestBatcher_AddAfterStopDropped(t *testing.T) {
	w := &fakeWriter{}
	b := NewBatcher(w, 100, time.Hour)
	b.Stop()

	b.Add(seg("late"))
	ran := false
	b.FlushThen(func(context.Context) { ran = true })

	if b.Pending() != 0 || ran {
		t.Errorf("Pending() = %d, ran = %v after Stop", b.Pending(), ran)
	}
}

func TestBatcher_Defaults(t *testing.T) {
	b := NewBatcher(&fakeWriter{}, 0, 0)
	if b.maxSize != DefaultBatchSize || b.flushDelay != DefaultFlushDelay {
		t.Errorf("maxSize = %d, flushDelay = %v", b.maxSize, b.flushDelay)
	}
}
