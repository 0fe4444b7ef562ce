package capture

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/GriffinCanCode/livecaption/internal/audio"
	"github.com/GriffinCanCode/livecaption/internal/errors"
)

type fakeStream struct {
	frames    chan audio.Frame
	closeOnce sync.Once
	closed    chan struct{}
}

func newFakeStream() *fakeStream {
	return &fakeStream{frames: make(chan audio.Frame), closed: make(chan struct{})}
}

func (s *fakeStream) Frames() <-chan audio.Frame { return s.frames }
func (s *fakeStream) Device() string             { return "Fake Mic" }

func (s *fakeStream) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

func (s *fakeStream) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

type fakeSource struct {
	stream *fakeStream
	err    error
	refs   []string
}

func (f *fakeSource) Open(_ context.Context, ref string) (audio.Stream, error) {
	f.refs = append(f.refs, ref)
	if f.err != nil {
		return nil, f.err
	}
	return f.stream, nil
}

type collector struct {
	mu       sync.Mutex
	chunks   []audio.Chunk
	statuses []string
	got      chan struct{}
}

func newCollector() *collector {
	return &collector{got: make(chan struct{}, 64)}
}

func (c *collector) submit(ch audio.Chunk) {
	c.mu.Lock()
	c.chunks = append(c.chunks, ch)
	c.mu.Unlock()
	c.got <- struct{}{}
}

func (c *collector) status(_ context.Context, _ uint64, text string) {
	c.mu.Lock()
	c.statuses = append(c.statuses, text)
	c.mu.Unlock()
}

func (c *collector) wait(t *testing.T, n int) []audio.Chunk {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-c.got:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for chunk %d of %d", i+1, n)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]audio.Chunk(nil), c.chunks...)
}

// testConfig uses 2 s windows so a 1 s remainder can be flushed.
func testConfig() Config {
	return Config{SampleRate: 100, ChunkSamples: 200, MinFlushSamples: 100, StatusInterval: time.Hour}
}

func feed(s *fakeStream, n, frameSize int) {
	for n > 0 {
		size := min(frameSize, n)
		s.frames <- audio.Frame{Data: samples(size, 0.5), Device: "Fake Mic"}
		n -= size
	}
}

func TestWorkerChunksAndFlushes(t *testing.T) {
	tests := []struct {
		name       string
		fed        int
		forceFlush bool
		wantLens   []int
		wantDrop   int
	}{
		{"remainder flushed", 350, true, []int{200, 150}, 0},
		{"short remainder dropped", 250, true, []int{200}, 50},
		{"no flush discards", 350, false, []int{200}, 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stream := newFakeStream()
			col := newCollector()
			w := NewWorker(&fakeSource{stream: stream}, testConfig(), col.submit, col.status)

			if err := w.Start(context.Background(), "mic", 3); err != nil {
				t.Fatalf("Start() error: %v", err)
			}
			feed(stream, tt.fed, 64)
			st := w.Stop(tt.forceFlush)

			chunks := col.wait(t, len(tt.wantLens))
			total := 0
			for _, c := range chunks {
				total += len(c.Samples)
				if c.Epoch != 3 {
					t.Errorf("chunk epoch = %d, want 3", c.Epoch)
				}
			}
			wantTotal := 0
			for _, n := range tt.wantLens {
				wantTotal += n
			}
			if total != wantTotal {
				t.Errorf("submitted %d samples, want %d", total, wantTotal)
			}
			if st.Dropped != tt.wantDrop {
				t.Errorf("Dropped = %d, want %d", st.Dropped, tt.wantDrop)
			}
			if st.Ingested != st.Submitted+st.Dropped {
				t.Errorf("stats not lossless: %+v", st)
			}
			if !stream.isClosed() {
				t.Error("source not released")
			}
		})
	}
}

func TestWorkerFinalChunkMarked(t *testing.T) {
	stream := newFakeStream()
	col := newCollector()
	w := NewWorker(&fakeSource{stream: stream}, testConfig(), col.submit, nil)

	if err := w.Start(context.Background(), "default", 1); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	feed(stream, 120, 120)
	w.Stop(true)

	chunks := col.wait(t, 1)
	if !chunks[0].Final || len(chunks[0].Samples) != 120 {
		t.Errorf("chunk = final:%v len:%d", chunks[0].Final, len(chunks[0].Samples))
	}
}

func TestWorkerStartFailure(t *testing.T) {
	col := newCollector()
	w := NewWorker(&fakeSource{err: stderrors.New("no input devices found")}, testConfig(), col.submit, nil)

	err := w.Start(context.Background(), "system", 1)
	if !errors.IsCode(err, errors.SourceUnavailable) {
		t.Fatalf("error = %v, want SOURCE_UNAVAILABLE", err)
	}
	if w.Running() {
		t.Error("worker running after failed start")
	}
	if st := w.Stop(true); st != (Stats{}) {
		t.Errorf("Stop() after failed start = %+v", st)
	}
}

func TestWorkerStopIdempotent(t *testing.T) {
	stream := newFakeStream()
	col := newCollector()
	w := NewWorker(&fakeSource{stream: stream}, testConfig(), col.submit, nil)

	if err := w.Start(context.Background(), "mic", 1); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	feed(stream, 200, 100)
	first := w.Stop(true)
	second := w.Stop(true)
	if first != second {
		t.Errorf("second Stop() = %+v, want %+v", second, first)
	}
	if w.Running() {
		t.Error("still running after Stop")
	}
	col.wait(t, 1)
}

func TestWorkerRejectsDoubleStart(t *testing.T) {
	stream := newFakeStream()
	w := NewWorker(&fakeSource{stream: stream}, testConfig(), func(audio.Chunk) {}, nil)

	if err := w.Start(context.Background(), "mic", 1); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer w.Stop(false)
	if err := w.Start(context.Background(), "mic", 2); err == nil {
		t.Error("second Start() succeeded")
	}
}

func TestWorkerStatusMessages(t *testing.T) {
	stream := newFakeStream()
	col := newCollector()
	cfg := testConfig()
	cfg.StatusInterval = 5 * time.Millisecond
	w := NewWorker(&fakeSource{stream: stream}, cfg, col.submit, col.status)

	if err := w.Start(context.Background(), "mic", 1); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	feed(stream, 250, 50)
	time.Sleep(30 * time.Millisecond)
	w.Stop(false)
	col.wait(t, 1)

	col.mu.Lock()
	defer col.mu.Unlock()
	var sawProgress, sawBuffered bool
	for _, s := range col.statuses {
		if strings.HasPrefix(s, "🎧 Processing 2.0s audio chunk") {
			sawProgress = true
		}
		if strings.HasPrefix(s, "🎵 Capturing audio... (0.5s buffered)") {
			sawBuffered = true
		}
	}
	if !sawProgress || !sawBuffered {
		t.Errorf("statuses = %q", col.statuses)
	}
}

func TestWorkerReportsSourceEnded(t *testing.T) {
	stream := newFakeStream()
	col := newCollector()
	ended := make(chan uint64, 1)
	w := NewWorker(&fakeSource{stream: stream}, testConfig(), col.submit, col.status,
		WithEnded(func(epoch uint64) { ended <- epoch }))

	if err := w.Start(context.Background(), "mic", 7); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	feed(stream, 150, 50)
	close(stream.frames)

	select {
	case epoch := <-ended:
		if epoch != 7 {
			t.Errorf("ended epoch = %d, want 7", epoch)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("source end was not reported")
	}
	if !w.Running() {
		t.Error("run released before Stop")
	}

	st := w.Stop(true)
	chunks := col.wait(t, 1)
	if len(chunks) != 1 || len(chunks[0].Samples) != 150 || !chunks[0].Final {
		t.Errorf("chunks = %+v, want one final chunk of 150 samples", chunks)
	}
	if st.Ingested != 150 {
		t.Errorf("ingested = %d, want 150", st.Ingested)
	}
	if !stream.isClosed() {
		t.Error("stream not released")
	}

	col.mu.Lock()
	defer col.mu.Unlock()
	if n := len(col.statuses); n == 0 || col.statuses[n-1] != "⚠️ Audio source ended" {
		t.Errorf("statuses = %q", col.statuses)
	}
}
