package archive

import (
	"context"
	"sync"
	"time"

	"github.com/GriffinCanCode/livecaption/internal/trace"
)

type segmentWriter interface {
	InsertSegments(ctx context.Context, segs []Segment) (int, error)
}

// Batcher accumulates segments and writes them in batches.
type Batcher struct {
	w          segmentWriter
	maxSize    int
	flushDelay time.Duration
	mu         sync.Mutex
	items      []Segment
	timer      *time.Timer
	stopped    bool
	wg         sync.WaitGroup
	last       chan struct{}
}

// NewBatcher creates a segment batcher.
func NewBatcher(w segmentWriter, maxSize int, flushDelay time.Duration) *Batcher {
	if maxSize <= 0 {
		maxSize = DefaultBatchSize
	}
	if flushDelay <= 0 {
		flushDelay = DefaultFlushDelay
	}
	return &Batcher{
		w:          w,
		maxSize:    maxSize,
		flushDelay: flushDelay,
		items:      make([]Segment, 0, maxSize),
	}
}

// Add queues a segment. Segments added after Stop are dropped.
func (b *Batcher) Add(seg Segment) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}

	b.items = append(b.items, seg)

	if len(b.items) >= b.maxSize {
		b.flushLocked()
		return
	}

	if b.timer == nil {
		b.timer = time.AfterFunc(b.flushDelay, b.timerFlush)
	} else {
		b.timer.Reset(b.flushDelay)
	}
}

// Pending reports queued, unwritten segments.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

func (b *Batcher) timerFlush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushLocked()
}

func (b *Batcher) flushLocked() {
	if len(b.items) == 0 {
		return
	}
	b.writeLocked(nil)
}

// writeLocked cuts the pending batch and writes it after every earlier
// batch, then runs then (if set) in the same turn.
func (b *Batcher) writeLocked(then func(context.Context)) {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	items := b.items
	b.items = make([]Segment, 0, b.maxSize)

	prev, done := b.last, make(chan struct{})
	b.last = done

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer close(done)
		if prev != nil {
			<-prev
		}

		ctx, cancel := context.WithTimeout(context.Background(), WriteTimeout)
		defer cancel()
		if len(items) > 0 {
			b.write(ctx, items)
		}
		if then != nil {
			then(ctx)
		}
	}()
}

func (b *Batcher) write(ctx context.Context, items []Segment) {
	ctx, span := trace.StartSpan(ctx, "archive_batch_flush")
	defer span.End()
	span.SetAttr("count", len(items))

	log := trace.Logger(ctx)
	stored, err := b.w.InsertSegments(ctx, items)
	if err != nil {
		span.SetAttr("error", err.Error())
		log.Warn("archive segment batch failed", "error", err, "count", len(items))
	} else {
		log.Debug("archive segments stored", "stored", stored, "submitted", len(items))
	}
}

// FlushThen writes pending segments and then runs fn, ordered after all
// earlier writes. fn is skipped once the batcher is stopped.
func (b *Batcher) FlushThen(fn func(context.Context)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}
	b.writeLocked(fn)
}

// Flush forces an immediate write of pending segments.
func (b *Batcher) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushLocked()
}

// Stop flushes remaining segments and waits for in-flight writes.
func (b *Batcher) Stop() {
	b.mu.Lock()
	b.stopped = true
	b.flushLocked()
	b.mu.Unlock()
	b.wg.Wait()
}
