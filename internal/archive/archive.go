package archive

import (
	"context"
	"time"

	"github.com/GriffinCanCode/livecaption/internal/config"
	"github.com/GriffinCanCode/livecaption/internal/orchestrator/summary"
	"github.com/GriffinCanCode/livecaption/internal/trace"
)

// Archive records captions and summaries off the session loop.
type Archive struct {
	store   *Store
	batcher *Batcher
}

// New opens the store described by cfg.
func New(cfg config.ArchiveConfig) (*Archive, error) {
	store, err := Open(cfg.Path)
	if err != nil {
		return nil, err
	}
	return NewWithStore(store, cfg.BatchSize, cfg.FlushDelay), nil
}

// NewWithStore wraps an open store.
func NewWithStore(store *Store, batchSize int, flushDelay time.Duration) *Archive {
	return &Archive{store: store, batcher: NewBatcher(store, batchSize, flushDelay)}
}

// Store exposes the underlying store for reads.
func (a *Archive) Store() *Store { return a.store }

// RecordSegment queues a delivered caption.
func (a *Archive) RecordSegment(sessionID string, epoch uint64, text string) {
	a.batcher.Add(Segment{SessionID: sessionID, Epoch: epoch, Text: text, CreatedAt: time.Now()})
}

// RecordSummary writes a summary once the session's queued captions are written.
func (a *Archive) RecordSummary(sessionID string, res summary.Result) {
	sum := Summary{
		SessionID: sessionID,
		Content:   res.Text,
		Source:    string(res.Source),
		Sentences: res.Sentences,
		Words:     res.Words,
		CreatedAt: time.Now(),
	}
	a.batcher.FlushThen(func(ctx context.Context) {
		ctx = trace.WithSession(ctx, sessionID, 0)
		if err := a.store.InsertSummary(ctx, sum); err != nil {
			trace.Logger(ctx).Warn("archive summary failed", "error", err)
		}
	})
}

// Close drains pending writes and closes the store.
func (a *Archive) Close() error {
	a.batcher.Stop()
	return a.store.Close()
}
