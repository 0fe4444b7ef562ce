package archive

import "time"

// Segment batcher defaults
const (
	DefaultBatchSize  = 20
	DefaultFlushDelay = 2 * time.Second

	// WriteTimeout bounds a single archive write.
	WriteTimeout = 10 * time.Second
)
