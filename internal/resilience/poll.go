package resilience

import (
	"context"
	"errors"
	"time"
)

// ErrPollExhausted is returned when every poll attempt ran without a
// terminal answer.
var ErrPollExhausted = errors.New("poll attempts exhausted")

// PollConfig bounds a poll loop with a fixed wait before each attempt.
type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int
}

// Poll waits Interval, then calls fn, until fn reports done, returns an
// error, or MaxAttempts calls have been made. The worst case therefore
// spends MaxAttempts*Interval waiting. Cancellation is checked while
// waiting and before every call.
func Poll[T any](ctx context.Context, cfg PollConfig, fn func(ctx context.Context, attempt int) (T, bool, error)) (T, error) {
	var zero T
	if cfg.MaxAttempts <= 0 {
		return zero, ErrPollExhausted
	}

	timer := time.NewTimer(cfg.Interval)
	defer timer.Stop()

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-timer.C:
		}
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		v, done, err := fn(ctx, attempt)
		if err != nil {
			return zero, err
		}
		if done {
			return v, nil
		}
		if attempt >= cfg.MaxAttempts {
			return zero, ErrPollExhausted
		}
		timer.Reset(cfg.Interval)
	}
}
