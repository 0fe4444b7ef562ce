// Package resilience provides the fault tolerance patterns used around
// remote collaborators: a circuit breaker and a bounded fixed-interval poll.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/GriffinCanCode/livecaption/internal/errors"
	"github.com/GriffinCanCode/livecaption/internal/trace"
)

// State is the breaker position.
type State uint32

const (
	Closed   State = iota // calls pass through
	Open                  // calls fail fast
	HalfOpen              // probing
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	}
	return "unknown"
}

// ErrOpen is returned without calling through while the breaker is open.
var ErrOpen = errors.New(errors.Remote, "circuit breaker open")

// Counts is a point-in-time view of a breaker.
type Counts struct {
	State     State
	Failures  int
	Successes int
	Rejected  int
}

// Breaker stops calling a collaborator after consecutive failures and
// tries it again once ResetTimeout has passed since the last one.
type Breaker struct {
	cfg Config

	mu          sync.Mutex
	state       State
	failures    int
	successes   int
	rejected    int
	lastFailure time.Time
	hook        func(from, to State)
}

// New creates a breaker with config
func New(cfg Config) *Breaker {
	return &Breaker{cfg: cfg.withDefaults()}
}

// WithHook sets a state change callback. It runs with the breaker locked
// and must not call back into it.
func (b *Breaker) WithHook(fn func(from, to State)) *Breaker {
	b.mu.Lock()
	b.hook = fn
	b.mu.Unlock()
	return b
}

// Name returns the configured name.
func (b *Breaker) Name() string { return b.cfg.Name }

// Allow reports whether a call may proceed, moving an expired open
// breaker to half-open.
func (b *Breaker) Allow(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != Open {
		return nil
	}
	if time.Since(b.lastFailure) > b.cfg.ResetTimeout {
		b.transitionLocked(ctx, HalfOpen)
		return nil
	}
	b.rejected++
	return ErrOpen
}

// Success records a successful call.
func (b *Breaker) Success(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case HalfOpen:
		b.successes++
		if b.successes >= b.cfg.HalfOpenSuccesses {
			b.transitionLocked(ctx, Closed)
		}
	case Closed:
		b.failures = 0
	}
}

// Failure records a failed call.
func (b *Breaker) Failure(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailure = time.Now()
	b.failures++

	switch b.state {
	case HalfOpen:
		b.transitionLocked(ctx, Open)
	case Closed:
		if b.failures >= b.cfg.Threshold {
			b.transitionLocked(ctx, Open)
		}
	}
}

// State returns current state
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Counts returns the current counters.
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Counts{State: b.state, Failures: b.failures, Successes: b.successes, Rejected: b.rejected}
}

func (b *Breaker) transitionLocked(ctx context.Context, to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	b.successes = 0

	log := trace.Logger(ctx).With("breaker", b.cfg.Name)
	switch to {
	case Closed:
		b.failures = 0
		log.Info("circuit breaker closed")
	case Open:
		log.Warn("circuit breaker opened", "failures", b.failures)
	case HalfOpen:
		log.Info("circuit breaker half-open")
	}

	if b.hook != nil {
		b.hook(from, to)
	}
}

// Do runs fn under the breaker. A call abandoned because ctx ended is
// neither a success nor a failure.
func Do[T any](ctx context.Context, b *Breaker, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.Allow(ctx); err != nil {
		return zero, err
	}
	result, err := fn(ctx)
	switch {
	case err != nil && ctx.Err() != nil:
		return zero, err
	case err != nil:
		b.Failure(ctx)
		return zero, err
	}
	b.Success(ctx)
	return result, nil
}
