// Package broadcast keeps the registry of open viewing surfaces and fans
// events out to them. Delivery is fire-and-forget: a surface that cannot
// take an event is skipped and the rest still receive it.
package broadcast

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/GriffinCanCode/livecaption/internal/events"
	"github.com/GriffinCanCode/livecaption/internal/trace"
)

// UnknownLabel is used for activity signals that arrive without a label.
const UnknownLabel = "Unknown source"

// Surface is a connected viewer that accepts events.
type Surface interface {
	ID() string
	Send(ctx context.Context, evt events.Event) error
}

// Activity is an audio-activity signal raised by a surface.
type Activity struct {
	SourceSurfaceID string
	SourceLabel     string
}

// Options tune delivery.
type Options struct {
	// ExcludeSource skips the surface that raised an activity signal.
	ExcludeSource bool
	// SendTimeout bounds a single delivery.
	SendTimeout time.Duration
}

// Hub is the surface registry.
type Hub struct {
	mu       sync.RWMutex
	surfaces map[string]Surface
	notifier Notifier
	opts     Options
}

// NewHub creates a hub. A nil notifier disables system notifications.
func NewHub(notifier Notifier, opts Options) *Hub {
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = DefaultSendTimeout
	}
	return &Hub{
		surfaces: make(map[string]Surface),
		notifier: notifier,
		opts:     opts,
	}
}

// Register adds s, replacing any surface with the same id.
func (h *Hub) Register(s Surface) {
	h.mu.Lock()
	h.surfaces[s.ID()] = s
	h.mu.Unlock()
}

// Unregister removes the surface with id.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	delete(h.surfaces, id)
	h.mu.Unlock()
}

// Len reports how many surfaces are registered.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.surfaces)
}

// Send delivers evt to the surface with id. It reports whether the surface
// accepted the event; unknown or unreachable surfaces return false.
func (h *Hub) Send(ctx context.Context, id string, evt events.Event) bool {
	h.mu.RLock()
	s, ok := h.surfaces[id]
	h.mu.RUnlock()
	if !ok {
		trace.Logger(ctx).Debug("event dropped, surface gone", "surface", id, "type", evt.Type)
		return false
	}
	return h.deliver(ctx, s, evt)
}

// Broadcast delivers evt to every surface except those listed in skip and
// returns the number of surfaces that accepted it.
func (h *Hub) Broadcast(ctx context.Context, evt events.Event, skip ...string) int {
	h.mu.RLock()
	targets := make([]Surface, 0, len(h.surfaces))
	for id, s := range h.surfaces {
		if !contains(skip, id) {
			targets = append(targets, s)
		}
	}
	h.mu.RUnlock()

	delivered := 0
	for _, s := range targets {
		if h.deliver(ctx, s, evt) {
			delivered++
		}
	}
	return delivered
}

// Signal relays an activity signal to every surface as a NOTIFICATION and
// raises one system-level notification. There is no deduplication: every
// signal fans out.
func (h *Hub) Signal(ctx context.Context, a Activity) int {
	label := a.SourceLabel
	if label == "" {
		label = UnknownLabel
	}

	var skip []string
	if h.opts.ExcludeSource && a.SourceSurfaceID != "" {
		skip = append(skip, a.SourceSurfaceID)
	}
	n := h.Broadcast(ctx, events.NewNotification(a.SourceSurfaceID, label), skip...)

	log := trace.Logger(ctx)
	log.Debug("activity signalled", "label", label, "source", a.SourceSurfaceID, "delivered", n)

	if h.notifier != nil {
		msg := Message{
			Title: NotificationTitle,
			Body:  fmt.Sprintf("Sound/notification from: %s", label),
			Label: label,
		}
		if err := h.notifier.Notify(ctx, msg); err != nil {
			log.Warn("system notification failed", "error", err)
		}
	}
	return n
}

func (h *Hub) deliver(ctx context.Context, s Surface, evt events.Event) bool {
	ctx, cancel := context.WithTimeout(ctx, h.opts.SendTimeout)
	defer cancel()
	if err := s.Send(ctx, evt); err != nil {
		trace.Logger(ctx).Debug("surface unreachable", "surface", s.ID(), "type", evt.Type, "error", err)
		return false
	}
	return true
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
