package server

import (
	"context"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/GriffinCanCode/livecaption/internal/errors"
	"github.com/GriffinCanCode/livecaption/internal/events"
	"github.com/GriffinCanCode/livecaption/internal/trace"
)

// wsSurface is one connected WebSocket client. Writes go through a single
// writer goroutine so frames keep their order.
type wsSurface struct {
	id     string
	conn   *websocket.Conn
	queue  chan any
	closed chan struct{}
	once   sync.Once
}

func newSurface(id string, conn *websocket.Conn, size int) *wsSurface {
	if size <= 0 {
		size = DefaultSurfaceQueue
	}
	return &wsSurface{
		id:     id,
		conn:   conn,
		queue:  make(chan any, size),
		closed: make(chan struct{}),
	}
}

func (s *wsSurface) ID() string { return s.id }

// Send queues evt. A full queue drops the event.
func (s *wsSurface) Send(ctx context.Context, evt events.Event) error {
	return s.enqueue(ctx, evt)
}

func (s *wsSurface) enqueue(ctx context.Context, v any) error {
	select {
	case <-s.closed:
		return errors.New(errors.Network, "surface disconnected")
	default:
	}
	select {
	case s.queue <- v:
		return nil
	case <-s.closed:
		return errors.New(errors.Network, "surface disconnected")
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), errors.Cancelled, "send cancelled")
	default:
		return errors.New(errors.Network, "surface queue full").WithMetadata("surface_id", s.id)
	}
}

func (s *wsSurface) writeLoop(ctx context.Context) {
	log := trace.Logger(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.closed:
			return
		case v := <-s.queue:
			wctx, cancel := context.WithTimeout(ctx, WriteTimeout)
			err := wsjson.Write(wctx, s.conn, v)
			cancel()
			if err != nil {
				log.Debug("websocket write error", "surface_id", s.id, "error", err)
				s.close()
				return
			}
		}
	}
}

func (s *wsSurface) close() {
	s.once.Do(func() { close(s.closed) })
}
