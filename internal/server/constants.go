package server

import "time"

// Server configuration constants
const (
	// Per-connection sliding window for WebSocket commands
	RateLimitMessages = 20
	RateLimitWindow   = time.Second

	// DefaultSurfaceQueue bounds events waiting to be written to one socket.
	DefaultSurfaceQueue = 32
	WriteTimeout        = 5 * time.Second

	// MaxBodyBytes caps REST request bodies.
	MaxBodyBytes = 64 << 10

	// SurfaceHeader names the surface a REST command comes from.
	SurfaceHeader = "X-Surface-ID"
	// RESTSurface is used when a REST caller names none.
	RESTSurface   = "rest"

	DefaultArchiveLimit = 50
)
