package grpcclient

import "time"

// Client configuration defaults
const (
	// Keepalive configuration
	DefaultKeepaliveTime    = 10 * time.Second
	DefaultKeepaliveTimeout = 3 * time.Second

	// Health check configuration
	HealthCheckTimeout = 2 * time.Second
)

// Wire names of the inference transcription service.
const (
	ServiceName      = "livecaption.v1.Transcription"
	TranscribeMethod = "/" + ServiceName + "/Transcribe"
)
