// Package server exposes the tracker to map pages over WebSocket and HTTP.
package server

import "time"

// Server configuration constants
const (
	// Per-connection inbound websocket limit
	RateLimitMessages = 10
	RateLimitWindow   = time.Second

	// Per-IP limit on the REST toggles
	IPRateLimitMessages        = 30
	IPRateLimitWindow          = time.Second
	IPRateLimitCleanupInterval = 5 * time.Minute
	IPRateLimitEntryTTL        = 10 * time.Minute

	// Trail window for /api/track
	DefaultTrackSeconds = 60
	MaxTrackSeconds     = 3600

	wsWriteTimeout = 2 * time.Second
)
