// Package store persists accepted fixes to Redis.
package store

import "time"

// Redis layout. The last fix is a hash, the trail a capped list of JSON fixes.
const (
	DefaultPrefix      = "minimap:"
	LastKey            = "last"
	TrailKey           = "trail"
	DefaultTTL         = 10 * time.Minute
	DefaultTrailLength = 500
)

// Batcher defaults
const (
	DefaultBatcherMaxSize    = 20
	DefaultBatcherFlushDelay = time.Second
	flushTimeout             = 5 * time.Second
)
