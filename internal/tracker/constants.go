// Package tracker runs the capture, recognize, validate and project cycle
// and publishes accepted fixes.
package tracker

import "time"

// Worker pacing
const (
	DefaultAcceptedInterval = 300 * time.Millisecond
	DefaultMissInterval     = 200 * time.Millisecond
)

// Buffers
const (
	DefaultHistorySize = 600
	EventBuffer        = 64
)

// MaxFrameHashDistance is the largest difference-hash distance at which two
// frames count as unchanged.
const MaxFrameHashDistance = 0

// Preprocessing tiers, in the order they are tried.
const (
	TierOriginal = "original"
	TierColor    = "color"
	TierRange    = "range"
	TierHue      = "hue"
)
