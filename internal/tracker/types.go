package tracker

import (
	"time"

	"github.com/GriffinCanCode/minimap-tracker/internal/position"
)

// Outcome classifies one cycle.
type Outcome string

const (
	OutcomeAccepted          Outcome = "accepted"
	OutcomeAcquisitionFailed Outcome = "acquisition_failed"
	OutcomeNoCandidate       Outcome = "no_candidate"
	OutcomeUnchanged         Outcome = "unchanged"
	OutcomeDuplicate         Outcome = "duplicate"
	OutcomeRejectedJump      Outcome = "rejected_jump"
	OutcomeRejectedBounds    Outcome = "rejected_bounds"
)

func outcomeOf(v position.Verdict) Outcome {
	switch v {
	case position.Accepted:
		return OutcomeAccepted
	case position.RejectedJump:
		return OutcomeRejectedJump
	default:
		return OutcomeRejectedBounds
	}
}

// Fix is an accepted position with its projection.
type Fix struct {
	X              float64   `json:"x"`
	Y              float64   `json:"y"`
	Lat            float64   `json:"lat"`
	Lng            float64   `json:"lng"`
	Heading        int       `json:"heading"`
	HeadingRadians float64   `json:"heading_radians"`
	At             time.Time `json:"at"`
	TraceID        string    `json:"trace_id,omitempty"`
}

// Report describes what one cycle did.
type Report struct {
	Outcome   Outcome
	Tier      string
	Text      string
	Candidate position.Candidate
	Fix       *Fix
	Err       error
}

// Accepted reports whether the cycle produced a fix.
func (r Report) Accepted() bool { return r.Outcome == OutcomeAccepted }

// Snapshot is the tracker state exposed to readers.
type Snapshot struct {
	Running       bool      `json:"running"`
	HasFix        bool      `json:"has_fix"`
	Fix           Fix       `json:"fix"`
	LastValidAt   time.Time `json:"last_valid_at"`
	InvalidStreak int       `json:"invalid_streak"`
	LastOutcome   Outcome   `json:"last_outcome"`
	Cycles        uint64    `json:"cycles"`
}
