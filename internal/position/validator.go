package position

import (
	"math"
	"time"
)

// Validator limits in game units.
const (
	// MaxInvalidStreak is the number of consecutive jump rejections after
	// which the next candidate is treated as a teleport.
	MaxInvalidStreak = 50

	// JumpTolerance is the largest per-axis move accepted between fixes.
	JumpTolerance = 30

	MinX = 4468
	MaxX = 14260
	MinY = 84
	MaxY = 9999

	xModulus = 100000
	xFold    = 10000
	yModulus = 10000
)

// Position is a validated game coordinate.
type Position struct {
	X, Y float64
}

// TrackerState is the validator's memory between cycles.
type TrackerState struct {
	LastX, LastY  float64
	LastValidAt   time.Time
	InvalidStreak int
}

// NewTrackerState returns the state for a fresh session. The streak starts
// saturated so the first reading is checked against bounds only.
func NewTrackerState() TrackerState {
	return TrackerState{InvalidStreak: MaxInvalidStreak}
}

// Last returns the last accepted position.
func (s TrackerState) Last() Position {
	return Position{X: s.LastX, Y: s.LastY}
}

// Verdict classifies a validation result.
type Verdict int

const (
	Accepted Verdict = iota
	RejectedJump
	RejectedBounds
)

func (v Verdict) String() string {
	switch v {
	case Accepted:
		return "accepted"
	case RejectedJump:
		return "rejected_jump"
	case RejectedBounds:
		return "rejected_bounds"
	default:
		return "unknown"
	}
}

// Result is the outcome of one validation. On RejectedJump Position holds
// the kept last position; on RejectedBounds it is zero.
type Result struct {
	Verdict  Verdict
	Position Position
}

// OK reports whether the candidate was accepted.
func (r Result) OK() bool { return r.Verdict == Accepted }

// Canonicalize folds raw readings into the playable coordinate space.
func Canonicalize(c Candidate) (x, y float64) {
	x = math.Mod(c.X, xModulus)
	for x > MaxX {
		x -= xFold
	}
	y = math.Mod(c.Y, yModulus)
	return x, y
}

// Validate decides whether c becomes the new position. It never mutates s;
// the returned state replaces it.
func Validate(c Candidate, s TrackerState, now time.Time) (Result, TrackerState) {
	x, y := Canonicalize(c)

	if s.InvalidStreak >= MaxInvalidStreak {
		s.InvalidStreak = 0
	} else if math.Abs(s.LastX-x) > JumpTolerance || math.Abs(s.LastY-y) > JumpTolerance {
		s.InvalidStreak++
		return Result{Verdict: RejectedJump, Position: s.Last()}, s
	}

	if x >= MinX && x <= MaxX && y >= MinY && y <= MaxY {
		s.LastX, s.LastY = x, y
		s.LastValidAt = now
		return Result{Verdict: Accepted, Position: Position{X: x, Y: y}}, s
	}
	return Result{Verdict: RejectedBounds}, s
}
