package geo

import (
	"math"
	"testing"

	"github.com/GriffinCanCode/minimap-tracker/internal/position"
)

func TestHeadingFirstFix(t *testing.T) {
	var h HeadingTracker
	if got := h.Update(position.Position{X: 5000, Y: 5000}); got != (Heading{}) {
		t.Errorf("first fix heading = %+v, want zero", got)
	}
}

func TestHeadingDelta(t *testing.T) {
	var h HeadingTracker
	h.Update(position.Position{X: 5000, Y: 5000})
	got := h.Update(position.Position{X: 5003, Y: 5004})

	if math.Abs(got.Radians-0.6435011087932844) > 1e-12 {
		t.Errorf("radians = %v, want atan2(3, 4)", got.Radians)
	}
	if got.Degrees != 51 {
		t.Errorf("degrees = %d, want 51", got.Degrees)
	}
}

func TestHeadingNegativeTruncatesTowardZero(t *testing.T) {
	var h HeadingTracker
	h.Update(position.Position{X: 5000, Y: 5000})
	got := h.Update(position.Position{X: 4997, Y: 5004})
	if got.Degrees != -51 {
		t.Errorf("degrees = %d, want -51", got.Degrees)
	}
}

func TestHeadingStableOnZeroDelta(t *testing.T) {
	var h HeadingTracker
	h.Update(position.Position{X: 5000, Y: 5000})
	first := h.Update(position.Position{X: 5010, Y: 5000})

	if got := h.Update(position.Position{X: 5010, Y: 5000}); got != first {
		t.Errorf("heading changed on zero move: %+v -> %+v", first, got)
	}
	if h.Current() != first {
		t.Errorf("Current() = %+v, want %+v", h.Current(), first)
	}
}

func TestHeadingReset(t *testing.T) {
	var h HeadingTracker
	h.Update(position.Position{X: 5000, Y: 5000})
	h.Update(position.Position{X: 5010, Y: 5000})
	h.Reset()

	if h.Current() != (Heading{}) {
		t.Errorf("heading after reset = %+v", h.Current())
	}
	if got := h.Update(position.Position{X: 9000, Y: 9000}); got != (Heading{}) {
		t.Errorf("first fix after reset = %+v, want zero", got)
	}
}
