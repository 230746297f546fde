package geo

import (
	"math"

	"github.com/GriffinCanCode/minimap-tracker/internal/position"
)

// HeadingScale converts heading radians into the rotation the map marker
// is drawn with. It is a visual factor, not a unit conversion.
const HeadingScale = 80

// Heading is the direction of travel between two fixes.
type Heading struct {
	Radians float64 `json:"radians"`
	Degrees int     `json:"degrees"`
}

func newHeading(rad float64) Heading {
	return Heading{Radians: rad, Degrees: int(rad * HeadingScale)}
}

// HeadingTracker derives heading from consecutive validated positions.
// Not safe for concurrent use; the tracking worker owns it.
type HeadingTracker struct {
	last    position.Position
	hasLast bool
	heading Heading
}

// Update records p and returns the current heading. Zero-length moves and
// the first fix of a session keep the previous heading.
func (h *HeadingTracker) Update(p position.Position) Heading {
	if h.hasLast {
		dx, dy := p.X-h.last.X, p.Y-h.last.Y
		if dx != 0 || dy != 0 {
			h.heading = newHeading(math.Atan2(dx, dy))
		}
	}
	h.last, h.hasLast = p, true
	return h.heading
}

// Current returns the last computed heading.
func (h *HeadingTracker) Current() Heading {
	return h.heading
}

// Reset forgets the previous fix.
func (h *HeadingTracker) Reset() {
	*h = HeadingTracker{}
}
