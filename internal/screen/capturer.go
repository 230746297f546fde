// Package screen captures the coordinate readout region from the target
// process window.
package screen

import (
	"context"
	"errors"
	"image"

	"github.com/vova616/screenshot"

	apperrors "github.com/GriffinCanCode/minimap-tracker/internal/errors"
)

// Default region, relative to the top-right corner of the game window.
const (
	DefaultXOffset = 265
	DefaultYOffset = 20
	DefaultWidth   = 277
	DefaultHeight  = 16
)

// ErrProcessNotFound is returned when no window belongs to the target process.
var ErrProcessNotFound = errors.New("target process not found")

// Capturer returns one frame of the coordinate region per call.
type Capturer interface {
	Capture(ctx context.Context) (*image.RGBA, error)
}

// Locator finds the screen rectangle of the target process window.
type Locator interface {
	Locate(ctx context.Context) (image.Rectangle, error)
}

// GrabFunc copies a screen rectangle into a new image.
type GrabFunc func(image.Rectangle) (*image.RGBA, error)

// Region positions the capture rectangle. X is measured leftwards from the
// window's right edge, Y is an absolute screen row.
type Region struct {
	XOffset int
	YOffset int
	Width   int
	Height  int
}

// DefaultRegion returns the readout position for a standard HUD layout.
func DefaultRegion() Region {
	return Region{XOffset: DefaultXOffset, YOffset: DefaultYOffset, Width: DefaultWidth, Height: DefaultHeight}
}

// Within returns the capture rectangle for a window.
func (r Region) Within(window image.Rectangle) image.Rectangle {
	x := window.Max.X - r.XOffset
	return image.Rect(x, r.YOffset, x+r.Width, r.YOffset+r.Height)
}

// RegionCapturer captures a fixed-size region anchored to a process window.
type RegionCapturer struct {
	locator Locator
	region  Region
	grab    GrabFunc
}

var _ Capturer = (*RegionCapturer)(nil)

// New creates a capturer for the named process using the platform window
// lookup and the native screenshot backend.
func New(processName string, region Region) *RegionCapturer {
	return NewWithLocator(newProcessLocator(processName), region, screenshot.CaptureRect)
}

// NewWithLocator creates a capturer with explicit collaborators.
func NewWithLocator(l Locator, region Region, grab GrabFunc) *RegionCapturer {
	return &RegionCapturer{locator: l, region: region, grab: grab}
}

// Region returns the configured region.
func (c *RegionCapturer) Region() Region { return c.region }

// Capture locates the window and grabs the region. Failures are returned
// as coded errors; the caller decides whether to skip the cycle.
func (c *RegionCapturer) Capture(ctx context.Context) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCancelled, "capture")
	}
	window, err := c.locator.Locate(ctx)
	if err != nil {
		if errors.Is(err, ErrProcessNotFound) {
			return nil, apperrors.Wrap(err, apperrors.CodeProcessNotFound, "locate window")
		}
		return nil, apperrors.Wrap(err, apperrors.CodeCaptureFailed, "locate window")
	}
	rect := c.region.Within(window)
	img, err := c.grab(rect)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodeCaptureFailed, "grab %v", rect)
	}
	if img == nil || img.Bounds().Dx() != rect.Dx() || img.Bounds().Dy() != rect.Dy() {
		return nil, apperrors.Newf(apperrors.CodeCaptureFailed, "grab %v returned wrong size", rect).
			WithMetadata("rect", rect.String())
	}
	return img, nil
}
