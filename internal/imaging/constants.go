package imaging

import "image/color"

// Coordinate overlay palette
var (
	// TextColor is the off-white of the coordinate glyphs.
	TextColor = color.RGBA{R: 255, G: 253, B: 228, A: 255}

	// Bright glyph cube used when the reference color misses.
	TextRangeLow  = color.RGBA{R: 160, G: 140, B: 100, A: 255}
	TextRangeHigh = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

const (
	TextColorMaxDistance = 15000

	// YellowHue is the hue of pure yellow in degrees.
	YellowHue           = 60.0
	DefaultHueTolerance = 10.0
)
