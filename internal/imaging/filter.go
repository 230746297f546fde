// Package imaging binarizes captured frames so glyphs stand out for OCR.
// Every filter rewrites the image in place: matching pixels become opaque
// black, everything else opaque white.
package imaging

import (
	"image"
	"image/color"
	"math"
)

// Filter rewrites an image in place.
type Filter func(img *image.RGBA)

var (
	black = [4]uint8{0, 0, 0, 0xff}
	white = [4]uint8{0xff, 0xff, 0xff, 0xff}
)

// binarize walks every pixel of img and paints it black when match is true.
func binarize(img *image.RGBA, match func(r, g, b uint8) bool) {
	if img == nil {
		return
	}
	b := img.Bounds()
	if b.Empty() {
		return
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		for i := 0; i+3 < len(row); i += 4 {
			px := &white
			if match(row[i], row[i+1], row[i+2]) {
				px = &black
			}
			copy(row[i:i+4], px[:])
		}
	}
}

// ThresholdByColor paints pixels within maxSquaredDistance (squared RGB
// distance) of ref black.
func ThresholdByColor(img *image.RGBA, ref color.RGBA, maxSquaredDistance int) {
	rr, rg, rb := int(ref.R), int(ref.G), int(ref.B)
	binarize(img, func(r, g, b uint8) bool {
		dr, dg, db := int(r)-rr, int(g)-rg, int(b)-rb
		return dr*dr+dg*dg+db*db <= maxSquaredDistance
	})
}

// ThresholdByRange paints pixels whose channels all lie in [lo, hi] black.
func ThresholdByRange(img *image.RGBA, lo, hi color.RGBA) {
	binarize(img, func(r, g, b uint8) bool {
		return r >= lo.R && r <= hi.R &&
			g >= lo.G && g <= hi.G &&
			b >= lo.B && b <= hi.B
	})
}

// ThresholdByHue paints pixels whose hue is closer than 1.5*tolerance
// degrees to target black.
func ThresholdByHue(img *image.RGBA, target, tolerance float64) {
	limit := 1.5 * tolerance
	binarize(img, func(r, g, b uint8) bool {
		return math.Abs(Hue(r, g, b)-target) < limit
	})
}

// Hue returns the HSL hue of an RGB triple in degrees, [0, 360).
// Achromatic pixels report 0.
func Hue(r, g, b uint8) float64 {
	if r == g && g == b {
		return 0
	}
	rf, gf, bf := float64(r)/255, float64(g)/255, float64(b)/255
	hi := math.Max(rf, math.Max(gf, bf))
	lo := math.Min(rf, math.Min(gf, bf))
	delta := hi - lo

	var h float64
	switch hi {
	case rf:
		h = (gf - bf) / delta
	case gf:
		h = 2 + (bf-rf)/delta
	default:
		h = 4 + (rf-gf)/delta
	}
	h *= 60
	if h < 0 {
		h += 360
	}
	return h
}

// ColorFilter returns a Filter applying ThresholdByColor.
func ColorFilter(ref color.RGBA, maxSquaredDistance int) Filter {
	return func(img *image.RGBA) { ThresholdByColor(img, ref, maxSquaredDistance) }
}

// RangeFilter returns a Filter applying ThresholdByRange.
func RangeFilter(lo, hi color.RGBA) Filter {
	return func(img *image.RGBA) { ThresholdByRange(img, lo, hi) }
}

// HueFilter returns a Filter applying ThresholdByHue.
func HueFilter(target, tolerance float64) Filter {
	return func(img *image.RGBA) { ThresholdByHue(img, target, tolerance) }
}
