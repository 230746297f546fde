package imaging

import (
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// Clone returns a deep copy of img with its bounds rebased to the origin.
func Clone(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// Upscale enlarges img by an integer factor with Catmull-Rom resampling.
// Small glyphs recognise better when enlarged; factor <= 1 returns a copy.
func Upscale(img image.Image, factor int) *image.RGBA {
	if factor <= 1 {
		return Clone(img)
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}
