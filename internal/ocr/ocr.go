// Package ocr defines the text recognition boundary used by the tracker.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
)

// Allowlist restricts recognition to the glyphs of the coordinate overlay.
const Allowlist = "[]0123456789,. "

// Recognizer turns an image into raw text. Implementations may return an
// empty string for unreadable images.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// RecognizerFunc adapts a function to Recognizer.
type RecognizerFunc func(ctx context.Context, img image.Image) (string, error)

func (f RecognizerFunc) Recognize(ctx context.Context, img image.Image) (string, error) {
	return f(ctx, img)
}

// EncodePNG serializes img for engines that consume encoded bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
