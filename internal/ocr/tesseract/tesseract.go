// Package tesseract implements ocr.Recognizer with a local Tesseract engine.
package tesseract

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	apperrors "github.com/GriffinCanCode/minimap-tracker/internal/errors"
	"github.com/GriffinCanCode/minimap-tracker/internal/ocr"
)

// Engine keeps one gosseract client alive across cycles; the client is
// not safe for concurrent use so calls are serialized.
type Engine struct {
	mu     sync.Mutex
	client *gosseract.Client
	opts   ocr.Options
}

// New initializes a client with the given options.
func New(opts ...ocr.Option) (*Engine, error) {
	o := ocr.Apply(opts...)
	c := gosseract.NewClient()
	if err := configure(c, o); err != nil {
		_ = c.Close()
		return nil, apperrors.Wrap(err, apperrors.CodeOCRUnavailable, "configure tesseract")
	}
	return &Engine{client: c, opts: o}, nil
}

func configure(c *gosseract.Client, o ocr.Options) error {
	if o.Tessdata != "" {
		if err := c.SetTessdataPrefix(o.Tessdata); err != nil {
			return fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if o.Language != "" {
		if err := c.SetLanguage(o.Language); err != nil {
			return fmt.Errorf("set language: %w", err)
		}
	}
	if o.Allowlist != "" {
		if err := c.SetWhitelist(o.Allowlist); err != nil {
			return fmt.Errorf("set allowlist: %w", err)
		}
	}
	if o.SingleLine {
		if err := c.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
			return fmt.Errorf("set page segmentation: %w", err)
		}
	}
	return nil
}

// Recognize runs OCR on img. The context is only checked before starting;
// Tesseract itself cannot be interrupted.
func (e *Engine) Recognize(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := ocr.EncodePNG(img)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeOCRFailed, "encode frame")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.client.SetImageFromBytes(data); err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeOCRFailed, "set image")
	}
	text, err := e.client.Text()
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeOCRFailed, "recognize text")
	}
	return strings.TrimSpace(text) + "\n", nil
}

// Options returns the effective engine options.
func (e *Engine) Options() ocr.Options { return e.opts }

// Close releases the native client.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client.Close()
}
