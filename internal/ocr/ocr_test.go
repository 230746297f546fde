package ocr

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestApplyOptions(t *testing.T) {
	o := Apply(WithLanguage("eng"), WithTessdata(""), WithSingleLine(false))
	if o.Language != "eng" || o.Tessdata != "" || o.SingleLine {
		t.Errorf("Apply = %+v", o)
	}
	if o.Allowlist != Allowlist {
		t.Errorf("Allowlist = %q, want default", o.Allowlist)
	}
	if d := DefaultOptions(); d.Language != "complexeng" || !d.SingleLine {
		t.Errorf("DefaultOptions = %+v", d)
	}
}

func TestEncodePNG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 5, 3))
	data, err := EncodePNG(img)
	if err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	if decoded.Bounds() != img.Bounds() {
		t.Errorf("bounds = %v, want %v", decoded.Bounds(), img.Bounds())
	}
}

func TestStaticCycles(t *testing.T) {
	s := NewStatic("a", "b")
	ctx := context.Background()
	var got []string
	for i := 0; i < 3; i++ {
		text, err := s.Recognize(ctx, nil)
		if err != nil {
			t.Fatalf("Recognize: %v", err)
		}
		got = append(got, text)
	}
	if got[0] != "a" || got[1] != "b" || got[2] != "a" {
		t.Errorf("texts = %v, want [a b a]", got)
	}
	if s.Calls() != 3 {
		t.Errorf("Calls() = %d, want 3", s.Calls())
	}
}

func TestStaticEmptyAndCancelled(t *testing.T) {
	s := NewStatic()
	if text, err := s.Recognize(context.Background(), nil); text != "" || err != nil {
		t.Errorf("empty Static = (%q, %v)", text, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Recognize(ctx, nil); err == nil {
		t.Error("expected context error")
	}
}

func TestLoadReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replay.txt")
	if err := os.WriteFile(path, []byte("[8500.1, 6000.2, 10]\r\n\n[8501.0, 6001.0, 10]\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := LoadReplay(path)
	if err != nil {
		t.Fatalf("LoadReplay: %v", err)
	}
	first, _ := s.Recognize(context.Background(), nil)
	if first != "[8500.1, 6000.2, 10]\n" {
		t.Errorf("first = %q", first)
	}
	second, _ := s.Recognize(context.Background(), nil)
	if second != "[8501.0, 6001.0, 10]\n" {
		t.Errorf("second = %q", second)
	}

	if _, err := LoadReplay(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestRecognizerFunc(t *testing.T) {
	var r Recognizer = RecognizerFunc(func(context.Context, image.Image) (string, error) {
		return "ok", nil
	})
	if text, _ := r.Recognize(context.Background(), nil); text != "ok" {
		t.Errorf("text = %q, want ok", text)
	}
}
