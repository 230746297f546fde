package ocr

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"os"
	"strings"
	"sync"
)

// Static replays scripted texts in order, wrapping around at the end.
// It drives smoke runs and tests without an OCR engine.
type Static struct {
	mu    sync.Mutex
	texts []string
	next  int
	calls int
}

// NewStatic creates a replaying recognizer.
func NewStatic(texts ...string) *Static {
	return &Static{texts: texts}
}

// LoadReplay reads one text per line from path.
func LoadReplay(path string) (*Static, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay file: %w", err)
	}
	defer f.Close()

	var texts []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimRight(sc.Text(), "\r"); line != "" {
			texts = append(texts, line+"\n")
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read replay file: %w", err)
	}
	return NewStatic(texts...), nil
}

func (s *Static) Recognize(ctx context.Context, _ image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.texts) == 0 {
		return "", nil
	}
	text := s.texts[s.next]
	s.next = (s.next + 1) % len(s.texts)
	return text, nil
}

// Calls returns how many times Recognize ran.
func (s *Static) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
