package tracker

import (
	"sync"
	"time"
)

// History keeps the most recent fixes and fans them out as events.
type History struct {
	mu       sync.RWMutex
	fixes    []Fix
	maxSize  int
	eventsCh chan Fix
}

// NewHistory creates a history holding up to maxFixes entries.
func NewHistory(maxFixes, eventBuffer int) *History {
	if maxFixes <= 0 {
		maxFixes = DefaultHistorySize
	}
	return &History{
		fixes:    make([]Fix, 0, maxFixes),
		maxSize:  maxFixes,
		eventsCh: make(chan Fix, eventBuffer),
	}
}

// Add records a fix, dropping the oldest past capacity.
func (h *History) Add(f Fix) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.fixes = append(h.fixes, f)
	if len(h.fixes) > h.maxSize {
		h.fixes = h.fixes[len(h.fixes)-h.maxSize:]
	}
}

// Recent returns fixes newer than window, oldest first. A non-positive
// window returns everything.
func (h *History) Recent(window time.Duration) []Fix {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if window <= 0 {
		return append([]Fix(nil), h.fixes...)
	}
	cutoff := time.Now().Add(-window)
	var out []Fix
	for _, f := range h.fixes {
		if !f.At.Before(cutoff) {
			out = append(out, f)
		}
	}
	return out
}

// Last returns the newest fix.
func (h *History) Last() (Fix, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.fixes) == 0 {
		return Fix{}, false
	}
	return h.fixes[len(h.fixes)-1], true
}

// Len returns the number of stored fixes.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.fixes)
}

// Events returns the channel of accepted fixes.
func (h *History) Events() <-chan Fix {
	return h.eventsCh
}

// Emit publishes a fix (non-blocking; dropped when nobody keeps up).
func (h *History) Emit(f Fix) {
	select {
	case h.eventsCh <- f:
	default:
	}
}
