package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/GriffinCanCode/minimap-tracker/internal/tracker"
)

type mockSaver struct {
	mu    sync.Mutex
	calls [][]tracker.Fix
	err   error
}

func (m *mockSaver) SaveBatch(_ context.Context, fixes []tracker.Fix) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, fixes)
	return m.err
}

func (m *mockSaver) getCalls() [][]tracker.Fix {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestBatcher_FlushOnMaxSize(t *testing.T) {
	saver := &mockSaver{}
	b := NewBatcher(saver, 3, time.Hour)

	for i := 0; i < 3; i++ {
		b.Add(tracker.Fix{X: float64(8500 + i)})
	}
	b.Stop()

	calls := saver.getCalls()
	if len(calls) != 1 || len(calls[0]) != 3 {
		t.Fatalf("calls = %v, want one batch of 3", calls)
	}
	if calls[0][2].X != 8502 {
		t.Errorf("batch order wrong: %+v", calls[0])
	}
}

func TestBatcher_FlushOnDelay(t *testing.T) {
	saver := &mockSaver{}
	b := NewBatcher(saver, 100, 10*time.Millisecond)
	defer b.Stop()

	b.Add(tracker.Fix{X: 1})
	b.Add(tracker.Fix{X: 2})

	deadline := time.Now().Add(2 * time.Second)
	for len(saver.getCalls()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	calls := saver.getCalls()
	if len(calls) != 1 || len(calls[0]) != 2 {
		t.Errorf("calls = %v, want one batch of 2", calls)
	}
}

func TestBatcher_StopFlushesRemaining(t *testing.T) {
	saver := &mockSaver{}
	b := NewBatcher(saver, 100, time.Hour)

	b.Add(tracker.Fix{X: 1})
	b.Stop()

	if calls := saver.getCalls(); len(calls) != 1 {
		t.Errorf("calls = %d, want 1", len(calls))
	}
}

func TestBatcher_StopWithNothingPending(t *testing.T) {
	saver := &mockSaver{}
	NewBatcher(saver, 0, 0).Stop()

	if calls := saver.getCalls(); len(calls) != 0 {
		t.Errorf("calls = %d, want 0", len(calls))
	}
}

func TestBatcher_SaveErrorDoesNotBlock(t *testing.T) {
	saver := &mockSaver{err: errors.New("redis down")}
	b := NewBatcher(saver, 1, time.Hour)

	b.Add(tracker.Fix{X: 1})
	b.Add(tracker.Fix{X: 2})
	b.Stop()

	if calls := saver.getCalls(); len(calls) != 2 {
		t.Errorf("calls = %d, want 2", len(calls))
	}
}
