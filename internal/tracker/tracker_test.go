package tracker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/GriffinCanCode/minimap-tracker/internal/ocr"
)

type memSink struct {
	mu    sync.Mutex
	fixes []Fix
}

func (m *memSink) Add(f Fix) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fixes = append(m.fixes, f)
}

func (m *memSink) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.fixes)
}

func fastConfig(enabled bool) Config {
	return Config{
		AcceptedInterval: 5 * time.Millisecond,
		MissInterval:     time.Millisecond,
		Enabled:          enabled,
		HistorySize:      10,
	}
}

func TestStepPublishes(t *testing.T) {
	p, _ := newTestPipeline(ocr.NewStatic("8500, 6000,\n"), testOptions())
	sink := &memSink{}
	tr := New(p, fastConfig(true), sink)

	rep := tr.Step(context.Background())
	if !rep.Accepted() {
		t.Fatalf("outcome = %s", rep.Outcome)
	}

	select {
	case f := <-tr.Events():
		if f.X != 8500 || f.Y != 6000 {
			t.Errorf("event = %+v", f)
		}
	default:
		t.Fatal("expected a fix event")
	}
	if tr.History().Len() != 1 {
		t.Errorf("history len = %d, want 1", tr.History().Len())
	}
	if sink.len() != 1 {
		t.Errorf("sink len = %d, want 1", sink.len())
	}

	snap := tr.Snapshot()
	if !snap.HasFix || snap.Fix.X != 8500 || snap.Cycles != 1 || snap.LastOutcome != OutcomeAccepted {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.LastValidAt.IsZero() {
		t.Error("LastValidAt should be set")
	}
}

func TestStepMissKeepsFix(t *testing.T) {
	p, _ := newTestPipeline(ocr.NewStatic("8500, 6000,\n", ""), testOptions())
	tr := New(p, fastConfig(true), nil)

	tr.Step(context.Background())
	rep := tr.Step(context.Background())
	if rep.Outcome != OutcomeNoCandidate {
		t.Fatalf("outcome = %s, want no_candidate", rep.Outcome)
	}
	snap := tr.Snapshot()
	if !snap.HasFix || snap.LastOutcome != OutcomeNoCandidate || snap.Cycles != 2 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestRunEmitsAndStops(t *testing.T) {
	p, _ := newTestPipeline(ocr.NewStatic("8500, 6000,\n", "8501, 6001,\n"), testOptions())
	tr := New(p, fastConfig(true), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx) }()

	select {
	case <-tr.Events():
	case <-time.After(2 * time.Second):
		t.Fatal("no fix within 2s")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestStartStop(t *testing.T) {
	static := ocr.NewStatic("8500, 6000,\n")
	p, _ := newTestPipeline(static, testOptions())
	tr := New(p, fastConfig(false), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = tr.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	if static.Calls() != 0 {
		t.Fatalf("ocr ran %d times while stopped", static.Calls())
	}
	if tr.Running() || tr.Snapshot().Running {
		t.Error("tracker should report stopped")
	}

	tr.Start()
	select {
	case <-tr.Events():
	case <-time.After(2 * time.Second):
		t.Fatal("no fix after Start")
	}
	if !tr.Snapshot().Running {
		t.Error("snapshot should report running")
	}

	tr.Stop()
	time.Sleep(20 * time.Millisecond)
	calls := static.Calls()
	time.Sleep(30 * time.Millisecond)
	if static.Calls() != calls {
		t.Errorf("ocr kept running after Stop: %d -> %d", calls, static.Calls())
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	p, _ := newTestPipeline(ocr.NewStatic(), testOptions())
	tr := New(p, Config{Enabled: true}, nil)
	if tr.cfg.AcceptedInterval != DefaultAcceptedInterval || tr.cfg.MissInterval != DefaultMissInterval {
		t.Errorf("cfg = %+v", tr.cfg)
	}
	if tr.Snapshot().InvalidStreak != 50 {
		t.Errorf("initial streak = %d, want 50", tr.Snapshot().InvalidStreak)
	}
}
