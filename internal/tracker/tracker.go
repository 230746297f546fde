package tracker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/minimap-tracker/internal/syncx"
	"github.com/GriffinCanCode/minimap-tracker/internal/trace"
)

// Sink receives accepted fixes, e.g. a persistence batcher.
type Sink interface {
	Add(f Fix)
}

// Config controls the worker loop.
type Config struct {
	AcceptedInterval time.Duration
	MissInterval     time.Duration
	Enabled          bool
	HistorySize      int
}

// DefaultConfig returns the standard pacing with tracking enabled.
func DefaultConfig() Config {
	return Config{
		AcceptedInterval: DefaultAcceptedInterval,
		MissInterval:     DefaultMissInterval,
		Enabled:          true,
		HistorySize:      DefaultHistorySize,
	}
}

// Tracker is the single worker that drives the pipeline.
type Tracker struct {
	pipeline *Pipeline
	history  *History
	sink     Sink
	cfg      Config

	running  atomic.Bool
	wake     chan struct{}
	snapshot *syncx.RWGuard[Snapshot]
}

// New creates a tracker. sink may be nil.
func New(p *Pipeline, cfg Config, sink Sink) *Tracker {
	if cfg.AcceptedInterval <= 0 {
		cfg.AcceptedInterval = DefaultAcceptedInterval
	}
	if cfg.MissInterval <= 0 {
		cfg.MissInterval = DefaultMissInterval
	}
	t := &Tracker{
		pipeline: p,
		history:  NewHistory(cfg.HistorySize, EventBuffer),
		sink:     sink,
		cfg:      cfg,
		wake:     make(chan struct{}, 1),
		snapshot: syncx.NewGuard(Snapshot{InvalidStreak: p.State().InvalidStreak}),
	}
	t.running.Store(cfg.Enabled)
	t.snapshot.Write(func(s *Snapshot) { s.Running = cfg.Enabled })
	return t
}

// Events returns accepted fixes as they happen.
func (t *Tracker) Events() <-chan Fix { return t.history.Events() }

// History returns the in-memory trail.
func (t *Tracker) History() *History { return t.history }

// Recent returns fixes accepted within window, oldest first.
func (t *Tracker) Recent(window time.Duration) []Fix { return t.history.Recent(window) }

// Snapshot returns the latest state.
func (t *Tracker) Snapshot() Snapshot { return t.snapshot.Get() }

// Preview returns the PNG behind the latest fix, or nil.
func (t *Tracker) Preview() []byte { return t.pipeline.Preview() }

// Running reports whether cycles are being scheduled.
func (t *Tracker) Running() bool { return t.running.Load() }

// Start resumes cycling. It is a no-op when already running.
func (t *Tracker) Start() {
	if t.running.Swap(true) {
		return
	}
	t.snapshot.Write(func(s *Snapshot) { s.Running = true })
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// Stop pauses cycling after the in-flight cycle completes.
func (t *Tracker) Stop() {
	t.running.Store(false)
	t.snapshot.Write(func(s *Snapshot) { s.Running = false })
}

// SetRunning calls Start or Stop.
func (t *Tracker) SetRunning(on bool) {
	if on {
		t.Start()
	} else {
		t.Stop()
	}
}

// Run loops until ctx is done. Cancellation is checked between cycles; a
// cycle in flight runs to completion.
func (t *Tracker) Run(ctx context.Context) error {
	log := trace.Logger(ctx)
	log.Info("tracker started", "running", t.Running())
	defer log.Info("tracker stopped")

	for {
		if ctx.Err() != nil {
			return nil
		}
		if !t.Running() {
			select {
			case <-ctx.Done():
				return nil
			case <-t.wake:
			}
			continue
		}

		rep := t.Step(context.WithoutCancel(ctx))

		delay := t.cfg.MissInterval
		if rep.Accepted() {
			delay = t.cfg.AcceptedInterval
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// Step runs one cycle and publishes its result.
func (t *Tracker) Step(ctx context.Context) Report {
	rep := t.pipeline.Cycle(ctx)
	state := t.pipeline.State()

	t.snapshot.Write(func(s *Snapshot) {
		s.Cycles++
		s.LastOutcome = rep.Outcome
		s.InvalidStreak = state.InvalidStreak
		if rep.Fix != nil {
			s.HasFix = true
			s.Fix = *rep.Fix
			s.LastValidAt = state.LastValidAt
		}
	})

	if rep.Fix != nil {
		t.history.Add(*rep.Fix)
		t.history.Emit(*rep.Fix)
		if t.sink != nil {
			t.sink.Add(*rep.Fix)
		}
	}
	return rep
}
