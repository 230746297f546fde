package store

import (
	"context"
	"sync"
	"time"

	"github.com/GriffinCanCode/minimap-tracker/internal/metrics"
	"github.com/GriffinCanCode/minimap-tracker/internal/trace"
	"github.com/GriffinCanCode/minimap-tracker/internal/tracker"
)

// Saver persists a batch of fixes.
type Saver interface {
	SaveBatch(ctx context.Context, fixes []tracker.Fix) error
}

// Batcher accumulates fixes and flushes them in batches so the capture
// loop never waits on Redis.
type Batcher struct {
	saver      Saver
	maxSize    int
	flushDelay time.Duration
	mu         sync.Mutex
	items      []tracker.Fix
	timer      *time.Timer
	wg         sync.WaitGroup
}

var _ tracker.Sink = (*Batcher)(nil)

// NewBatcher creates a batcher.
func NewBatcher(saver Saver, maxSize int, flushDelay time.Duration) *Batcher {
	if maxSize <= 0 {
		maxSize = DefaultBatcherMaxSize
	}
	if flushDelay <= 0 {
		flushDelay = DefaultBatcherFlushDelay
	}
	return &Batcher{
		saver:      saver,
		maxSize:    maxSize,
		flushDelay: flushDelay,
		items:      make([]tracker.Fix, 0, maxSize),
	}
}

// Add queues a fix.
func (b *Batcher) Add(f tracker.Fix) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items = append(b.items, f)
	if len(b.items) >= b.maxSize {
		b.flushLocked()
		return
	}

	if b.timer == nil {
		b.timer = time.AfterFunc(b.flushDelay, b.timerFlush)
	} else {
		b.timer.Reset(b.flushDelay)
	}
}

func (b *Batcher) timerFlush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushLocked()
}

func (b *Batcher) flushLocked() {
	if len(b.items) == 0 {
		return
	}
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	items := b.items
	b.items = make([]tracker.Fix, 0, b.maxSize)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()
		ctx, span := trace.StartSpan(ctx, "store_flush")
		defer span.EndAndLog(ctx)
		span.SetAttr("count", len(items))

		if err := b.saver.SaveBatch(ctx, items); err != nil {
			metrics.StoreErrors.Inc()
			span.Fail(err)
		}
	}()
}

// Flush forces pending fixes out.
func (b *Batcher) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushLocked()
}

// Stop flushes what is pending and waits for in-flight writes.
func (b *Batcher) Stop() {
	b.Flush()
	b.wg.Wait()
}
