// Package resilience provides the circuit breaker guarding remote OCR and
// the backoff used while waiting for dependencies at startup.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// State is the circuit position.
type State uint32

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned without calling through while the circuit is open,
// or while a half-open probe is already in flight.
var ErrOpen = errors.New("circuit breaker open")

// Hook observes state changes.
type Hook func(name string, from, to State)

// Breaker fails fast after repeated transient failures and lets single
// probes through once the cooldown has passed.
type Breaker struct {
	cfg  Config
	hook Hook

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
	probing   bool
}

// New creates a closed breaker.
func New(cfg Config) *Breaker {
	return &Breaker{cfg: cfg.withDefaults()}
}

// WithHook sets the state change callback. It runs outside the breaker lock.
func (b *Breaker) WithHook(fn Hook) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hook = fn
	return b
}

// Name returns the configured name.
func (b *Breaker) Name() string { return b.cfg.Name }

// State returns the current state. An open circuit whose cooldown has passed
// still reports Open until the next call probes it.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset closes the circuit.
func (b *Breaker) Reset() {
	b.mu.Lock()
	from, hook := b.moveLocked(Closed)
	b.mu.Unlock()
	b.notify(hook, from, Closed)
}

// Do runs fn unless the circuit is open.
func (b *Breaker) Do(fn func() error) error {
	probe, err := b.acquire()
	if err != nil {
		return err
	}
	err = fn()
	b.record(err, probe)
	return err
}

// Call is Do for functions returning a value.
func Call[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	probe, err := b.acquire()
	if err != nil {
		return zero, err
	}
	v, err := fn()
	b.record(err, probe)
	if err != nil {
		return zero, err
	}
	return v, nil
}

// acquire admits a call and reports whether it is the half-open probe.
func (b *Breaker) acquire() (probe bool, err error) {
	b.mu.Lock()
	switch b.state {
	case Closed:
		b.mu.Unlock()
		return false, nil
	case Open:
		if b.cfg.Now().Sub(b.openedAt) < b.cfg.Cooldown {
			b.mu.Unlock()
			return false, ErrOpen
		}
		from, hook := b.moveLocked(HalfOpen)
		b.probing = true
		b.mu.Unlock()
		b.notify(hook, from, HalfOpen)
		return true, nil
	default:
		if b.probing {
			b.mu.Unlock()
			return false, ErrOpen
		}
		b.probing = true
		b.mu.Unlock()
		return true, nil
	}
}

// record books the outcome of an admitted call. Errors that IsFailure
// rejects still prove the remote side answered, so they count as success.
func (b *Breaker) record(err error, probe bool) {
	failed := err != nil && b.cfg.IsFailure(err)

	b.mu.Lock()
	if probe {
		b.probing = false
	}
	next := b.state
	switch b.state {
	case HalfOpen:
		if failed {
			next = Open
			break
		}
		b.successes++
		if b.successes >= b.cfg.Probes {
			next = Closed
		}
	case Closed:
		if !failed {
			b.failures = 0
			break
		}
		b.failures++
		if b.failures >= b.cfg.Threshold {
			next = Open
		}
	}
	from, hook := b.moveLocked(next)
	b.mu.Unlock()
	b.notify(hook, from, next)
}

// moveLocked switches state and returns the previous state and the hook to
// run once unlocked.
func (b *Breaker) moveLocked(to State) (State, Hook) {
	from := b.state
	if from == to {
		return from, nil
	}
	b.state = to
	b.successes = 0
	switch to {
	case Open:
		b.openedAt = b.cfg.Now()
		slog.Warn("circuit breaker opened", "breaker", b.cfg.Name, "failures", b.failures)
	case Closed:
		b.failures = 0
		b.probing = false
		slog.Info("circuit breaker closed", "breaker", b.cfg.Name)
	case HalfOpen:
		slog.Info("circuit breaker half-open", "breaker", b.cfg.Name)
	}
	return from, b.hook
}

func (b *Breaker) notify(hook Hook, from, to State) {
	if hook != nil && from != to {
		hook(b.cfg.Name, from, to)
	}
}
