package resilience

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperrors "github.com/GriffinCanCode/minimap-tracker/internal/errors"
	"github.com/GriffinCanCode/minimap-tracker/internal/trace"
)

// Startup waits: the OCR server or Redis may still be booting when the
// tracker starts.
const (
	StartupAttempts  = 9
	StartupBaseDelay = 250 * time.Millisecond
	StartupMaxDelay  = 5 * time.Second
	DefaultJitter    = 0.2

	maxBackoffShift = 6
)

// RetryConfig controls Retry.
type RetryConfig struct {
	// Name labels log lines.
	Name string
	// Attempts counts the first call; values below 1 mean a single call.
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// Jitter spreads each delay by ±Jitter/2 of its length.
	Jitter float64
	// Retryable classifies errors; nil uses Transient.
	Retryable func(error) bool
}

// StartupRetryConfig waits roughly half a minute for a dependency.
func StartupRetryConfig(name string) RetryConfig {
	return RetryConfig{
		Name:      name,
		Attempts:  StartupAttempts,
		BaseDelay: StartupBaseDelay,
		MaxDelay:  StartupMaxDelay,
		Jitter:    DefaultJitter,
	}
}

// Transient reports whether err may clear up by itself. Coded errors follow
// their code; gRPC statuses retry on availability and deadline codes;
// context errors never retry; anything else is assumed transient.
func Transient(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return apperrors.IsRetryable(err)
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
			return true
		default:
			return false
		}
	}
	return true
}

// Retry calls fn until it succeeds, fails permanently, runs out of attempts
// or ctx ends. It returns fn's last error, or ctx's error when cancelled
// while waiting.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	retryable := cfg.Retryable
	if retryable == nil {
		retryable = Transient
	}
	attempts := max(cfg.Attempts, 1)
	log := trace.Logger(ctx)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn()
		if err == nil {
			return nil
		}
		if attempt >= attempts || !retryable(err) {
			return err
		}

		delay := cfg.delay(attempt)
		log.Debug("retrying", "op", cfg.Name, "attempt", attempt, "of", attempts, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// delay doubles BaseDelay per failed attempt up to MaxDelay, then applies
// jitter.
func (c RetryConfig) delay(attempt int) time.Duration {
	d := c.BaseDelay << min(attempt-1, maxBackoffShift)
	if c.MaxDelay > 0 && d > c.MaxDelay {
		d = c.MaxDelay
	}
	if c.Jitter <= 0 {
		return d
	}
	return time.Duration(float64(d) * (1 + c.Jitter*(rand.Float64()-0.5)))
}
