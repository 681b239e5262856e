package resilience

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sleeper abstracts the inter-attempt wait so tests can exercise retries
// without real waiting.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepWithContext is the production Sleeper: a timer that aborts early on
// context cancellation.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryConfig controls the fixed-delay retry loop used by the evaluate
// stage. The upstream AI service rate-limits aggressively, so the delay is
// deliberately flat rather than exponential.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts (including the first
	// try). A value of 1 means no retries. Default: 3.
	MaxAttempts int

	// Delay is slept between attempts. Default: 10s.
	Delay time.Duration

	// Sleep overrides the inter-attempt wait. If nil, SleepWithContext.
	Sleep Sleeper

	// ShouldRetry optionally overrides the default transient-error check.
	// If nil, IsTransient is used.
	ShouldRetry func(err error) bool

	// OnRetry is called before each retry sleep with attempt number and error.
	OnRetry func(attempt int, err error)
}

func applyDefaults(cfg RetryConfig) RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Delay <= 0 {
		cfg.Delay = 10 * time.Second
	}
	if cfg.Sleep == nil {
		cfg.Sleep = SleepWithContext
	}
	if cfg.ShouldRetry == nil {
		cfg.ShouldRetry = IsTransient
	}
	return cfg
}

// DoVal executes fn with fixed-delay retry, returning the value from the
// first successful call. Non-transient errors and context cancellation stop
// the loop immediately.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = applyDefaults(cfg)

	var zero T
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, lastErr
		}
		if !cfg.ShouldRetry(lastErr) {
			return zero, lastErr
		}
		if attempt >= cfg.MaxAttempts-1 {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, lastErr)
		}
		if err := cfg.Sleep(ctx, cfg.Delay); err != nil {
			return zero, lastErr
		}
	}

	return zero, lastErr
}

// Do executes fn with retry semantics identical to DoVal.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// RetryLogger returns an OnRetry callback that logs each retry attempt.
func RetryLogger(service, operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying operation",
			zap.String("service", service),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
