// Package resilience provides the retry, rate limiting and failure
// classification helpers used around CRM calls.
package resilience

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RetryConfig controls retry behavior. Retries wait a fixed Delay between
// attempts.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts (including the first try).
	// A value of 1 means no retries. Default: 3.
	MaxAttempts int

	// Delay is the wait between attempts. Default: 5m.
	Delay time.Duration

	// ShouldRetry optionally overrides the default read-timeout check.
	// If nil, IsTimeout is used.
	ShouldRetry func(err error) bool

	// OnRetry is called before each retry sleep with attempt number and error.
	OnRetry func(attempt int, err error)
}

// DefaultRetryConfig returns the CRM fetch policy: three attempts, five
// minutes apart, retrying only read timeouts.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		Delay:       5 * time.Minute,
		ShouldRetry: IsTimeout,
	}
}

// FromRetryConfig converts config values to a RetryConfig.
func FromRetryConfig(maxAttempts, delaySecs int) RetryConfig {
	cfg := DefaultRetryConfig()
	if maxAttempts > 0 {
		cfg.MaxAttempts = maxAttempts
	}
	if delaySecs > 0 {
		cfg.Delay = time.Duration(delaySecs) * time.Second
	}
	return cfg
}

// Do executes fn with retry logic according to cfg. Errors that fail the
// ShouldRetry check are returned immediately; after the last attempt the
// final error is returned unchanged. Context cancellation stops retries.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal executes fn returning a value with retry logic. Same semantics as Do
// but preserves the return value from the successful call.
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

		// Don't sleep after the last attempt.
		if attempt >= cfg.MaxAttempts-1 {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, lastErr)
		}

		timer := time.NewTimer(cfg.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}

	return zero, lastErr
}

func applyDefaults(cfg RetryConfig) RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	if cfg.ShouldRetry == nil {
		cfg.ShouldRetry = IsTimeout
	}
	return cfg
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
