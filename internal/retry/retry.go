// Package retry implements exponential backoff for transient failures of
// hosting API calls and artifact deletions.
package retry

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/rs/zerolog"
)

// Config controls the backoff schedule.
type Config struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxAttempts  int
	Multiplier   float64
}

// DefaultConfig returns a schedule suited to per-item API calls: quick first
// retry, capped well below the surrounding task interval.
func DefaultConfig() Config {
	return Config{
		InitialDelay: 2 * time.Second,
		MaxDelay:     30 * time.Second,
		MaxAttempts:  4,
		Multiplier:   2.0,
	}
}

// Transient marks an error as worth retrying.
type Transient interface {
	Transient() bool
}

// IsTransient reports whether err looks like a temporary condition: a network
// error, or anything implementing Transient (the hosting client tags 5xx and
// 429 responses that way).
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var tr Transient
	if errors.As(err, &tr) {
		return tr.Transient()
	}

	var netErr net.Error
	var dnsErr *net.DNSError
	return errors.As(err, &netErr) || errors.As(err, &dnsErr)
}

// Do runs fn, retrying transient errors with exponential backoff until it
// succeeds, a permanent error occurs, attempts run out, or ctx is done.
func Do(ctx context.Context, name string, cfg Config, logger zerolog.Logger, fn func() error) error {
	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				logger.Info().Str("operation", name).Int("attempt", attempt).
					Msg("succeeded after retry")
			}
			return nil
		}
		lastErr = err

		if !IsTransient(err) {
			return err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		logger.Warn().Err(err).Str("operation", name).
			Int("attempt", attempt).Int("maxAttempts", cfg.MaxAttempts).
			Dur("nextRetryIn", delay).
			Msg("transient error, will retry")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	logger.Error().Err(lastErr).Str("operation", name).
		Int("attempts", cfg.MaxAttempts).
		Msg("gave up after retries")
	return lastErr
}
