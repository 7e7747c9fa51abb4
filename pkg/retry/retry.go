// Package retry provides bounded retries with exponential backoff for
// transient failures, configured through an explicit Policy value so
// retry behavior is visible at the call site instead of buried in a
// client.
package retry

import (
	"context"
	"log/slog"
	"time"
)

// Policy describes how an operation is retried. The zero value is not
// usable; construct policies from configuration.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// BaseDelay is the wait after the first failure; it doubles on
	// every subsequent failure.
	BaseDelay time.Duration

	// MaxDelay caps the backoff delay. Zero means no cap.
	MaxDelay time.Duration

	// Retryable reports whether an error is transient. A nil value
	// treats every error as transient.
	Retryable func(error) bool
}

// Do runs op until it succeeds, the policy is exhausted, op returns a
// non-transient error, or ctx is canceled. Returns the error from the
// last attempt, or ctx.Err() on cancellation.
func (p Policy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		// Check context before attempting
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = op()
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry",
					"attempt", attempt)
			}
			return nil
		}

		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}

		slog.Debug("operation failed, will retry",
			"attempt", attempt, "maxAttempts", attempts, "error", lastErr)

		// Don't sleep after the last attempt
		if attempt == attempts {
			break
		}

		delay := p.delay(attempt)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}

// delay computes the backoff before the next attempt:
// BaseDelay * 2^(attempt-1), capped at MaxDelay.
func (p Policy) delay(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}
