package chain

import (
	"context"
	"time"
)

const (
	baseDelay = 500 * time.Millisecond
	maxDelay  = 30 * time.Second
)

// Backoff returns the delay before the given retry attempt:
// baseDelay * 2^attempt, capped at maxDelay. Negative attempts get baseDelay.
func Backoff(attempt int) time.Duration {
	if attempt < 0 {
		return baseDelay
	}

	// 2^26 * 500ms already exceeds maxDelay by far; cap early to avoid
	// shift overflow.
	if attempt > 26 {
		return maxDelay
	}

	delay := baseDelay * time.Duration(1<<attempt)
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

// Retry runs op up to attempts times, waiting Backoff between tries. A
// non-nil terminal check aborts immediately on errors that will not go away
// with retrying. The last error is returned when all attempts fail.
func Retry(ctx context.Context, attempts int, terminal func(error) bool, op func() error) error {
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(Backoff(attempt - 1)):
			}
		}
		if err = op(); err == nil {
			return nil
		}
		if terminal != nil && terminal(err) {
			return err
		}
	}
	return err
}
