// Package retry runs storage operations with a bounded number of attempts
// and a linearly increasing delay between them.
package retry

import (
	"context"
	"time"

	"github.com/equihome/launchpad/internal/pkg/logger"
)

// Policy bounds a retry loop. Attempts counts the first try, so Attempts=3
// means one call plus at most two retries. The wait before retry n is
// Delay*n.
type Policy struct {
	Attempts  int
	Delay     time.Duration
	Retryable func(error) bool
}

// Default is three attempts with 100ms, then 200ms between them.
var Default = Policy{Attempts: 3, Delay: 100 * time.Millisecond}

func (p Policy) attempts() int {
	if p.Attempts <= 0 {
		return 1
	}
	return p.Attempts
}

func (p Policy) retryable(err error) bool {
	if p.Retryable == nil {
		return true
	}
	return p.Retryable(err)
}

// Do calls fn until it succeeds, returns a non-retryable error, the attempts
// are exhausted, or ctx is done. The last error is returned unchanged so
// callers can still classify it with errors.Is.
func Do(ctx context.Context, p Policy, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	max := p.attempts()

	for attempt := 1; attempt <= max; attempt++ {
		if attempt > 1 {
			delay := p.Delay * time.Duration(attempt-1)
			logger.Warn("retrying operation", "op", op, "attempt", attempt, "of", max, "wait", delay, "error", lastErr)

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return lastErr
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !p.retryable(lastErr) || ctx.Err() != nil {
			return lastErr
		}
	}

	logger.Error("operation failed after retries", "op", op, "attempts", max, "error", lastErr)
	return lastErr
}
