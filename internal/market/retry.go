package market

import (
	"context"
	"fmt"
	"time"
)

// SleepFunc pauses between retry attempts. Implementations must honor ctx
// so a shutdown never waits out a backoff.
type SleepFunc func(ctx context.Context, d time.Duration) error

// SleepContext is the production SleepFunc.
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Backoff returns the pause after a failed attempt. Attempts are 1-indexed,
// so the wait grows linearly: base, 2*base, 3*base, ...
func Backoff(base time.Duration, attempt int) time.Duration {
	return time.Duration(attempt) * base
}

// FetchError reports exhausted retries against the exchange. It carries the
// symbol and attempt count so callers can log with context.
type FetchError struct {
	Symbol   string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("market data for %s unavailable after %d attempts: %v", e.Symbol, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
