package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Retry calls fn until it succeeds, attempts are exhausted or ctx is done.
// It is used for connecting to optional infrastructure at startup; calls to
// the resource APIs are never retried.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			slog.InfoContext(ctx, "Retrying...", "attempt", i+1, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err = fn()
		if err == nil {
			return nil
		}
	}
	return fmt.Errorf("after %d attempts, last error: %w", attempts, err)
}
