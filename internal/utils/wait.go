package utils

import (
	"context"
	"time"
)

// WaitUntil polls cond every interval until it holds or ctx is done.
func WaitUntil(ctx context.Context, interval time.Duration, cond func() bool) error {
	if cond() {
		return nil
	}
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if cond() {
				return nil
			}
		}
	}
}
