package probe

import (
	"context"
	"fmt"
	"time"
)

// RetryProber retries the inner prober's UnreadCount with a fixed backoff.
// Validate is not retried; a failed login is reported at once.
type RetryProber struct {
	Inner    Prober
	Attempts int
	Backoff  time.Duration
}

func (r *RetryProber) Validate(ctx context.Context) error {
	return r.Inner.Validate(ctx)
}

func (r *RetryProber) UnreadCount(ctx context.Context) (uint, error) {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		n, err := r.Inner.UnreadCount(ctx)
		if err == nil {
			return n, nil
		}
		lastErr = err
		if IsAuthError(err) {
			break
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(r.Backoff):
			}
		}
	}
	return 0, fmt.Errorf("unread count after %d attempts: %w", attempts, lastErr)
}
