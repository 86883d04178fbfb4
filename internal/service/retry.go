package service

import (
	"context"
	"time"

	"github.com/Rawann0m/EcoNest-sub000/internal/models"
)

const (
	writeTimeout  = 5 * time.Second
	maxAttempts   = 3
	retryBaseWait = 100 * time.Millisecond
)

// withRetry runs a store write with a bounded deadline and retries
// transient failures with exponential backoff. Permanent failures
// (duplicates, permission, not found) surface immediately.
func withRetry(ctx context.Context, op func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			wait := retryBaseWait << (attempt - 1)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, writeTimeout)
		err = op(attemptCtx)
		cancel()

		if err == nil {
			return nil
		}
		if !models.IsRetryable(err) {
			return err
		}
	}
	return err
}
