package sdk

import (
	"context"
	"time"

	"github.com/clintfred/ironoxide/internal/common"
	"github.com/sethvargo/go-retry"
)

const (
	conflictRetryBase = 25 * time.Millisecond
	conflictRetries   = 4
)

// withConflictRetry re-runs fn with capped exponential backoff while it
// fails with a retryable storage error. The last error is returned unchanged
// once attempts are exhausted.
func withConflictRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(conflictRetries, retry.NewExponential(conflictRetryBase))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if common.Retryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
