package db

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"
)

const (
	// DefaultTxMaxAttempts bounds how often a conflicted transaction re-runs.
	DefaultTxMaxAttempts = 3

	retryBaseBackoff = 25 * time.Millisecond
)

// RetryTx runs fn inside a transaction, re-running the whole unit of work on
// transient store failures up to maxAttempts times. Only errors that
// IsRetryableError classifies as transient by SQLSTATE are retried; anything
// else, business-rule rejections and permanent store failures alike,
// propagates immediately. The last error is returned unchanged once attempts
// are exhausted.
func (c *Client) RetryTx(ctx context.Context, maxAttempts int, fn func(tx *gorm.DB) error) error {
	if maxAttempts <= 0 {
		maxAttempts = DefaultTxMaxAttempts
	}

	backoff := retry.WithMaxRetries(uint64(maxAttempts-1), retry.NewExponential(retryBaseBackoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.WithTx(ctx, fn)
		if err == nil {
			return nil
		}
		if IsRetryableError(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
