package llm

import (
	"context"
	"math/rand"
	"time"
)

// RetryConfig controls backoff for transient generation errors.
type RetryConfig struct {
	MaxRetries  int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	MaxJitter   time.Duration
}

// DefaultRetryConfig uses longer backoffs than a typical RPC retry since
// quota-based rate limits take time to recover.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:  3,
		BaseBackoff: 1 * time.Second,
		MaxBackoff:  30 * time.Second,
		MaxJitter:   500 * time.Millisecond,
	}
}

// withBackoff runs fn, retrying errors classified retryable by isRetryable
// with exponential backoff plus jitter. Context cancellation stops the loop.
func withBackoff[T any](ctx context.Context, cfg RetryConfig, isRetryable func(error) bool, fn func() (T, error)) (T, error) {
	var result T
	var lastErr error

	backoff := cfg.BaseBackoff
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, lastErr = fn()
		if lastErr == nil {
			return result, nil
		}
		if !isRetryable(lastErr) || attempt >= cfg.MaxRetries {
			return result, lastErr
		}

		wait := backoff
		if cfg.MaxJitter > 0 {
			wait += time.Duration(rand.Int63n(int64(cfg.MaxJitter)))
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(wait):
		}

		backoff *= 2
		if backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}
	return result, lastErr
}
