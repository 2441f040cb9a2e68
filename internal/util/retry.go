// ABOUTME: Retry helpers with capped exponential backoff and jitter
// ABOUTME: Used for embedding requests; completions are never retried
package util

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// DefaultMaxDelay caps a single backoff wait
const DefaultMaxDelay = 30 * time.Second

// Policy bounds a retry loop
type Policy struct {
	MaxRetries int           // retries after the first attempt
	BaseDelay  time.Duration // doubled each attempt
	MaxDelay   time.Duration // zero means DefaultMaxDelay
}

// CalculateBackoff returns exponential backoff with jitter: base * 2^attempt
// capped at DefaultMaxDelay, then moved by up to 25% either way
func CalculateBackoff(baseDelay time.Duration, attempt int) time.Duration {
	return Policy{BaseDelay: baseDelay}.Backoff(attempt)
}

// Backoff returns the wait before the given attempt; attempt 0 waits nothing
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt <= 0 || p.BaseDelay <= 0 {
		return 0
	}
	if attempt > 30 {
		attempt = 30
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}
	backoff := p.BaseDelay * time.Duration(1<<uint(attempt))
	if backoff > maxDelay || backoff <= 0 {
		backoff = maxDelay
	}
	jitter := time.Duration(rand.Int64N(int64(backoff)/2+1)) - backoff/4
	return backoff + jitter
}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err so Retry returns it without further attempts
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retry calls fn until it succeeds, returns a Permanent error, the
// policy's retries run out or ctx ends. The last error is returned with
// any Permanent marker removed.
func Retry(ctx context.Context, p Policy, fn func(attempt int) error) error {
	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(p.Backoff(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				if lastErr != nil {
					return lastErr
				}
				return ctx.Err()
			case <-timer.C:
			}
		}

		err := fn(attempt)
		if err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		lastErr = err
	}
	return lastErr
}
