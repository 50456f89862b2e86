// Package retry provides a bounded attempt/interval policy shared by the
// download retry loop and the tag convergence poll.
package retry

import (
	"context"
	"time"
)

// Policy describes a bounded retry loop: a total number of attempts and a
// fixed interval slept between them. The zero value performs one attempt
// with no sleep.
type Policy struct {
	// Attempts is the total number of tries, including the first one.
	Attempts int
	// Interval is slept between consecutive attempts.
	Interval time.Duration
	// Sleep overrides time.Sleep, used by tests to avoid real waiting.
	Sleep func(time.Duration)
}

// Do runs fn until it succeeds, the attempt budget is exhausted, or the
// context is cancelled. A non-nil retryable predicate limits which errors
// are retried; any other error aborts the loop immediately. The error of
// the final attempt is returned.
func (p Policy) Do(ctx context.Context, retryable func(error) bool, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if p.Interval > 0 {
				sleep(p.Interval)
			}
		}

		if err = fn(); err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
	}

	return err
}
