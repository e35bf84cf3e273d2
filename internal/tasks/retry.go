package tasks

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy bounds how often and how patiently an operation is retried.
//
// A Multiplier of 1 or less keeps the delay fixed; larger values grow it after every failed attempt.
type RetryPolicy struct {
	Attempts   int
	Delay      time.Duration
	Multiplier float64
}

// RetryResult reports the outcome of [RetryPolicy.Do].
type RetryResult struct {
	Attempts int
	Err      error // last error, nil on success
	Elapsed  time.Duration
}

// Succeeded reports whether the final attempt returned nil.
func (r RetryResult) Succeeded() bool { return r.Err == nil }

func (p RetryPolicy) attempts() int {
	if p.Attempts < 1 {
		return 1
	}
	return p.Attempts
}

// Do calls fn until it succeeds or the attempts run out, sleeping between attempts but not after the last.
//
// A panic inside fn is converted into an error for that attempt. Context cancellation stops the
// sequence early and is reported as the result error.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) RetryResult {
	start := time.Now()
	delay := p.Delay
	var res RetryResult

	for i := 1; i <= p.attempts(); i++ {
		res.Attempts = i
		res.Err = safeCall(ctx, fn)
		if res.Err == nil {
			break
		}
		if i == p.attempts() {
			break
		}

		if err := sleepCtx(ctx, delay); err != nil {
			res.Err = fmt.Errorf("retry aborted after %d attempts: %w", i, err)
			break
		}
		if p.Multiplier > 1 {
			delay = time.Duration(float64(delay) * p.Multiplier)
		}
	}

	res.Elapsed = time.Since(start)
	return res
}

func safeCall(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
