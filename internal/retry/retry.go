// Package retry implements the bounded retry-with-backoff coordinator shared
// by quote acquisition and bundle submission.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/hxuan190/snipe-engine/internal/common"
)

// Policy bounds one Do call. Delays are BaseDelay * 2^(attempt-1) when
// ExponentialBackoff is set, a flat BaseDelay otherwise.
type Policy struct {
	MaxAttempts        int
	BaseDelay          time.Duration
	ExponentialBackoff bool

	// ShouldRetry inspects the failed attempt's error. Nil means: retry
	// retryable TradeErrors only.
	ShouldRetry func(err error) bool
}

// DefaultPolicy matches the quote layer's defaults.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:        3,
		BaseDelay:          200 * time.Millisecond,
		ExponentialBackoff: true,
	}
}

func (p Policy) shouldRetry(err error) bool {
	if p.ShouldRetry != nil {
		return p.ShouldRetry(err)
	}
	return common.IsRetryable(err)
}

// Delay returns the sleep before attempt+1, with attempt counted from 1.
func (p Policy) Delay(attempt int) time.Duration {
	if !p.ExponentialBackoff {
		return p.BaseDelay
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}

// Do runs op up to MaxAttempts times and returns the last result, success or
// failure, without raising. A panic inside op is recovered on every attempt
// except the last and treated as a retryable failure if the policy agrees; a
// panic on the final attempt propagates so top-level handlers see the real
// cause. Callers that deliberately re-raise depend on that asymmetry.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var last T
	var lastErr error

	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		isLast := attempt == p.MaxAttempts

		val, err, panicked, panicVal := runAttempt(ctx, op, !isLast)
		if panicked {
			perr := common.UnknownError(fmt.Sprintf("operation panicked: %v", panicVal))
			perr.Retryable = true
			if !p.shouldRetry(perr) {
				// The policy refuses to absorb it; surface the original cause.
				panic(panicVal)
			}
			lastErr = perr
		} else {
			last, lastErr = val, err
			if err == nil {
				return last, nil
			}
			if !p.shouldRetry(err) {
				return last, lastErr
			}
		}

		if isLast {
			break
		}
		if serr := sleep(ctx, p.Delay(attempt)); serr != nil {
			return last, serr
		}
	}

	return last, lastErr
}

// runAttempt executes one attempt. When recoverPanic is false the attempt's
// panic escapes to the caller untouched.
func runAttempt[T any](ctx context.Context, op func(ctx context.Context) (T, error), recoverPanic bool) (val T, err error, panicked bool, panicVal any) {
	if recoverPanic {
		defer func() {
			if r := recover(); r != nil {
				panicked = true
				panicVal = r
			}
		}()
	}
	val, err = op(ctx)
	return
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
