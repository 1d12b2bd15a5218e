package unifiedllm

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
)

// RetryPolicy controls RetryMiddleware. Delays grow by Multiplier from
// InitialDelay up to MaxDelay; with Jitter each delay is scaled by a random
// factor in [0.5, 1.5).
type RetryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool
	OnRetry      func(err error, attempt int, delay time.Duration)
}

// DefaultRetryPolicy returns a jittered 1s..60s doubling policy.
func DefaultRetryPolicy(maxRetries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries:   maxRetries,
		InitialDelay: time.Second,
		MaxDelay:     time.Minute,
		Multiplier:   2,
		Jitter:       true,
	}
}

// Delay returns the wait before retry number attempt (0-indexed).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := float64(p.InitialDelay)
	for i := 0; i < attempt && d < float64(p.MaxDelay); i++ {
		d *= p.Multiplier
	}
	if d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if p.Jitter {
		d *= 0.5 + rand.Float64()
	}
	return time.Duration(d)
}

// wait returns the delay before retrying err, or false when err must not be
// retried: it is not retryable, or the provider asked for a longer pause
// than MaxDelay.
func (p RetryPolicy) wait(err error, attempt int) (time.Duration, bool) {
	if !IsRetryable(err) {
		return 0, false
	}
	var rl *RateLimitError
	if errors.As(err, &rl) && rl.RetryAfter != nil {
		after := time.Duration(*rl.RetryAfter * float64(time.Second))
		return after, after <= p.MaxDelay
	}
	return p.Delay(attempt), true
}

// Retry calls fn until it succeeds, fails with a non-retryable error, or
// MaxRetries retries have been spent.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil || attempt >= policy.MaxRetries {
			return result, err
		}
		delay, ok := policy.wait(err, attempt)
		if !ok {
			return result, err
		}
		if policy.OnRetry != nil {
			policy.OnRetry(err, attempt+1, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			var zero T
			return zero, &AbortError{SDKError: SDKError{Message: "request cancelled during retry", Cause: ctx.Err()}}
		case <-timer.C:
		}
	}
}

// RetryMiddleware retries retryable provider failures. MaxRetries of zero
// makes it a pass-through; the agent loop itself never retries.
func RetryMiddleware(policy RetryPolicy) Middleware {
	if policy.OnRetry == nil {
		policy.OnRetry = func(err error, attempt int, delay time.Duration) {
			log.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("retrying llm request")
		}
	}
	return func(next HandlerFunc) HandlerFunc {
		if policy.MaxRetries <= 0 {
			return next
		}
		return func(ctx context.Context, req Request) (*Response, error) {
			return Retry(ctx, policy, func(ctx context.Context) (*Response, error) {
				return next(ctx, req)
			})
		}
	}
}
