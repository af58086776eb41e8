// Package retry implements the combinator from spec section 4.4: any
// outbound call that can fail with a rate-limit-style "retry after N
// seconds" or a timeout is retried up to a fixed attempt count, with an
// upward FloodControlIssues-style event emitted on every throttle. Grounded
// in the teacher's internal/api.Client, which pairs retryablehttp with an
// x/time/rate limiter for the same outbound-call shape.
package retry

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Default attempt ceilings and inter-attempt buffers, per spec section 4.4.
const (
	MaxFloodRetries   = 4
	MaxTimeoutRetries = 4

	DefaultFloodBuffer   = time.Second
	DefaultTimeoutBuffer = time.Second
)

// RetryAfterError is returned by an op to signal a rate-limit style
// throttle: retry after the given delay.
type RetryAfterError struct {
	Delay time.Duration
}

func (e *RetryAfterError) Error() string {
	return "retry after " + e.Delay.String()
}

// TimeoutError is returned by an op to signal a plain timeout, distinct
// from a server-specified retry delay.
type TimeoutError struct {
	Err error
}

func (e *TimeoutError) Error() string { return "timeout: " + e.Err.Error() }
func (e *TimeoutError) Unwrap() error { return e.Err }

// Policy tunes the retry loop's limits and buffers. Zero value uses the
// package defaults.
type Policy struct {
	MaxFloodRetries   int
	MaxTimeoutRetries int
	FloodBuffer       time.Duration
	TimeoutBuffer     time.Duration
	// OnFloodControl is invoked with the server-given delay every time a
	// RetryAfterError is observed — the hook through which the worker
	// emits an upward FloodControlIssues event to the supervisor.
	OnFloodControl func(delay time.Duration)
	// Limiter, if set, is waited on before every attempt (including the
	// first) — the same pairing the teacher's internal/api.Client makes
	// between retryablehttp's connection-level retries and a
	// golang.org/x/time/rate token bucket for the outbound call's own
	// steady-state pacing, independent of server-signalled throttling.
	Limiter *rate.Limiter
}

func (p Policy) withDefaults() Policy {
	if p.MaxFloodRetries == 0 {
		p.MaxFloodRetries = MaxFloodRetries
	}
	if p.MaxTimeoutRetries == 0 {
		p.MaxTimeoutRetries = MaxTimeoutRetries
	}
	if p.FloodBuffer == 0 {
		p.FloodBuffer = DefaultFloodBuffer
	}
	if p.TimeoutBuffer == 0 {
		p.TimeoutBuffer = DefaultTimeoutBuffer
	}
	return p
}

var recoveryCounter atomic.Int64

// nextRecoveryID returns a monotonic id attached to each retry attempt so
// operators can trace one outbound failure across its retries in the logs.
func nextRecoveryID() int64 {
	return recoveryCounter.Add(1)
}

// Do runs op, retrying on RetryAfterError and TimeoutError up to the
// policy's limits. The final attempt's error (if any) always escapes,
// matching spec section 4.4's "final attempt, exception escapes."
func Do[T any](ctx context.Context, policy Policy, op func(ctx context.Context) (T, error)) (T, error) {
	policy = policy.withDefaults()

	floodAttempts, timeoutAttempts := 0, 0

	for {
		if policy.Limiter != nil {
			if err := policy.Limiter.Wait(ctx); err != nil {
				var zero T
				return zero, err
			}
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		var rateErr *RetryAfterError
		var timeoutErr *TimeoutError

		switch {
		case errors.As(err, &rateErr):
			floodAttempts++
			if floodAttempts > policy.MaxFloodRetries {
				return result, err
			}
			recoveryID := nextRecoveryID()
			log.Printf("[RETRY] recovery #%d: flood control, retrying after %v (attempt %d/%d)",
				recoveryID, rateErr.Delay, floodAttempts, policy.MaxFloodRetries)
			if policy.OnFloodControl != nil {
				policy.OnFloodControl(rateErr.Delay)
			}
			if waitErr := sleep(ctx, rateErr.Delay+policy.FloodBuffer); waitErr != nil {
				return result, waitErr
			}

		case errors.As(err, &timeoutErr):
			timeoutAttempts++
			if timeoutAttempts > policy.MaxTimeoutRetries {
				return result, err
			}
			recoveryID := nextRecoveryID()
			log.Printf("[RETRY] recovery #%d: timeout, retrying (attempt %d/%d)",
				recoveryID, timeoutAttempts, policy.MaxTimeoutRetries)
			if waitErr := sleep(ctx, policy.TimeoutBuffer); waitErr != nil {
				return result, waitErr
			}

		default:
			return result, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
