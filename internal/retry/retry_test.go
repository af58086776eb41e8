package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
	"pgregory.net/rapid"
)

func TestDo_SucceedsWithoutRetry(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), Policy{}, func(ctx context.Context) (int, error) {
		calls++
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesFloodControlThenSucceeds(t *testing.T) {
	var notified time.Duration
	calls := 0
	policy := Policy{
		FloodBuffer: time.Millisecond,
		OnFloodControl: func(d time.Duration) {
			notified = d
		},
	}
	result, err := Do(context.Background(), policy, func(ctx context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", &RetryAfterError{Delay: time.Millisecond}
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 2, calls)
	assert.Equal(t, time.Millisecond, notified)
}

func TestDo_FinalAttemptErrorEscapes(t *testing.T) {
	policy := Policy{MaxFloodRetries: 2, FloodBuffer: time.Millisecond}
	calls := 0
	_, err := Do(context.Background(), policy, func(ctx context.Context) (int, error) {
		calls++
		return 0, &RetryAfterError{Delay: time.Millisecond}
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls) // 1 initial + 2 retries, then escapes
}

func TestDo_NonRetryableErrorEscapesImmediately(t *testing.T) {
	sentinel := errors.New("boom")
	calls := 0
	_, err := Do(context.Background(), Policy{}, func(ctx context.Context) (int, error) {
		calls++
		return 0, sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls)
}

func TestDo_CancellationDuringWaitEscapes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	policy := Policy{FloodBuffer: time.Hour}
	_, err := Do(ctx, policy, func(ctx context.Context) (int, error) {
		return 0, &RetryAfterError{Delay: time.Hour}
	})
	require.Error(t, err)
}

func TestDo_LimiterPacesEveryAttemptIncludingFirst(t *testing.T) {
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1) // one token up front, then effectively none
	waited := 0
	calls := 0
	policy := Policy{Limiter: limiter}
	_, err := Do(context.Background(), policy, func(ctx context.Context) (int, error) {
		calls++
		if limiter.Tokens() < 1 { // Wait already took the only token before this attempt
			waited++
		}
		return 0, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, waited)
}

func TestDo_LimiterCancellationEscapes(t *testing.T) {
	limiter := rate.NewLimiter(rate.Limit(0), 0) // Wait never succeeds: no tokens, never refills
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	policy := Policy{Limiter: limiter}
	calls := 0
	_, err := Do(ctx, policy, func(ctx context.Context) (int, error) {
		calls++
		return 0, nil
	})
	assert.Error(t, err)
	assert.Equal(t, 0, calls, "op must not run when the limiter wait fails")
}

// TestDo_EventuallyTerminates is a property test: for any number of
// flood-control failures up to the configured ceiling, Do eventually
// returns — either with the op's success or with the final error, never
// looping past MaxFloodRetries+1 attempts.
func TestDo_EventuallyTerminates(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		maxRetries := rapid.IntRange(0, 5).Draw(rt, "maxRetries")
		failCount := rapid.IntRange(0, 10).Draw(rt, "failCount")

		calls := 0
		policy := Policy{MaxFloodRetries: maxRetries, FloodBuffer: time.Microsecond}
		_, err := Do(context.Background(), policy, func(ctx context.Context) (int, error) {
			calls++
			if calls <= failCount {
				return 0, &RetryAfterError{Delay: time.Microsecond}
			}
			return 0, nil
		})

		effective := maxRetries
		if effective == 0 {
			effective = MaxFloodRetries // a zero Policy field falls back to the package default
		}

		if failCount <= effective {
			assert.NoError(t, err)
		} else {
			assert.Error(t, err)
			assert.Equal(t, effective+1, calls)
		}
	})
}
