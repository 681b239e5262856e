package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noSleep records requested delays without waiting.
func noSleep(slept *[]time.Duration) Sleeper {
	return func(ctx context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return ctx.Err()
	}
}

func TestDoVal_SucceedsAfterKFailures(t *testing.T) {
	var slept []time.Duration
	calls := 0
	transient := NewTransientError(errors.New("503 from upstream"), 503)

	val, err := DoVal(context.Background(), RetryConfig{
		MaxAttempts: 5,
		Delay:       10 * time.Second,
		Sleep:       noSleep(&slept),
	}, func(ctx context.Context) (string, error) {
		calls++
		if calls <= 2 {
			return "", transient
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", val)
	assert.Equal(t, 3, calls, "k failures then success: exactly k+1 calls")
	assert.Equal(t, []time.Duration{10 * time.Second, 10 * time.Second}, slept)
}

func TestDoVal_ExhaustsAttempts(t *testing.T) {
	var slept []time.Duration
	calls := 0
	transient := NewTransientError(errors.New("timeout"), 0)

	_, err := DoVal(context.Background(), RetryConfig{
		MaxAttempts: 3,
		Delay:       time.Second,
		Sleep:       noSleep(&slept),
	}, func(ctx context.Context) (string, error) {
		calls++
		return "", transient
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls, "exactly N calls on exhaustion")
	assert.Len(t, slept, 2, "no sleep after the last attempt")
}

func TestDoVal_PermanentErrorStopsImmediately(t *testing.T) {
	calls := 0
	permanent := errors.New("project_id not configured")

	_, err := DoVal(context.Background(), RetryConfig{MaxAttempts: 4, Sleep: noSleep(new([]time.Duration))},
		func(ctx context.Context) (int, error) {
			calls++
			return 0, permanent
		})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDoVal_ContextCancelStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	_, err := DoVal(ctx, RetryConfig{MaxAttempts: 5, Delay: time.Second, Sleep: SleepWithContext},
		func(ctx context.Context) (int, error) {
			calls++
			cancel()
			return 0, NewTransientError(errors.New("reset"), 0)
		})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(errors.New("invalid config")))
	assert.True(t, IsTransient(NewTransientError(errors.New("x"), 429)))
	assert.True(t, IsTransient(errors.New("read tcp: connection reset by peer")))
	assert.True(t, IsTransient(errors.New("rpc error: the model is overloaded")))
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 400, 401, 403, 404} {
		assert.False(t, IsTransientHTTPStatus(code), "status %d", code)
	}
}
