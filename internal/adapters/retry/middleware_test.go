package retry

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockalert/pkg/errors"
)

func newTestMiddleware(cfg Config) (*Middleware, *[]time.Duration) {
	m := New(cfg)
	var slept []time.Duration
	m.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	return m, &slept
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	m, slept := newTestMiddleware(Config{MaxAttempts: 3, InitialDelay: 30 * time.Second, Strategy: StrategyFixed})

	calls := 0
	err := m.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.ErrPriceUnavailable
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{30 * time.Second, 30 * time.Second}, *slept)
}

func TestDo_GivesUpAfterMaxAttempts(t *testing.T) {
	m, slept := newTestMiddleware(Config{MaxAttempts: 3, InitialDelay: time.Second})

	calls := 0
	err := m.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.ErrPriceUnavailable
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrPriceUnavailable))
	assert.Equal(t, 3, calls)
	assert.Len(t, *slept, 2, "no sleep after the last attempt")
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	m, slept := newTestMiddleware(Config{MaxAttempts: 5, InitialDelay: time.Second})

	calls := 0
	err := m.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return &StatusError{Code: http.StatusNotFound, URL: "https://example.com"}
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *slept)
}

func TestDo_CancelledContext(t *testing.T) {
	m, _ := newTestMiddleware(Config{MaxAttempts: 5, InitialDelay: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := m.Do(ctx, func(ctx context.Context) error {
		calls++
		return errors.ErrPriceUnavailable
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_OnRetryHook(t *testing.T) {
	var attempts []int
	m, _ := newTestMiddleware(Config{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			attempts = append(attempts, attempt)
		},
	})

	_ = m.Do(context.Background(), func(ctx context.Context) error { return errors.ErrPriceUnavailable })
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestCalculateDelay(t *testing.T) {
	exp := New(Config{InitialDelay: time.Second, MaxDelay: 5 * time.Second, Strategy: StrategyExponential, Multiplier: 2})
	assert.Equal(t, time.Second, exp.calculateDelay(0))
	assert.Equal(t, 4*time.Second, exp.calculateDelay(2))
	assert.Equal(t, 5*time.Second, exp.calculateDelay(5), "capped at MaxDelay")

	lin := New(Config{InitialDelay: time.Second, Strategy: StrategyLinear})
	assert.Equal(t, 3*time.Second, lin.calculateDelay(2))

	fixed := New(Config{InitialDelay: 30 * time.Second})
	assert.Equal(t, 30*time.Second, fixed.calculateDelay(4))
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.True(t, IsRetryable(errors.Wrap(errors.ErrPriceUnavailable, "scrape")))
	assert.True(t, IsRetryable(&StatusError{Code: http.StatusServiceUnavailable}))
	assert.True(t, IsRetryable(&StatusError{Code: http.StatusTooManyRequests}))
	assert.False(t, IsRetryable(&StatusError{Code: http.StatusForbidden}))
	assert.False(t, IsRetryable(errors.New("bad template")))
}
