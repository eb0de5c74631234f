package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), fastRetry(3), func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesTransientUntilSuccess(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), fastRetry(3), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return NewTransientError(eris.New("flaky"), 503)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsBudget(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), fastRetry(3), func(ctx context.Context) error {
		calls++
		return NewTransientError(eris.New("still down"), 503)
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.NotErrorIs(t, err, ErrAborted)
}

func TestDo_PermanentFailsImmediately(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), fastRetry(5), func(ctx context.Context) error {
		calls++
		return NewPermanentError(eris.New("forbidden"))
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, IsPermanent(err))
}

func TestDo_PermanentWrappingTransientIsNotRetried(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), fastRetry(5), func(ctx context.Context) error {
		calls++
		return NewPermanentError(NewTransientError(eris.New("mixed chain"), 500))
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_CancellationReturnsErrAborted(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	cfg := RetryConfig{
		MaxAttempts:    5,
		InitialBackoff: time.Hour,
		Multiplier:     2.0,
	}

	calls := 0
	errCh := make(chan error, 1)
	go func() {
		errCh <- Do(ctx, cfg, func(ctx context.Context) error {
			calls++
			return NewTransientError(eris.New("slow outage"), 503)
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrAborted)
		assert.Equal(t, 1, calls)
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return promptly after cancellation")
	}
}

func TestDo_OnRetryCallback(t *testing.T) {
	t.Parallel()

	var attempts []int
	cfg := fastRetry(3)
	cfg.OnRetry = func(attempt int, err error) {
		attempts = append(attempts, attempt)
	}

	_ = Do(context.Background(), cfg, func(ctx context.Context) error {
		return NewTransientError(eris.New("down"), 502)
	})

	// Two sleeps for three attempts; no callback after the final failure.
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestDoVal_ReturnsValue(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := DoVal(context.Background(), fastRetry(3), func(ctx context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", NewTransientError(eris.New("flaky"), 503)
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestDoVal_ZeroValueOnFailure(t *testing.T) {
	t.Parallel()

	got, err := DoVal(context.Background(), fastRetry(2), func(ctx context.Context) (int, error) {
		return 42, NewTransientError(eris.New("down"), 503)
	})

	require.Error(t, err)
	assert.Zero(t, got)
}

func TestComputeBackoffDoublesAndCaps(t *testing.T) {
	t.Parallel()

	cfg := RetryConfig{
		InitialBackoff: time.Second,
		MaxBackoff:     4 * time.Second,
		Multiplier:     2.0,
	}

	assert.Equal(t, time.Second, computeBackoff(0, cfg))
	assert.Equal(t, 2*time.Second, computeBackoff(1, cfg))
	assert.Equal(t, 4*time.Second, computeBackoff(2, cfg))
	assert.Equal(t, 4*time.Second, computeBackoff(3, cfg))
}

func TestComputeBackoffJitterStaysNonNegative(t *testing.T) {
	t.Parallel()

	cfg := RetryConfig{
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Second,
		Multiplier:     2.0,
		JitterFraction: 1.0,
	}

	for i := 0; i < 100; i++ {
		assert.GreaterOrEqual(t, computeBackoff(0, cfg), time.Duration(0))
	}
}
