package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordingPolicy(delays *[]time.Duration) Policy {
	p := DefaultPolicy()
	p.Sleep = func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
	return p
}

func TestDoSucceedsOnThirdAttempt(t *testing.T) {
	var delays []time.Duration
	calls := 0

	got, err := Do(context.Background(), recordingPolicy(&delays), "test", func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
}

func TestDoReturnsLastError(t *testing.T) {
	var delays []time.Duration
	calls := 0

	_, err := Do(context.Background(), recordingPolicy(&delays), "test", func(context.Context) (int, error) {
		calls++
		return 0, errors.New("failure " + string(rune('0'+calls)))
	})

	require.Error(t, err)
	assert.Equal(t, "failure 3", err.Error())
	assert.Equal(t, 3, calls)
	assert.Len(t, delays, 2, "no delay after the final attempt")
}

func TestDoFirstAttemptSuccessDoesNotSleep(t *testing.T) {
	var delays []time.Duration

	_, err := Do(context.Background(), recordingPolicy(&delays), "test", func(context.Context) (int, error) {
		return 1, nil
	})

	require.NoError(t, err)
	assert.Empty(t, delays)
}

func TestDoReportsEveryAttempt(t *testing.T) {
	var delays []time.Duration
	var outcomes []bool
	p := recordingPolicy(&delays)
	p.OnAttempt = func(_ int, err error) { outcomes = append(outcomes, err == nil) }

	calls := 0
	_, err := Do(context.Background(), p, "test", func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("boom")
		}
		return 1, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []bool{false, true}, outcomes)
}

func TestDoAppliesAttemptTimeout(t *testing.T) {
	var delays []time.Duration
	p := recordingPolicy(&delays)
	p.Attempts = 1
	p.AttemptTimeout = 10 * time.Millisecond

	_, err := Do(context.Background(), p, "test", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDoStopsWhenContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := DefaultPolicy()
	calls := 0
	_, err := Do(ctx, p, "test", func(context.Context) (int, error) {
		calls++
		return 0, errors.New("boom")
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoff(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, time.Second, p.Backoff(0))
	assert.Equal(t, 2*time.Second, p.Backoff(1))
	assert.Equal(t, 4*time.Second, p.Backoff(2))
}
