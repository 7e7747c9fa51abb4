package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/medtext/omoplink/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSucceedsFirstTry(t *testing.T) {
	p := retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	var calls int
	err := p.Do(context.Background(), func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesTransientFailure(t *testing.T) {
	p := retry.Policy{MaxAttempts: 5, BaseDelay: time.Millisecond}

	var calls int
	err := p.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	p := retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}
	boom := errors.New("boom")

	var calls int
	err := p.Do(context.Background(), func() error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("bad request")
	p := retry.Policy{
		MaxAttempts: 5,
		BaseDelay:   time.Millisecond,
		Retryable: func(err error) bool {
			return !errors.Is(err, permanent)
		},
	}

	var calls int
	err := p.Do(context.Background(), func() error {
		calls++
		return permanent
	})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls, "permanent errors are not retried")
}

func TestDoHonorsContextCancellation(t *testing.T) {
	p := retry.Policy{MaxAttempts: 10, BaseDelay: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- p.Do(ctx, func() error {
			return errors.New("transient")
		})
	}()

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}

func TestDoCanceledBeforeStart(t *testing.T) {
	p := retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int
	err := p.Do(ctx, func() error {
		calls++
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls, "operation never runs on a dead context")
}

func TestDoZeroAttemptsRunsOnce(t *testing.T) {
	p := retry.Policy{}

	var calls int
	err := p.Do(context.Background(), func() error {
		calls++
		return errors.New("boom")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
