package resilience_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tekinformatica/painel-go/internal/infra/resilience"
)

var errBackend = errors.New("supabase: 503 service unavailable")

// failing returns fn that fails the first n calls and counts every call.
func failing(n int, calls *int) func() error {
	return func() error {
		*calls++
		if *calls <= n {
			return errBackend
		}
		return nil
	}
}

func TestRetryWithBackoff_Attempts(t *testing.T) {
	cases := []struct {
		name      string
		cfg       resilience.Config
		failures  int
		wantCalls int
		wantErr   bool
	}{
		{"first try", resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond}, 0, 1, false},
		{"recovers on last retry", resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond}, 2, 3, false},
		{"gives up", resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond}, 10, 3, true},
		{"zero backoff still retries", resilience.Config{MaxRetries: 2}, 10, 3, true},
		{"mutation runs once", resilience.Config{MaxRetries: 3, InitialBackoff: time.Millisecond}.NoRetry(), 10, 1, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			err := resilience.RetryWithBackoff(context.Background(), tc.cfg, failing(tc.failures, &calls))
			if tc.wantErr {
				assert.ErrorIs(t, err, errBackend)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.wantCalls, calls)
		})
	}
}

func TestRetryWithBackoff_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := resilience.RetryWithBackoff(ctx, resilience.Config{MaxRetries: 5, InitialBackoff: time.Second}, failing(10, &calls))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestRetryWithBackoff_PermanentStopsImmediately(t *testing.T) {
	conflict := errors.New("duplicate key value violates unique constraint")

	calls := 0
	err := resilience.RetryWithBackoff(context.Background(), resilience.Config{MaxRetries: 5, InitialBackoff: time.Millisecond}, func() error {
		calls++
		return resilience.Permanent(conflict)
	})

	assert.ErrorIs(t, err, conflict)
	assert.True(t, resilience.IsPermanent(err))
	assert.Equal(t, 1, calls)
	assert.NoError(t, resilience.Permanent(nil))
}

func TestBulkhead_LimitsConcurrentCalls(t *testing.T) {
	bh := resilience.NewBulkhead(2)
	ctx := context.Background()

	require.NoError(t, bh.Acquire(ctx))
	require.NoError(t, bh.Acquire(ctx))
	assert.Equal(t, 2, bh.InUse())

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, bh.Acquire(waitCtx), context.DeadlineExceeded)

	bh.Release()
	assert.Equal(t, 1, bh.InUse())
	require.NoError(t, bh.Acquire(ctx))
	assert.Equal(t, 2, bh.InUse())
}

func TestCircuitBreaker_TripsAfterFiveFailures(t *testing.T) {
	var opened atomic.Int32
	cb := resilience.NewCircuitBreaker("supabase", func(name string, _, to gobreaker.State) {
		if name == "supabase" && to == gobreaker.StateOpen {
			opened.Add(1)
		}
	})

	for i := 0; i < 4; i++ {
		_, _ = cb.Execute(func() (any, error) { return nil, errBackend })
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State(), "four failures stay below the request threshold")

	_, _ = cb.Execute(func() (any, error) { return nil, errBackend })
	assert.Equal(t, gobreaker.StateOpen, cb.State())
	assert.Equal(t, int32(1), opened.Load())

	called := false
	_, err := cb.Execute(func() (any, error) { called = true; return nil, nil })
	assert.True(t, resilience.IsOpen(err))
	assert.False(t, called)
}

func TestCircuitBreaker_ClientErrorsAndCancelsCountAsSuccess(t *testing.T) {
	cb := resilience.NewCircuitBreaker("supabase", nil)

	for i := 0; i < 10; i++ {
		_, _ = cb.Execute(func() (any, error) {
			return nil, resilience.Permanent(errors.New("422 invalid input value for enum"))
		})
		_, _ = cb.Execute(func() (any, error) { return nil, context.Canceled })
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
	assert.False(t, resilience.IsOpen(errBackend))
}
