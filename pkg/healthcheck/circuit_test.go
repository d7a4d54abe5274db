// Package healthcheck circuit breaker tests
package healthcheck

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("operation failed")

func testBreaker(clock *time.Time) *CircuitBreaker {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Timeout:          10 * time.Second,
		MaxRequests:      1,
	})
	cb.now = func() time.Time { return *clock }
	return cb
}

func fail(context.Context) error    { return errBoom }
func succeed(context.Context) error { return nil }

func TestNewCircuitBreaker_DefaultValues(t *testing.T) {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{})

	assert.Equal(t, 5, cb.config.FailureThreshold)
	assert.Equal(t, 2, cb.config.SuccessThreshold)
	assert.Equal(t, 30*time.Second, cb.config.Timeout)
	assert.Equal(t, 1, cb.config.MaxRequests)
	assert.Equal(t, StateClosed, cb.GetState())
	assert.Equal(t, "test", cb.Name())
}

func TestCircuitBreaker_Execute_Success(t *testing.T) {
	now := time.Now()
	cb := testBreaker(&now)

	err := cb.Execute(context.Background(), succeed)

	assert.NoError(t, err)
	stats := cb.GetStats()
	assert.Equal(t, int64(1), stats.TotalRequests)
	assert.Equal(t, int64(1), stats.TotalSuccesses)
	assert.Equal(t, 1, stats.ConsecutiveSuccesses)
}

func TestCircuitBreaker_Execute_TripsToOpen(t *testing.T) {
	now := time.Now()
	cb := testBreaker(&now)

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(context.Background(), fail), errBoom)
	}

	assert.Equal(t, StateOpen, cb.GetState())

	called := false
	err := cb.Execute(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called, "Open circuit must not call the function")
	assert.Equal(t, int64(1), cb.GetStats().TotalRejections)
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	now := time.Now()
	cb := testBreaker(&now)
	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), fail)
	}
	require.Equal(t, StateOpen, cb.GetState())

	now = now.Add(11 * time.Second)

	require.NoError(t, cb.Execute(context.Background(), succeed))
	assert.Equal(t, StateHalfOpen, cb.GetState())
	require.NoError(t, cb.Execute(context.Background(), succeed))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	cb := testBreaker(&now)
	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), fail)
	}
	now = now.Add(11 * time.Second)

	assert.ErrorIs(t, cb.Execute(context.Background(), fail), errBoom)

	assert.Equal(t, StateOpen, cb.GetState())
	assert.ErrorIs(t, cb.Execute(context.Background(), succeed), ErrCircuitOpen)
}

func TestCircuitBreaker_HalfOpenLimitsProbes(t *testing.T) {
	now := time.Now()
	cb := testBreaker(&now)
	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), fail)
	}
	now = now.Add(11 * time.Second)

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- cb.Execute(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	err := cb.Execute(context.Background(), succeed)
	close(release)

	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.NoError(t, <-done)
}

func TestCircuitBreaker_CancellationIsNotAFailure(t *testing.T) {
	now := time.Now()
	cb := testBreaker(&now)

	for i := 0; i < 5; i++ {
		_ = cb.Execute(context.Background(), func(context.Context) error {
			return fmt.Errorf("lookup: %w", context.Canceled)
		})
	}

	assert.Equal(t, StateClosed, cb.GetState())
	assert.Zero(t, cb.GetStats().TotalFailures)
}

func TestCircuitBreaker_CustomIsFailure(t *testing.T) {
	notFound := errors.New("not found")
	cb := NewCircuitBreaker("lookup", CircuitBreakerConfig{
		FailureThreshold: 1,
		IsFailure:        func(err error) bool { return err != nil && !errors.Is(err, notFound) },
	})

	err := cb.Execute(context.Background(), func(context.Context) error { return notFound })

	assert.ErrorIs(t, err, notFound)
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_StateChangeCallback(t *testing.T) {
	var transitions []string
	cb := NewCircuitBreaker("cb", CircuitBreakerConfig{
		FailureThreshold: 1,
		OnStateChange: func(name string, from, to CircuitBreakerState) {
			transitions = append(transitions, fmt.Sprintf("%s:%s->%s", name, from, to))
		},
	})

	_ = cb.Execute(context.Background(), fail)
	cb.Reset()

	assert.Equal(t, []string{"cb:closed->open", "cb:open->closed"}, transitions)
}

func TestCircuitBreakerState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "unknown", CircuitBreakerState(99).String())
}

func TestCircuitBreaker_ConcurrentAccess(t *testing.T) {
	cb := NewCircuitBreaker("concurrent", CircuitBreakerConfig{FailureThreshold: 1000})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = cb.Execute(context.Background(), succeed)
				return
			}
			_ = cb.Execute(context.Background(), fail)
		}(i)
	}
	wg.Wait()

	stats := cb.GetStats()
	assert.Equal(t, int64(50), stats.TotalRequests)
	assert.Equal(t, int64(25), stats.TotalSuccesses)
	assert.Equal(t, int64(25), stats.TotalFailures)
}
