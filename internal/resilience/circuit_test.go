package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failing(msg string) func(context.Context) (int, error) {
	return func(context.Context) (int, error) { return 0, errors.New(msg) }
}

func succeeding(v int) func(context.Context) (int, error) {
	return func(context.Context) (int, error) { return v, nil }
}

func TestBreakerPassesThroughWhenClosed(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())
	got, err := Execute(context.Background(), cb, succeeding(11))
	require.NoError(t, err)
	assert.Equal(t, 11, got)
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3, ResetTimeout: time.Minute})
	for i := 0; i < 3; i++ {
		_, err := Execute(context.Background(), cb, failing("upstream down"))
		require.Error(t, err)
	}
	assert.Equal(t, CircuitOpen, cb.State())

	_, err := Execute(context.Background(), cb, succeeding(1))
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestBreakerSuccessClearsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3, ResetTimeout: time.Minute})
	_, _ = Execute(context.Background(), cb, failing("once"))
	_, _ = Execute(context.Background(), cb, failing("twice"))
	_, err := Execute(context.Background(), cb, succeeding(1))
	require.NoError(t, err)

	failures, state := cb.Counters()
	assert.Zero(t, failures)
	assert.Equal(t, CircuitClosed, state)
}

func TestBreakerHalfOpenProbeClosesCircuit(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: 100 * time.Millisecond})
	cb.nowFunc = func() time.Time { return now }

	_, _ = Execute(context.Background(), cb, failing("down"))
	_, _ = Execute(context.Background(), cb, failing("down"))
	require.Equal(t, CircuitOpen, cb.State())

	cb.nowFunc = func() time.Time { return now.Add(time.Second) }
	assert.Equal(t, CircuitHalfOpen, cb.State())

	_, err := Execute(context.Background(), cb, succeeding(1))
	require.NoError(t, err)
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: 100 * time.Millisecond})
	cb.nowFunc = func() time.Time { return now }

	_, _ = Execute(context.Background(), cb, failing("down"))
	_, _ = Execute(context.Background(), cb, failing("down"))

	cb.nowFunc = func() time.Time { return now.Add(time.Second) }
	_, err := Execute(context.Background(), cb, failing("still down"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCircuitOpen)

	_, err = Execute(context.Background(), cb, succeeding(1))
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestBreakerObservesStateChanges(t *testing.T) {
	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Minute,
		OnStateChange: func(from, to CircuitState) {
			transitions = append(transitions, from.String()+">"+to.String())
		},
	})
	_, _ = Execute(context.Background(), cb, failing("down"))
	cb.Reset()
	assert.Equal(t, []string{"closed>open", "open>closed"}, transitions)
}

func TestBreakerShouldTripFilter(t *testing.T) {
	budget := errors.New("budget exceeded")
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Minute,
		ShouldTrip:       func(err error) bool { return !errors.Is(err, budget) },
	})

	_, _ = Execute(context.Background(), cb, func(context.Context) (int, error) { return 0, budget })
	assert.Equal(t, CircuitClosed, cb.State())

	_, _ = Execute(context.Background(), cb, failing("real failure"))
	assert.Equal(t, CircuitOpen, cb.State())
}

func TestBreakerConcurrentCalls(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = Execute(context.Background(), cb, succeeding(1))
		}()
	}
	wg.Wait()

	failures, state := cb.Counters()
	assert.Zero(t, failures)
	assert.Equal(t, CircuitClosed, state)
}

func TestFromCircuitConfig(t *testing.T) {
	cfg := FromCircuitConfig(8, 60)
	assert.Equal(t, 8, cfg.FailureThreshold)
	assert.Equal(t, time.Minute, cfg.ResetTimeout)

	def := DefaultCircuitBreakerConfig()
	cfg = FromCircuitConfig(0, 0)
	assert.Equal(t, def.FailureThreshold, cfg.FailureThreshold)
	assert.Equal(t, def.ResetTimeout, cfg.ResetTimeout)
}

func TestCircuitStateStrings(t *testing.T) {
	assert.Equal(t, "closed", CircuitClosed.String())
	assert.Equal(t, "open", CircuitOpen.String())
	assert.Equal(t, "half-open", CircuitHalfOpen.String())
	assert.Equal(t, "unknown", CircuitState(99).String())
}

func TestBreakerLoggerDoesNotPanic(t *testing.T) {
	BreakerLogger("anthropic")(CircuitClosed, CircuitOpen)
}
