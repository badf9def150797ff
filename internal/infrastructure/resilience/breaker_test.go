package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRefused = errors.New("connection refused")

// send runs one request through b that succeeds or fails with err.
func send(b *Breaker, err error) error {
	_, got := Do(b, func() (string, error) {
		if err != nil {
			return "", err
		}
		return "ok", nil
	})
	return got
}

func tripAfter(n uint32) func(Counts) bool {
	return func(counts Counts) bool { return counts.ConsecutiveFailures >= n }
}

func TestBreakerStateTransitions(t *testing.T) {
	tests := []struct {
		name          string
		settings      Settings
		outcomes      []error
		expectedState State
	}{
		{
			name:          "stays closed on successes",
			settings:      Settings{},
			outcomes:      []error{nil, nil, nil},
			expectedState: StateClosed,
		},
		{
			name:          "opens after consecutive failures",
			settings:      Settings{ReadyToTrip: tripAfter(3)},
			outcomes:      []error{errRefused, errRefused, errRefused},
			expectedState: StateOpen,
		},
		{
			name:          "success resets the streak",
			settings:      Settings{ReadyToTrip: tripAfter(2)},
			outcomes:      []error{errRefused, nil, errRefused},
			expectedState: StateClosed,
		},
		{
			name:          "canceled requests never trip",
			settings:      Settings{ReadyToTrip: tripAfter(1)},
			outcomes:      []error{context.Canceled, fmt.Errorf("send: %w", context.Canceled)},
			expectedState: StateClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			breaker := New("test", tt.settings)
			for _, err := range tt.outcomes {
				_ = send(breaker, err)
			}
			assert.Equal(t, tt.expectedState, breaker.State())
		})
	}
}

func TestBreakerCounts(t *testing.T) {
	breaker := New("test", Settings{})

	require.NoError(t, send(breaker, nil))
	assert.Equal(t, Counts{Requests: 1, TotalSuccesses: 1, ConsecutiveSuccesses: 1}, breaker.Counts())

	assert.ErrorIs(t, send(breaker, errRefused), errRefused)
	assert.Equal(t, Counts{Requests: 2, TotalSuccesses: 1, TotalFailures: 1, ConsecutiveFailures: 1}, breaker.Counts())

	assert.ErrorIs(t, send(breaker, context.Canceled), context.Canceled)
	assert.Equal(t, uint32(2), breaker.Counts().Requests)
}

func TestBreakerOpenRejects(t *testing.T) {
	breaker := New("test", Settings{ReadyToTrip: tripAfter(2)})
	for i := 0; i < 2; i++ {
		_ = send(breaker, errRefused)
	}
	assert.Equal(t, StateOpen, breaker.State())

	called := false
	_, err := Do(breaker, func() (string, error) {
		called = true
		return "ok", nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestBreakerHalfOpenRecovers(t *testing.T) {
	breaker := New("test", Settings{
		Probes:      2,
		Cooldown:    50 * time.Millisecond,
		ReadyToTrip: tripAfter(2),
	})
	for i := 0; i < 2; i++ {
		_ = send(breaker, errRefused)
	}
	assert.Equal(t, StateOpen, breaker.State())

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, breaker.State())

	for i := 0; i < 2; i++ {
		require.NoError(t, send(breaker, nil))
	}
	assert.Equal(t, StateClosed, breaker.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	breaker := New("test", Settings{Cooldown: 10 * time.Millisecond, ReadyToTrip: tripAfter(1)})
	_ = send(breaker, errRefused)

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, StateHalfOpen, breaker.State())

	_ = send(breaker, errRefused)
	assert.Equal(t, StateOpen, breaker.State())
}

func TestBreakerProbeLimit(t *testing.T) {
	breaker := New("test", Settings{Cooldown: 10 * time.Millisecond, ReadyToTrip: tripAfter(1)})
	_ = send(breaker, errRefused)
	time.Sleep(20 * time.Millisecond)

	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := Do(breaker, func() (string, error) {
			<-release
			return "", context.Canceled
		})
		done <- err
	}()

	require.Eventually(t, func() bool {
		return breaker.Counts().Requests == 1
	}, time.Second, time.Millisecond)
	assert.ErrorIs(t, send(breaker, nil), ErrProbeLimit)

	close(release)
	assert.ErrorIs(t, <-done, context.Canceled)

	// The canceled probe gave its slot back.
	require.NoError(t, send(breaker, nil))
	assert.Equal(t, StateClosed, breaker.State())
}

func TestBreakerPanicCountsAsFailure(t *testing.T) {
	breaker := New("test", Settings{ReadyToTrip: tripAfter(1)})

	assert.Panics(t, func() {
		_, _ = Do(breaker, func() (int, error) { panic("boom") })
	})
	assert.Equal(t, StateOpen, breaker.State())
}

func TestBreakerCallbacks(t *testing.T) {
	var transitions []string

	breaker := New("test", Settings{
		Cooldown:    10 * time.Millisecond,
		ReadyToTrip: tripAfter(2),
		OnStateChange: func(name string, from State, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	for i := 0; i < 2; i++ {
		_ = send(breaker, errRefused)
	}
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, breaker.State())

	assert.Equal(t, []string{"closed->open", "open->half-open"}, transitions)
}

func TestDoKeepsResultType(t *testing.T) {
	breaker := New("typed", Settings{})

	n, err := Do(breaker, func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	_, err = Do(breaker, func() (string, error) { return "", errors.New("boom") })
	assert.EqualError(t, err, "boom")
	assert.Equal(t, uint32(1), breaker.Counts().TotalFailures)
}

func TestShouldTrip(t *testing.T) {
	tests := []struct {
		name   string
		counts Counts
		want   bool
	}{
		{"healthy", Counts{Requests: 30, TotalFailures: 2}, false},
		{"consecutive failures", Counts{Requests: 10, TotalFailures: 10, ConsecutiveFailures: 10}, true},
		{"failure ratio", Counts{Requests: 20, TotalFailures: 15, ConsecutiveFailures: 1}, true},
		{"ratio below sample size", Counts{Requests: 5, TotalFailures: 5, ConsecutiveFailures: 5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldTrip(tt.counts))
		})
	}
}

func TestIsHostFailure(t *testing.T) {
	assert.False(t, IsHostFailure(nil))
	assert.False(t, IsHostFailure(context.Canceled))
	assert.True(t, IsHostFailure(errRefused))
	assert.True(t, IsHostFailure(context.DeadlineExceeded))
}

func TestGroupIsolatesHosts(t *testing.T) {
	group := NewGroup("send", Settings{ReadyToTrip: tripAfter(1)})

	bad := group.Get("bad.test:443")
	assert.Same(t, bad, group.Get("bad.test:443"))
	assert.Equal(t, "send:bad.test:443", bad.Name())

	_ = send(bad, errRefused)
	require.NoError(t, send(group.Get("good.test:443"), nil))

	assert.Equal(t, map[string]State{
		"bad.test:443":  StateOpen,
		"good.test:443": StateClosed,
	}, group.States())
}
