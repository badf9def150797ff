package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrCircuitOpen = errors.New("circuit breaker is open")
	ErrProbeLimit  = errors.New("circuit breaker is half-open: probe limit reached")
)

// ShouldTrip is the default trip rule for remote hosts a script talks to:
// ten consecutive failures, or more than 70% failures over 20+ requests.
func ShouldTrip(counts Counts) bool {
	return counts.ConsecutiveFailures >= 10 ||
		(counts.Requests >= 20 && float64(counts.TotalFailures)/float64(counts.Requests) > 0.7)
}

// IsHostFailure reports whether err counts against the host. A request the
// caller canceled, such as one abandoned by a timed out script, says nothing
// about the host.
func IsHostFailure(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

// State is the breaker state for one host.
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures a host breaker. Zero values take the defaults set in New.
type Settings struct {
	// Probes is how many requests a half-open breaker lets through. That many
	// successes in a row close it again.
	Probes uint32
	// Window is how often the closed-state counts are cleared.
	Window time.Duration
	// Cooldown is how long an open breaker rejects requests.
	Cooldown time.Duration

	ReadyToTrip   func(counts Counts) bool
	IsFailure     func(err error) bool
	OnStateChange func(name string, from State, to State)
}

// Counts are the request outcomes seen in the current window.
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// Breaker guards the requests sent to one host. Every state change starts a
// new generation; outcomes reported for an older generation are dropped.
type Breaker struct {
	name     string
	settings Settings

	mu         sync.Mutex
	state      State
	generation uint64
	counts     Counts
	expiry     time.Time
}

type outcome int

const (
	outcomeIgnored outcome = iota
	outcomeSuccess
	outcomeFailure
)

func New(name string, settings Settings) *Breaker {
	if settings.Probes == 0 {
		settings.Probes = 1
	}
	if settings.Window <= 0 {
		settings.Window = time.Minute
	}
	if settings.Cooldown <= 0 {
		settings.Cooldown = time.Minute
	}
	if settings.ReadyToTrip == nil {
		settings.ReadyToTrip = ShouldTrip
	}
	if settings.IsFailure == nil {
		settings.IsFailure = IsHostFailure
	}

	return &Breaker{
		name:     name,
		settings: settings,
		expiry:   time.Now().Add(settings.Window),
	}
}

func (b *Breaker) Name() string {
	return b.name
}

// State returns the state after applying any elapsed window or cooldown.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refresh(time.Now())
	return b.state
}

func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.counts
}

// Do runs fn when the breaker admits it and records the outcome. A panic in
// fn counts as a failure and keeps propagating.
func Do[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	generation, err := b.admit()
	if err != nil {
		return zero, err
	}

	settled := false
	defer func() {
		if !settled {
			b.settle(generation, outcomeFailure)
		}
	}()

	result, err := fn()
	settled = true
	b.settle(generation, b.classify(err))
	return result, err
}

func (b *Breaker) classify(err error) outcome {
	switch {
	case err == nil:
		return outcomeSuccess
	case b.settings.IsFailure(err):
		return outcomeFailure
	default:
		return outcomeIgnored
	}
}

func (b *Breaker) admit() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refresh(time.Now())
	switch {
	case b.state == StateOpen:
		return 0, ErrCircuitOpen
	case b.state == StateHalfOpen && b.counts.Requests >= b.settings.Probes:
		return 0, ErrProbeLimit
	}
	b.counts.Requests++
	return b.generation, nil
}

func (b *Breaker) settle(generation uint64, o outcome) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.refresh(now)
	if generation != b.generation {
		return
	}

	switch o {
	case outcomeSuccess:
		b.counts.TotalSuccesses++
		b.counts.ConsecutiveSuccesses++
		b.counts.ConsecutiveFailures = 0
		if b.state == StateHalfOpen && b.counts.ConsecutiveSuccesses >= b.settings.Probes {
			b.transition(StateClosed, now)
		}
	case outcomeFailure:
		b.counts.TotalFailures++
		b.counts.ConsecutiveFailures++
		b.counts.ConsecutiveSuccesses = 0
		if b.state == StateHalfOpen || b.settings.ReadyToTrip(b.counts) {
			b.transition(StateOpen, now)
		}
	case outcomeIgnored:
		// A canceled probe must not keep its half-open slot.
		if b.counts.Requests > 0 {
			b.counts.Requests--
		}
	}
}

// refresh rolls the closed-state window and ends an elapsed cooldown.
func (b *Breaker) refresh(now time.Time) {
	switch b.state {
	case StateClosed:
		if b.expiry.Before(now) {
			b.counts = Counts{}
			b.expiry = now.Add(b.settings.Window)
			b.generation++
		}
	case StateOpen:
		if b.expiry.Before(now) {
			b.transition(StateHalfOpen, now)
		}
	}
}

func (b *Breaker) transition(to State, now time.Time) {
	if b.state == to {
		return
	}

	from := b.state
	b.state = to
	b.generation++
	b.counts = Counts{}

	switch to {
	case StateClosed:
		b.expiry = now.Add(b.settings.Window)
	case StateOpen:
		b.expiry = now.Add(b.settings.Cooldown)
	case StateHalfOpen:
		b.expiry = time.Time{}
	}

	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, from, to)
	}
}
