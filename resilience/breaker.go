// Package resilience provides the circuit breaker guarding each retrieval
// lane. Unlike a generic service-mesh breaker, this one protects a single
// fan-out call with a hard per-request deadline: it must decide admit or
// reject in nanoseconds, with no sliding-window bookkeeping on the hot path.
package resilience

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/lattice-run/retrieval-orchestrator/core"
)

// CircuitState is one of Closed, Open, or HalfOpen.
type CircuitState int32

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Decision is the admission result returned by BeforeCall.
type Decision int

const (
	Admit Decision = iota
	Reject
)

// Config controls a single breaker instance. Unlike a sliding-window
// error-rate breaker, this one trips on a fixed count of *consecutive*
// failures and recovers after a fixed cooldown — no exponential backoff,
// no volume threshold, no error-rate math.
type Config struct {
	Name string

	// MaxConsecutiveFailures is the number of consecutive on_failure
	// calls that trips Closed -> Open.
	MaxConsecutiveFailures int

	// Cooldown is how long the breaker stays Open before allowing a
	// single HalfOpen probe.
	Cooldown time.Duration

	Logger core.Logger
	Clock  core.Clock
}

// DefaultConfig returns the breaker defaults used when a lane config does
// not override them.
func DefaultConfig(name string) Config {
	return Config{
		Name:                   name,
		MaxConsecutiveFailures: 3,
		Cooldown:               30 * time.Second,
		Logger:                 &core.NoOpLogger{},
		Clock:                  core.SystemClock{},
	}
}

// StateChangeListener is notified synchronously on every transition.
type StateChangeListener func(name string, from, to CircuitState)

// Breaker is a per-lane circuit breaker. The hot-path methods (BeforeCall,
// OnSuccess, OnFailure) are lock-light: state is stored atomically and only
// transitions take the mutex, matching the production breaker's split
// between read-mostly admission checks and rare state changes.
type Breaker struct {
	name     string
	maxFails int
	cooldown time.Duration
	logger   core.Logger
	clock    core.Clock

	state          atomic.Int32 // CircuitState
	stateChangedAt atomic.Value // time.Time

	consecutiveFailures atomic.Int32
	halfOpenInFlight    atomic.Bool

	mu        sync.Mutex
	listeners []StateChangeListener
}

// New constructs a Breaker in the Closed state.
func New(cfg Config) *Breaker {
	if cfg.MaxConsecutiveFailures <= 0 {
		cfg.MaxConsecutiveFailures = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = &core.NoOpLogger{}
	}
	if cfg.Clock == nil {
		cfg.Clock = core.SystemClock{}
	}

	b := &Breaker{
		name:     cfg.Name,
		maxFails: cfg.MaxConsecutiveFailures,
		cooldown: cfg.Cooldown,
		logger:   cfg.Logger,
		clock:    cfg.Clock,
	}
	b.state.Store(int32(StateClosed))
	b.stateChangedAt.Store(cfg.Clock.Now())
	return b
}

// AddStateChangeListener registers a callback invoked on every transition.
// It takes the same mutex transitions hold, so it may be called at any
// time; a listener is only notified of transitions after it is added.
func (b *Breaker) AddStateChangeListener(l StateChangeListener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

// State returns the current state.
func (b *Breaker) State() CircuitState {
	return CircuitState(b.state.Load())
}

// BeforeCall decides whether a call against this lane may proceed.
//
//   - Closed: always Admit.
//   - Open: Admit exactly once, as a probe, once Cooldown has elapsed
//     since the transition to Open (this also flips the state to
//     HalfOpen); Reject otherwise.
//   - HalfOpen: Admit at most one concurrent probe; Reject all others.
func (b *Breaker) BeforeCall() Decision {
	switch b.State() {
	case StateClosed:
		return Admit

	case StateOpen:
		changedAt, _ := b.stateChangedAt.Load().(time.Time)
		if b.clock.Now().Sub(changedAt) < b.cooldown {
			return Reject
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		// Re-check under lock: another goroutine may have already
		// flipped this to HalfOpen and claimed the probe slot.
		if b.State() != StateOpen {
			return b.admitHalfOpenLocked()
		}
		b.transitionLocked(StateHalfOpen)
		return b.admitHalfOpenLocked()

	case StateHalfOpen:
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.admitHalfOpenLocked()

	default:
		return Reject
	}
}

// admitHalfOpenLocked must be called with b.mu held.
func (b *Breaker) admitHalfOpenLocked() Decision {
	if b.halfOpenInFlight.CompareAndSwap(false, true) {
		return Admit
	}
	return Reject
}

// OnSuccess records a successful call. In HalfOpen it closes the breaker
// and resets the failure count; in Closed it resets the consecutive
// failure count.
func (b *Breaker) OnSuccess() {
	switch b.State() {
	case StateHalfOpen:
		b.mu.Lock()
		b.consecutiveFailures.Store(0)
		b.halfOpenInFlight.Store(false)
		b.transitionLocked(StateClosed)
		b.mu.Unlock()
	case StateClosed:
		b.consecutiveFailures.Store(0)
	}
}

// OnFailure records a failed call. In Closed it increments the
// consecutive failure counter and trips to Open once MaxConsecutiveFailures
// is reached. In HalfOpen, any failure on the probe reopens the breaker
// immediately and resets the cooldown window.
func (b *Breaker) OnFailure() {
	switch b.State() {
	case StateHalfOpen:
		b.mu.Lock()
		b.halfOpenInFlight.Store(false)
		b.transitionLocked(StateOpen)
		b.mu.Unlock()

	case StateClosed:
		failures := b.consecutiveFailures.Add(1)
		if int(failures) >= b.maxFails {
			b.mu.Lock()
			if b.State() == StateClosed {
				b.transitionLocked(StateOpen)
			}
			b.mu.Unlock()
		}
	}
}

// transitionLocked must be called with b.mu held.
func (b *Breaker) transitionLocked(to CircuitState) {
	from := CircuitState(b.state.Swap(int32(to)))
	if from == to {
		return
	}
	b.stateChangedAt.Store(b.clock.Now())

	b.logger.Info("circuit breaker state transition", map[string]interface{}{
		"lane":  b.name,
		"from":  from.String(),
		"to":    to.String(),
	})

	for _, l := range b.listeners {
		l(b.name, from, to)
	}
}

// Reset forces the breaker back to Closed, clearing all counters. Used by
// tests.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutiveFailures.Store(0)
	b.halfOpenInFlight.Store(false)
	b.transitionLocked(StateClosed)
}
