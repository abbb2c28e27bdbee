package amerrors

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by Allow when the breaker is tripped.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is a CircuitBreaker's position.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// CircuitBreaker protects an embedding backend from cascading failures: once
// a model's backend fails repeatedly, IndexingOrchestrator stops hammering
// it and fails fast until the reset timeout elapses.
type CircuitBreaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time
}

// NewCircuitBreaker creates a breaker with the teacher's defaults: 5
// failures, 30s reset timeout.
func NewCircuitBreaker(name string) *CircuitBreaker {
	return &CircuitBreaker{
		name:         name,
		maxFailures:  5,
		resetTimeout: 30 * time.Second,
		state:        StateClosed,
	}
}

// Allow reports whether a call should proceed, transitioning open breakers
// to half-open once resetTimeout has elapsed.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if time.Since(cb.lastFailure) >= cb.resetTimeout {
			cb.state = StateHalfOpen
		} else {
			return ErrCircuitOpen
		}
	}
	return nil
}

// RecordSuccess closes the breaker and resets the failure count.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.state = StateClosed
}

// RecordFailure bumps the failure count, opening the breaker once
// maxFailures is reached.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures++
	cb.lastFailure = time.Now()
	if cb.state == StateHalfOpen || cb.failures >= cb.maxFailures {
		cb.state = StateOpen
	}
}

// Status returns the current state.
func (cb *CircuitBreaker) Status() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
