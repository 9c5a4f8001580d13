package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by Execute while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	StateClosed   CircuitState = iota // Normal operation
	StateOpen                         // Circuit is open, requests fail immediately
	StateHalfOpen                     // Testing if service has recovered
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// CircuitBreaker stops calling a failing collaborator for resetTimeout after
// maxFailures consecutive failures, then lets a few probe calls through.
type CircuitBreaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	probes       int // successes needed in half-open before closing
	onChange     func(name string, state CircuitState)

	mu        sync.Mutex
	state     CircuitState
	failures  int
	successes int
	inFlight  int
	openedAt  time.Time
	now       func() time.Time
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(name string, maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	if maxFailures < 1 {
		maxFailures = 1
	}
	return &CircuitBreaker{
		name:         name,
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		probes:       1,
		state:        StateClosed,
		now:          time.Now,
	}
}

// OnStateChange registers a callback invoked (outside the lock) after each transition.
func (cb *CircuitBreaker) OnStateChange(fn func(name string, state CircuitState)) *CircuitBreaker {
	cb.onChange = fn
	return cb
}

// Name returns the breaker name.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Execute runs fn if the breaker admits the call and records its outcome.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.admit() {
		return ErrCircuitOpen
	}
	err := fn()
	cb.record(err == nil, true)
	return err
}

// RecordResult records the outcome of a call made outside Execute.
func (cb *CircuitBreaker) RecordResult(success bool) {
	cb.record(success, false)
}

func (cb *CircuitBreaker) admit() bool {
	cb.mu.Lock()
	var changed bool
	defer func() {
		state := cb.state
		cb.mu.Unlock()
		if changed {
			cb.notify(state)
		}
	}()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.resetTimeout {
			return false
		}
		cb.state = StateHalfOpen
		cb.successes = 0
		cb.inFlight = 0
		changed = true
		fallthrough
	case StateHalfOpen:
		if cb.inFlight >= cb.probes {
			return false
		}
		cb.inFlight++
		return true
	default:
		return true
	}
}

func (cb *CircuitBreaker) record(success, admitted bool) {
	cb.mu.Lock()
	before := cb.state
	if admitted && cb.state == StateHalfOpen && cb.inFlight > 0 {
		cb.inFlight--
	}

	if success {
		switch cb.state {
		case StateClosed:
			cb.failures = 0
		case StateHalfOpen:
			cb.successes++
			if cb.successes >= cb.probes {
				cb.state = StateClosed
				cb.failures = 0
			}
		}
	} else {
		switch cb.state {
		case StateClosed:
			cb.failures++
			if cb.failures >= cb.maxFailures {
				cb.trip()
			}
		case StateHalfOpen:
			cb.trip()
		}
	}
	after := cb.state
	cb.mu.Unlock()

	if after != before {
		cb.notify(after)
	}
}

func (cb *CircuitBreaker) trip() {
	cb.state = StateOpen
	cb.openedAt = cb.now()
	cb.successes = 0
	cb.inFlight = 0
}

func (cb *CircuitBreaker) notify(state CircuitState) {
	if cb.onChange != nil {
		cb.onChange(cb.name, state)
	}
}

// State returns the current state of the circuit breaker
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset manually resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	changed := cb.state != StateClosed
	cb.state = StateClosed
	cb.failures = 0
	cb.successes = 0
	cb.inFlight = 0
	cb.mu.Unlock()
	if changed {
		cb.notify(StateClosed)
	}
}
